package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2025, 7, 1, 14, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockStore(t *testing.T, d dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newStore(db, d, discardLogger()), mock
}

func TestInsertSamples_SingleTransaction(t *testing.T) {
	s, mock := newMockStore(t, postgresDialect)
	pressure := 1013.2

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO sensor_data (timestamp, temperature, humidity, pressure) VALUES ($1, $2, $3, $4)`))
	prep.ExpectExec().WithArgs(ts, 22.5, 65.0, 1013.2).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(ts.Add(time.Hour), 23.0, 60.0, nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.InsertSamples(context.Background(), []domain.Sample{
		{Timestamp: ts, Temperature: 22.5, Humidity: 65, Pressure: &pressure},
		{Timestamp: ts.Add(time.Hour), Temperature: 23, Humidity: 60},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSamples_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t, mysqlDialect)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertSampleSQL))
	prep.ExpectExec().WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.InsertSamples(context.Background(), []domain.Sample{{Timestamp: ts, Temperature: 20, Humidity: 50}})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSamples_EmptyBatchIsNoop(t *testing.T) {
	s, mock := newMockStore(t, postgresDialect)
	require.NoError(t, s.InsertSamples(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRange(t *testing.T) {
	s, mock := newMockStore(t, postgresDialect)
	from, to := ts.Add(-time.Hour), ts.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"timestamp", "temperature", "humidity", "pressure"}).
		AddRow(ts, 21.0, 55.0, nil).
		AddRow(ts.Add(30*time.Minute), 22.0, 56.0, 1010.0)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE timestamp >= $1 AND timestamp <= $2 ORDER BY timestamp ASC`)).
		WithArgs(from, to).WillReturnRows(rows)

	got, err := s.QueryRange(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Pressure)
	require.NotNil(t, got[1].Pressure)
	assert.Equal(t, 1010.0, *got[1].Pressure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRange_DriverErrorIsStoreUnavailable(t *testing.T) {
	s, mock := newMockStore(t, mysqlDialect)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("dial tcp: refused"))

	_, err := s.QueryRange(context.Background(), ts, ts)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestQueryRecentAverage(t *testing.T) {
	tests := []struct {
		name   string
		row    []driver.Value
		wantOK bool
		want   domain.RecentAverage
	}{
		{name: "samples present", row: []driver.Value{int64(3), 18.5, 62.0}, wantOK: true, want: domain.RecentAverage{AvgTemperature: 18.5, AvgHumidity: 62, Samples: 3}},
		{name: "empty window", row: []driver.Value{int64(0), nil, nil}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t, postgresDialect)
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*), AVG(temperature), AVG(humidity) FROM sensor_data WHERE timestamp >= $1`)).
				WithArgs(ts).
				WillReturnRows(sqlmock.NewRows([]string{"count", "avg_t", "avg_h"}).AddRow(tt.row...))

			got, ok, err := s.QueryRecentAverage(context.Background(), ts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLatest(t *testing.T) {
	s, mock := newMockStore(t, mysqlDialect)
	mock.ExpectQuery(regexp.QuoteMeta(latestSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "temperature", "humidity", "pressure"}).AddRow(ts, 25.0, 40.0, nil))

	got, ok, err := s.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 25.0, got.Temperature)
	assert.Equal(t, ts, got.Timestamp)
}

func TestLatest_EmptyTable(t *testing.T) {
	s, mock := newMockStore(t, postgresDialect)
	mock.ExpectQuery(regexp.QuoteMeta(latestSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "temperature", "humidity", "pressure"}))

	_, ok, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckReadiness(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	s := newStore(db, postgresDialect, discardLogger())

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorIs(t, s.CheckReadiness(context.Background()), domain.ErrStoreUnavailable)

	mock.ExpectPing()
	assert.NoError(t, s.CheckReadiness(context.Background()))
}
