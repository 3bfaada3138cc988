package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// QLinearFormat tags artifacts holding a single int8-quantized dense layer.
const QLinearFormat = "qlinear-int8"

// QLinear is an int8-quantized dense layer mapping the flattened input to
// the output vector: out[j] = bias[j] + scale * sum_i (w[j][i] - zero_point) * x[i].
// It is immutable after decoding.
type QLinear struct {
	Format    string  `json:"format"`
	Input     Shape   `json:"input_shape"`
	Output    Shape   `json:"output_shape"`
	Scale     float32 `json:"scale"`
	ZeroPoint int8    `json:"zero_point"`
	// Weights are stored output-major: Weights[j*inputs+i].
	Weights []int8    `json:"weights"`
	Bias    []float32 `json:"bias"`
}

// DecodeQLinear parses and checks a qlinear-int8 artifact.
func DecodeQLinear(data []byte) (*QLinear, error) {
	var q QLinear
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := q.check(); err != nil {
		return nil, err
	}
	return &q, nil
}

// QuantizeLinear builds a QLinear from float weights laid out output-major.
// The scale is chosen so the largest absolute weight maps to 127.
func QuantizeLinear(input, output Shape, weights, bias []float32) (*QLinear, error) {
	var maxAbs float64
	for _, w := range weights {
		maxAbs = math.Max(maxAbs, math.Abs(float64(w)))
	}
	scale := float32(1)
	if maxAbs > 0 {
		scale = float32(maxAbs / 127)
	}

	q := &QLinear{
		Format:  QLinearFormat,
		Input:   input,
		Output:  output,
		Scale:   scale,
		Weights: make([]int8, len(weights)),
		Bias:    append([]float32(nil), bias...),
	}
	for i, w := range weights {
		q.Weights[i] = int8(math.Round(float64(w / scale)))
	}
	if err := q.check(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *QLinear) check() error {
	if q.Format != QLinearFormat {
		return fmt.Errorf("%w: format %q", ErrUnsupportedArtifact, q.Format)
	}
	in, out := q.Input.Size(), q.Output.Size()
	if in == 0 || out == 0 {
		return errors.New("model artifact: empty input or output shape")
	}
	if len(q.Weights) != in*out {
		return fmt.Errorf("model artifact: %d weights, want %d", len(q.Weights), in*out)
	}
	if len(q.Bias) != out {
		return fmt.Errorf("model artifact: %d biases, want %d", len(q.Bias), out)
	}
	if q.Scale <= 0 || math.IsNaN(float64(q.Scale)) || math.IsInf(float64(q.Scale), 0) {
		return fmt.Errorf("model artifact: invalid scale %v", q.Scale)
	}
	return nil
}

func (q *QLinear) InputShape() Shape  { return q.Input }
func (q *QLinear) OutputShape() Shape { return q.Output }

// Invoke runs the layer on a flattened input.
func (q *QLinear) Invoke(input []float32) ([]float32, error) {
	n := q.Input.Size()
	if len(input) != n {
		return nil, fmt.Errorf("input has %d values, want %d", len(input), n)
	}
	zp := int32(q.ZeroPoint)
	out := make([]float32, q.Output.Size())
	for j := range out {
		row := q.Weights[j*n : (j+1)*n]
		var acc float32
		for i, x := range input {
			acc += float32(int32(row[i])-zp) * x
		}
		out[j] = q.Bias[j] + q.Scale*acc
	}
	return out, nil
}

// MarshalArtifact encodes the layer in the on-disk artifact format.
func (q *QLinear) MarshalArtifact() ([]byte, error) {
	return json.MarshalIndent(q, "", "  ")
}

// PersistenceModel builds the baseline artifact that forecasts tomorrow as a
// repeat of the last observed day. It satisfies the shape contract and is
// useful for exercising the model tier end to end.
func PersistenceModel() (*QLinear, error) {
	inputs := InputShape.Size()
	weights := make([]float32, OutputShape.Size()*inputs)
	lastRow := (InputShape[0] - 1) * InputShape[1]
	for j := 0; j < OutputShape.Size(); j++ {
		weights[j*inputs+lastRow+j] = 1
	}
	return QuantizeLinear(InputShape, OutputShape, weights, make([]float32, OutputShape.Size()))
}
