package domain

import "errors"

var (
	// ErrInsufficientData means a tier lacks the days or samples it needs.
	// The orchestrator absorbs it and moves to the next tier.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelUnavailable means no model artifact was loaded at startup.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInferenceFault covers runtime failures and untrustworthy model output.
	ErrInferenceFault = errors.New("inference fault")

	// ErrStoreUnavailable is the only error a forecast request surfaces.
	ErrStoreUnavailable = errors.New("sample store unavailable")

	// ErrInvalidSample marks readings rejected during ingestion.
	ErrInvalidSample = errors.New("invalid sample")
)
