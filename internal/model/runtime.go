// Package model loads quantized forecast models and wraps them behind the
// inference adapter used by the forecast engine.
package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Shape is a tensor shape, outermost dimension first.
type Shape []int

// Required tensor shapes: 30 days of 6 features in, 4 values out.
var (
	InputShape  = Shape{30, 6}
	OutputShape = Shape{4}
)

// Equal reports whether two shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Size is the number of elements a tensor of this shape holds.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Runtime is a loaded model. Input is flattened row-major to InputShape().
// Implementations must be safe for concurrent Invoke calls.
type Runtime interface {
	InputShape() Shape
	OutputShape() Shape
	Invoke(input []float32) ([]float32, error)
}

// DefaultArtifactPaths is the search list used when MODEL_PATH is unset.
var DefaultArtifactPaths = []string{
	"models/weather_prediction_model.qlm.json",
	"weather_prediction_model.qlm.json",
	"edge-deployment/model.qlm.json",
}

// ErrUnsupportedArtifact is returned for artifact formats this build cannot run.
var ErrUnsupportedArtifact = errors.New("unsupported model artifact")

// Load reads a model artifact from disk.
func Load(path string) (Runtime, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model artifact: %w", err)
		}
		return DecodeQLinear(data)
	case ".tflite":
		return nil, fmt.Errorf("%w: %s needs the TensorFlow Lite runtime; export it as qlinear-int8", ErrUnsupportedArtifact, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArtifact, path)
	}
}

// Locate returns the first path in candidates that exists, or "" if none do.
func Locate(candidates []string) string {
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
