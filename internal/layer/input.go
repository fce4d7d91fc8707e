package layer

import (
	"fmt"

	"github.com/andresilva/gocnn/internal/opt"
)

// Input is the passthrough entry layer; it records the declared shape
// and validates incoming data against it.
type Input struct {
	shape []int // [size] or [H,W,C]
}

// NewInput creates an input layer for a flat vector (len(shape) == 1)
// or a single-sample tensor (len(shape) == 3, [H,W,C]).
func NewInput(shape []int) (*Input, error) {
	if len(shape) != 1 && len(shape) != 3 {
		return nil, fmt.Errorf("input: shape must be [size] or [H,W,C], got %v", shape)
	}
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("input: non-positive dimension in shape %v", shape)
		}
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Input{shape: s}, nil
}

// Shape returns the declared input shape.
func (l *Input) Shape() []int {
	return l.shape
}

type inputCache struct{}

func (inputCache) isCache() {}

// Forward validates the input against the declared shape and passes it
// through unchanged.
func (l *Input) Forward(x Value) (Value, Cache, error) {
	if len(l.shape) == 1 {
		if x.IsTensor() {
			return Value{}, nil, fmt.Errorf("input: %w: expected vector of size %d, got tensor", ErrShapeMismatch, l.shape[0])
		}
		if len(x.Vec) != l.shape[0] {
			return Value{}, nil, fmt.Errorf("input: %w: expected vector of size %d, got %d", ErrShapeMismatch, l.shape[0], len(x.Vec))
		}
		return x, inputCache{}, nil
	}
	if !x.IsTensor() {
		return Value{}, nil, fmt.Errorf("input: %w: expected tensor of shape %v, got vector", ErrShapeMismatch, l.shape)
	}
	_, h, w, c := x.T.Shape()
	if h != l.shape[0] || w != l.shape[1] || c != l.shape[2] {
		return Value{}, nil, fmt.Errorf("input: %w: expected tensor of shape %v, got [%d,%d,%d]", ErrShapeMismatch, l.shape, h, w, c)
	}
	return x, inputCache{}, nil
}

// Backward is a terminal passthrough.
func (l *Input) Backward(grad Value, _ Cache, _ opt.SGD) (Value, error) {
	return grad, nil
}
