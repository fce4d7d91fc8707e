// Package layer provides the neural network layer implementations and
// their declarative configurations.
package layer

import (
	"errors"

	"github.com/andresilva/gocnn/internal/opt"
	"github.com/andresilva/gocnn/internal/tensor"
)

// Sentinel errors for the caller-facing failure classes.
var (
	// ErrShapeMismatch reports data whose size disagrees with the
	// layer's built geometry.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupported reports an operation the layer cannot perform,
	// such as flattening a batch larger than one.
	ErrUnsupported = errors.New("unsupported operation")
)

// Value is the data flowing between layers: either a flat vector or a
// 4D tensor, never both.
type Value struct {
	Vec []float64
	T   *tensor.Tensor
}

// Vec wraps a flat vector as a layer Value.
func Vec(v []float64) Value { return Value{Vec: v} }

// FromTensor wraps a 4D tensor as a layer Value.
func FromTensor(t *tensor.Tensor) Value { return Value{T: t} }

// IsTensor reports whether the value carries a 4D tensor.
func (v Value) IsTensor() bool { return v.T != nil }

// Raw returns the underlying flat buffer of either representation.
func (v Value) Raw() []float64 {
	if v.T != nil {
		return v.T.Data()
	}
	return v.Vec
}

// Cache is the transient per-forward-pass state a layer needs for the
// matching backward computation. It is owned by exactly one
// forward/backward round-trip and is never stored on the layer itself.
type Cache interface {
	isCache()
}

// Layer is a built network layer. Forward produces the layer output and
// an opaque cache; Backward consumes the incoming gradient and that
// cache, applies any in-place parameter update, and returns the
// gradient with respect to the layer's input.
type Layer interface {
	Forward(x Value) (Value, Cache, error)
	Backward(grad Value, cache Cache, sgd opt.SGD) (Value, error)
}

// Config is a declarative layer configuration, consumed once at
// network construction.
type Config interface {
	isConfig()
}

// InputConfig declares the network input: either [size] for a flat
// vector or [H,W,C] for a single-sample tensor.
type InputConfig struct {
	Shape []int
}

// DenseConfig declares a fully connected layer.
// Activation "softmax" is resolved at the layer boundary, not through
// the activation registry, because its derivative is not elementwise.
type DenseConfig struct {
	Size       int
	Activation string
}

// Conv2DConfig declares a 2D convolutional layer.
// Stride defaults to 1; Padding is "valid" (default) or "same".
type Conv2DConfig struct {
	Filters    int
	KernelH    int
	KernelW    int
	Stride     int
	Padding    string
	Activation string
}

// MaxPool2DConfig declares a max pooling layer.
// Stride defaults to the window size (non-overlapping pooling).
type MaxPool2DConfig struct {
	WindowH int
	WindowW int
	Stride  int
}

// FlattenConfig declares a flatten layer.
type FlattenConfig struct{}

func (InputConfig) isConfig()     {}
func (DenseConfig) isConfig()     {}
func (Conv2DConfig) isConfig()    {}
func (MaxPool2DConfig) isConfig() {}
func (FlattenConfig) isConfig()   {}

// clip bounds a gradient value to [-1, 1]. This is a designed
// numerical-stability guard, not error handling: it trades exactness
// near saturation for bounded updates.
func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
