// Package gocnn re-exports the engine's types and constructors for
// easier access.
package gocnn

import (
	"github.com/andresilva/gocnn/internal/layer"
	"github.com/andresilva/gocnn/internal/net"
	"github.com/andresilva/gocnn/internal/tensor"
)

// Re-export common types for easier access
type (
	Network    = net.Network
	Options    = net.Options
	Checkpoint = net.Checkpoint
	Tensor     = tensor.Tensor
	Value      = layer.Value
	Config     = layer.Config
)

// Errors surfaced by the engine.
var (
	ErrConfiguration        = net.ErrConfiguration
	ErrNumericalInstability = net.ErrNumericalInstability
	ErrShapeMismatch        = layer.ErrShapeMismatch
	ErrUnsupported          = layer.ErrUnsupported
)

// Layer configurations

// Input declares the network input: Input(size) for a flat vector or
// Input(h, w, c) for a single-sample tensor.
func Input(shape ...int) layer.Config {
	return layer.InputConfig{Shape: shape}
}

// Dense declares a fully connected layer. The activation may be any
// registry name, "softmax", or empty for identity.
func Dense(size int, activation string) layer.Config {
	return layer.DenseConfig{Size: size, Activation: activation}
}

// Conv2D declares a convolutional layer with a square or rectangular
// kernel. Padding is "valid" or "same"; stride 0 means 1.
func Conv2D(filters, kernelH, kernelW, stride int, padding, activation string) layer.Config {
	return layer.Conv2DConfig{
		Filters: filters, KernelH: kernelH, KernelW: kernelW,
		Stride: stride, Padding: padding, Activation: activation,
	}
}

// MaxPool2D declares a max pooling layer. Stride 0 means the window
// size (non-overlapping pooling).
func MaxPool2D(windowH, windowW, stride int) layer.Config {
	return layer.MaxPool2DConfig{WindowH: windowH, WindowW: windowW, Stride: stride}
}

// Flatten declares a flatten layer.
func Flatten() layer.Config {
	return layer.FlattenConfig{}
}

// New builds a network from an ordered configuration list.
func New(configs []Config, opts Options) (*Network, error) {
	return net.New(configs, opts)
}

// FromCheckpoint rebuilds a network from a checkpoint record.
func FromCheckpoint(cp Checkpoint, opts Options) (*Network, error) {
	return net.FromCheckpoint(cp, opts)
}

// Load reads a checkpoint file and rebuilds the network.
func Load(filename string, opts Options) (*Network, error) {
	return net.Load(filename, opts)
}

// Values

// Vec wraps a flat vector as a network input.
func Vec(v []float64) Value { return layer.Vec(v) }

// FromTensor wraps a 4D tensor as a network input.
func FromTensor(t *Tensor) Value { return layer.FromTensor(t) }

// NewTensor creates a zero-filled [N,H,W,C] tensor.
func NewTensor(n, h, w, c int) *Tensor { return tensor.New(n, h, w, c) }

// NewTensorWithData creates a tensor backed by the given buffer.
func NewTensorWithData(n, h, w, c int, data []float64) (*Tensor, error) {
	return tensor.NewWithData(n, h, w, c, data)
}
