package layer

import (
	"fmt"

	"github.com/andresilva/gocnn/internal/opt"
	"github.com/andresilva/gocnn/internal/tensor"
)

// Flatten collapses a single-sample spatial volume into a flat vector,
// the bridge between convolutional and dense layers.
type Flatten struct {
	inH, inW, inC int
	outSize       int
}

// NewFlatten creates a flatten layer for the given input volume.
func NewFlatten(inH, inW, inC int) *Flatten {
	return &Flatten{inH: inH, inW: inW, inC: inC, outSize: inH * inW * inC}
}

// OutSize returns the flattened output size.
func (f *Flatten) OutSize() int { return f.outSize }

// InShape returns the expected input spatial dimensions and channels.
func (f *Flatten) InShape() (h, w, c int) { return f.inH, f.inW, f.inC }

type flattenCache struct {
	dims [4]int // pre-flatten shape
}

func (*flattenCache) isCache() {}

// Forward flattens the spatial/channel volume into a single vector.
// The batch size must be exactly 1.
func (f *Flatten) Forward(x Value) (Value, Cache, error) {
	if !x.IsTensor() {
		return Value{}, nil, fmt.Errorf("flatten: %w: requires a 4D tensor input", ErrUnsupported)
	}
	n, h, w, c := x.T.Shape()
	if n != 1 {
		return Value{}, nil, fmt.Errorf("flatten: %w: batch size must be 1, got %d", ErrUnsupported, n)
	}
	if h != f.inH || w != f.inW || c != f.inC {
		return Value{}, nil, fmt.Errorf("flatten: %w: expected input [%d,%d,%d], got [%d,%d,%d]",
			ErrShapeMismatch, f.inH, f.inW, f.inC, h, w, c)
	}
	out := x.T.Flatten()[0]
	return Vec(out), &flattenCache{dims: x.T.Dims()}, nil
}

// Backward reshapes the incoming vector gradient into the cached
// pre-flatten shape.
func (f *Flatten) Backward(grad Value, cache Cache, _ opt.SGD) (Value, error) {
	fc, ok := cache.(*flattenCache)
	if !ok {
		panic("flatten: backward called with foreign cache")
	}
	if grad.IsTensor() {
		return Value{}, fmt.Errorf("flatten: %w: expected a vector gradient", ErrShapeMismatch)
	}
	d := fc.dims
	buf := make([]float64, len(grad.Vec))
	copy(buf, grad.Vec)
	t, err := tensor.NewWithData(d[0], d[1], d[2], d[3], buf)
	if err != nil {
		return Value{}, fmt.Errorf("flatten: %w: gradient size %d does not match shape %v",
			ErrShapeMismatch, len(grad.Vec), d)
	}
	return FromTensor(t), nil
}
