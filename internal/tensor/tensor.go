// Package tensor provides a 4-dimensional numeric buffer with row-major
// strides, the data type threaded through convolutional layers.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// PoolMode selects the reduction used by Pool2D.
type PoolMode int

const (
	MaxPool PoolMode = iota
	AvgPool
)

// Tensor is a [N,H,W,C] buffer stored row-major, channel-last.
// The flat buffer length always equals N*H*W*C; coordinate access is
// derived from strides and is not bounds-checked against the caller.
type Tensor struct {
	shape   [4]int
	strides [4]int
	data    []float64
}

// New creates a zero-filled tensor with the given shape.
func New(n, h, w, c int) *Tensor {
	t := &Tensor{shape: [4]int{n, h, w, c}}
	t.strides = [4]int{h * w * c, w * c, c, 1}
	t.data = make([]float64, n*h*w*c)
	return t
}

// NewWithData creates a tensor backed by the given buffer.
// The buffer is used directly, not copied.
func NewWithData(n, h, w, c int, data []float64) (*Tensor, error) {
	if len(data) != n*h*w*c {
		return nil, fmt.Errorf("tensor: buffer length %d does not match shape [%d,%d,%d,%d]",
			len(data), n, h, w, c)
	}
	t := New(n, h, w, c)
	t.data = data
	return t, nil
}

// Shape returns the tensor dimensions [N,H,W,C].
func (t *Tensor) Shape() (n, h, w, c int) {
	return t.shape[0], t.shape[1], t.shape[2], t.shape[3]
}

// Dims returns the shape as an array.
func (t *Tensor) Dims() [4]int {
	return t.shape
}

// Data returns the underlying flat buffer.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Index returns the flat buffer index of a 4D coordinate.
func (t *Tensor) Index(n, y, x, c int) int {
	return n*t.strides[0] + y*t.strides[1] + x*t.strides[2] + c*t.strides[3]
}

// At returns the value at a 4D coordinate.
func (t *Tensor) At(n, y, x, c int) float64 {
	return t.data[t.Index(n, y, x, c)]
}

// Set stores a value at a 4D coordinate.
func (t *Tensor) Set(n, y, x, c int, v float64) {
	t.data[t.Index(n, y, x, c)] = v
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	n, h, w, c := t.Shape()
	out := New(n, h, w, c)
	copy(out.data, t.data)
	return out
}

// Pad returns a new tensor with a zero border added to the spatial
// dimensions and the original copied into the offset interior.
func (t *Tensor) Pad(top, bottom, left, right int) *Tensor {
	n, h, w, c := t.Shape()
	out := New(n, h+top+bottom, w+left+right, c)
	for b := 0; b < n; b++ {
		for y := 0; y < h; y++ {
			src := t.Index(b, y, 0, 0)
			dst := out.Index(b, y+top, left, 0)
			copy(out.data[dst:dst+w*c], t.data[src:src+w*c])
		}
	}
	return out
}

// SliceWindow copies a channel-interleaved h*w window with top-left
// corner (y,x) of batch element n into a flat buffer.
func (t *Tensor) SliceWindow(n, y, x, h, w int) []float64 {
	c := t.shape[3]
	out := make([]float64, 0, h*w*c)
	for wy := 0; wy < h; wy++ {
		src := t.Index(n, y+wy, x, 0)
		out = append(out, t.data[src:src+w*c]...)
	}
	return out
}

// Pool2D reduces the spatial dimensions with a sliding window.
// This is a convenience op; layer-level max pooling additionally tracks
// argmax indices for gradient routing.
func (t *Tensor) Pool2D(windowH, windowW, strideH, strideW int, mode PoolMode) *Tensor {
	n, h, w, c := t.Shape()
	outH := (h-windowH)/strideH + 1
	outW := (w-windowW)/strideW + 1
	out := New(n, outH, outW, c)

	window := make([]float64, windowH*windowW)
	for b := 0; b < n; b++ {
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				for ch := 0; ch < c; ch++ {
					k := 0
					for wy := 0; wy < windowH; wy++ {
						for wx := 0; wx < windowW; wx++ {
							window[k] = t.At(b, oy*strideH+wy, ox*strideW+wx, ch)
							k++
						}
					}
					var v float64
					switch mode {
					case AvgPool:
						v = floats.Sum(window) / float64(len(window))
					default:
						v = floats.Max(window)
					}
					out.Set(b, oy, ox, ch, v)
				}
			}
		}
	}
	return out
}

// Flatten returns one flat buffer per batch element.
// The buffers are copies of the underlying data.
func (t *Tensor) Flatten() [][]float64 {
	n := t.shape[0]
	per := t.strides[0]
	out := make([][]float64, n)
	for b := 0; b < n; b++ {
		buf := make([]float64, per)
		copy(buf, t.data[b*per:(b+1)*per])
		out[b] = buf
	}
	return out
}
