package layer

import (
	"fmt"
	"math"

	"github.com/andresilva/gocnn/internal/opt"
	"github.com/andresilva/gocnn/internal/tensor"
)

// MaxPool2D downsamples by taking the maximum over sliding windows,
// recording the flat source index of each maximum so the backward pass
// routes every output gradient to exactly one input position.
type MaxPool2D struct {
	inH, inW, inC    int
	windowH, windowW int
	strideH, strideW int
	outH, outW       int
}

// NewMaxPool2D creates a max pooling layer. A non-positive stride
// defaults to the window size, giving non-overlapping pooling.
func NewMaxPool2D(inH, inW, inC, windowH, windowW, stride int) (*MaxPool2D, error) {
	strideH, strideW := stride, stride
	if stride <= 0 {
		strideH, strideW = windowH, windowW
	}
	return NewMaxPool2DWithStrides(inH, inW, inC, windowH, windowW, strideH, strideW)
}

// NewMaxPool2DWithStrides creates a max pooling layer with explicit
// per-dimension strides. Checkpoint restore uses this path.
func NewMaxPool2DWithStrides(inH, inW, inC, windowH, windowW, strideH, strideW int) (*MaxPool2D, error) {
	outH := (inH-windowH)/strideH + 1
	outW := (inW-windowW)/strideW + 1
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("maxpool2d: window %dx%d does not fit input %dx%d", windowH, windowW, inH, inW)
	}
	return &MaxPool2D{
		inH: inH, inW: inW, inC: inC,
		windowH: windowH, windowW: windowW,
		strideH: strideH, strideW: strideW,
		outH: outH, outW: outW,
	}, nil
}

// OutShape returns the output spatial dimensions and channel count.
func (m *MaxPool2D) OutShape() (h, w, c int) { return m.outH, m.outW, m.inC }

// InShape returns the expected input spatial dimensions and channels.
func (m *MaxPool2D) InShape() (h, w, c int) { return m.inH, m.inW, m.inC }

// Window returns the pooling window dimensions.
func (m *MaxPool2D) Window() (h, w int) { return m.windowH, m.windowW }

// Strides returns the pooling strides.
func (m *MaxPool2D) Strides() (h, w int) { return m.strideH, m.strideW }

type poolCache struct {
	inDims [4]int
	argmax []int // flat source index per output position
}

func (*poolCache) isCache() {}

// Forward max-pools each channel and records the argmax mask.
func (m *MaxPool2D) Forward(x Value) (Value, Cache, error) {
	if !x.IsTensor() {
		return Value{}, nil, fmt.Errorf("maxpool2d: %w: requires a 4D tensor input", ErrUnsupported)
	}
	n, h, w, c := x.T.Shape()
	if h != m.inH || w != m.inW || c != m.inC {
		return Value{}, nil, fmt.Errorf("maxpool2d: %w: expected input [%d,%d,%d], got [%d,%d,%d]",
			ErrShapeMismatch, m.inH, m.inW, m.inC, h, w, c)
	}

	out := tensor.New(n, m.outH, m.outW, m.inC)
	argmax := make([]int, n*m.outH*m.outW*m.inC)

	pos := 0
	for b := 0; b < n; b++ {
		for oy := 0; oy < m.outH; oy++ {
			for ox := 0; ox < m.outW; ox++ {
				for ch := 0; ch < m.inC; ch++ {
					maxVal := math.Inf(-1)
					maxIdx := -1
					for wy := 0; wy < m.windowH; wy++ {
						for wx := 0; wx < m.windowW; wx++ {
							idx := x.T.Index(b, oy*m.strideH+wy, ox*m.strideW+wx, ch)
							if v := x.T.Data()[idx]; v > maxVal {
								maxVal = v
								maxIdx = idx
							}
						}
					}
					out.Set(b, oy, ox, ch, maxVal)
					argmax[pos] = maxIdx
					pos++
				}
			}
		}
	}

	cache := &poolCache{inDims: x.T.Dims(), argmax: argmax}
	return FromTensor(out), cache, nil
}

// Backward scatters each output gradient to the input position recorded
// in the forward argmax mask; all other positions receive zero.
func (m *MaxPool2D) Backward(grad Value, cache Cache, _ opt.SGD) (Value, error) {
	pc, ok := cache.(*poolCache)
	if !ok {
		panic("maxpool2d: backward called with foreign cache")
	}
	if !grad.IsTensor() {
		return Value{}, fmt.Errorf("maxpool2d: %w: expected a 4D tensor gradient", ErrShapeMismatch)
	}

	d := pc.inDims
	gradIn := tensor.New(d[0], d[1], d[2], d[3])
	src := grad.T.Data()
	if len(src) != len(pc.argmax) {
		return Value{}, fmt.Errorf("maxpool2d: %w: gradient size %d does not match %d pooled positions",
			ErrShapeMismatch, len(src), len(pc.argmax))
	}
	dst := gradIn.Data()
	for i, idx := range pc.argmax {
		dst[idx] += src[i]
	}
	return FromTensor(gradIn), nil
}
