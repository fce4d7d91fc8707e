package layer

import (
	"fmt"
	"math/rand"

	"github.com/andresilva/gocnn/internal/activations"
	"github.com/andresilva/gocnn/internal/opt"
	"github.com/andresilva/gocnn/internal/tensor"
)

// Conv2D implements a 2D convolutional layer over [N,H,W,C] tensors.
// The kernel tensor has shape [kH,kW,C_in,C_out], stored flattened in
// that major order; kernel and bias are updated in place during
// Backward.
type Conv2D struct {
	inH, inW, inC int
	filters       int
	kH, kW        int
	stride        int

	// Resolved pad offsets. "same" pads so stride-1 output matches the
	// input spatial size, with any odd remainder on the bottom/right.
	padding                              string
	padTop, padBottom, padLeft, padRight int

	outH, outW int

	kernel []float64
	bias   []float64

	actName string
	act     activations.Activation
}

// NewConv2D creates a convolutional layer, resolving the padding mode
// ("valid" or "same") into explicit pad offsets. Kernel entries are
// initialized to (U(0,1)-0.5)*0.1, biases to zero.
func NewConv2D(inH, inW, inC, filters, kH, kW, stride int, padding, activation string) (*Conv2D, error) {
	var padTop, padBottom, padLeft, padRight int
	switch padding {
	case "", "valid":
		padding = "valid"
	case "same":
		padTop = (kH - 1) / 2
		padBottom = kH - 1 - padTop
		padLeft = (kW - 1) / 2
		padRight = kW - 1 - padLeft
	default:
		return nil, fmt.Errorf("conv2d: unknown padding mode %q", padding)
	}

	c, err := NewConv2DWithPads(inH, inW, inC, filters, kH, kW, stride,
		padTop, padBottom, padLeft, padRight, activation)
	if err != nil {
		return nil, err
	}
	c.padding = padding
	return c, nil
}

// NewConv2DWithPads creates a convolutional layer with explicit pad
// offsets. Checkpoint restore uses this path so that restored geometry
// matches the persisted offsets verbatim instead of being re-derived
// from a padding mode.
func NewConv2DWithPads(inH, inW, inC, filters, kH, kW, stride,
	padTop, padBottom, padLeft, padRight int, activation string) (*Conv2D, error) {
	if stride <= 0 {
		stride = 1
	}
	if activation == "softmax" {
		return nil, fmt.Errorf("conv2d: softmax is only supported on dense layers")
	}
	act, err := activations.Get(activation)
	if err != nil {
		return nil, err
	}

	outH := (inH+padTop+padBottom-kH)/stride + 1
	outW := (inW+padLeft+padRight-kW)/stride + 1
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("conv2d: kernel %dx%d does not fit input %dx%d", kH, kW, inH, inW)
	}

	kernel := make([]float64, kH*kW*inC*filters)
	for i := range kernel {
		kernel[i] = (rand.Float64() - 0.5) * 0.1
	}

	return &Conv2D{
		inH: inH, inW: inW, inC: inC,
		filters: filters,
		kH:      kH, kW: kW,
		stride:  stride,
		padding: "valid",
		padTop:  padTop, padBottom: padBottom,
		padLeft: padLeft, padRight: padRight,
		outH: outH, outW: outW,
		kernel:  kernel,
		bias:    make([]float64, filters),
		actName: activation,
		act:     act,
	}, nil
}

// OutShape returns the output spatial dimensions and channel count.
func (c *Conv2D) OutShape() (h, w, ch int) { return c.outH, c.outW, c.filters }

// InShape returns the expected input spatial dimensions and channels.
func (c *Conv2D) InShape() (h, w, ch int) { return c.inH, c.inW, c.inC }

// Filters returns the number of output channels.
func (c *Conv2D) Filters() int { return c.filters }

// KernelSize returns the kernel spatial dimensions.
func (c *Conv2D) KernelSize() (kh, kw int) { return c.kH, c.kW }

// Stride returns the convolution stride.
func (c *Conv2D) Stride() int { return c.stride }

// Padding returns the padding mode the layer was configured with.
func (c *Conv2D) Padding() string { return c.padding }

// Pads returns the resolved pad offsets [top, bottom, left, right].
func (c *Conv2D) Pads() [4]int {
	return [4]int{c.padTop, c.padBottom, c.padLeft, c.padRight}
}

// Activation returns the activation identifier.
func (c *Conv2D) Activation() string { return c.actName }

// Kernel returns a copy of the flattened [kH,kW,C_in,C_out] kernel.
func (c *Conv2D) Kernel() []float64 {
	out := make([]float64, len(c.kernel))
	copy(out, c.kernel)
	return out
}

// Biases returns a copy of the bias vector.
func (c *Conv2D) Biases() []float64 {
	out := make([]float64, len(c.bias))
	copy(out, c.bias)
	return out
}

// SetKernel overwrites the kernel in place.
func (c *Conv2D) SetKernel(k []float64) error {
	if len(k) != len(c.kernel) {
		return fmt.Errorf("conv2d: %w: expected %d kernel values, got %d", ErrShapeMismatch, len(c.kernel), len(k))
	}
	copy(c.kernel, k)
	return nil
}

// SetBiases overwrites the bias vector in place.
func (c *Conv2D) SetBiases(b []float64) error {
	if len(b) != len(c.bias) {
		return fmt.Errorf("conv2d: %w: expected %d biases, got %d", ErrShapeMismatch, len(c.bias), len(b))
	}
	copy(c.bias, b)
	return nil
}

// kernelIndex returns the flat index into the [kH,kW,C_in,C_out] kernel.
func (c *Conv2D) kernelIndex(ky, kx, ci, f int) int {
	return ((ky*c.kW+kx)*c.inC+ci)*c.filters + f
}

type convCache struct {
	input  *tensor.Tensor // un-padded input
	padded *tensor.Tensor
	output *tensor.Tensor // post-activation output
}

func (*convCache) isCache() {}

// Forward pads the input per the resolved offsets and accumulates
// bias[f] + sum over (ky,kx,ci) of padded * kernel for every output
// position, then applies the activation.
func (c *Conv2D) Forward(x Value) (Value, Cache, error) {
	if !x.IsTensor() {
		return Value{}, nil, fmt.Errorf("conv2d: %w: requires a 4D tensor input", ErrUnsupported)
	}
	n, h, w, ch := x.T.Shape()
	if h != c.inH || w != c.inW || ch != c.inC {
		return Value{}, nil, fmt.Errorf("conv2d: %w: expected input [%d,%d,%d], got [%d,%d,%d]",
			ErrShapeMismatch, c.inH, c.inW, c.inC, h, w, ch)
	}

	padded := x.T.Pad(c.padTop, c.padBottom, c.padLeft, c.padRight)
	out := tensor.New(n, c.outH, c.outW, c.filters)

	for b := 0; b < n; b++ {
		for oy := 0; oy < c.outH; oy++ {
			for ox := 0; ox < c.outW; ox++ {
				for f := 0; f < c.filters; f++ {
					sum := c.bias[f]
					for ky := 0; ky < c.kH; ky++ {
						for kx := 0; kx < c.kW; kx++ {
							for ci := 0; ci < c.inC; ci++ {
								sum += padded.At(b, oy*c.stride+ky, ox*c.stride+kx, ci) *
									c.kernel[c.kernelIndex(ky, kx, ci, f)]
							}
						}
					}
					out.Set(b, oy, ox, f, c.act.Activate(sum))
				}
			}
		}
	}

	cache := &convCache{input: x.T, padded: padded, output: out}
	return FromTensor(out), cache, nil
}

// Backward accumulates kernel, bias and padded-input gradients over
// every (batch, output position, output channel, kernel position,
// input channel) combination, crops the padded-input gradient back to
// the un-padded region, and applies the SGD updates in place.
func (c *Conv2D) Backward(grad Value, cache Cache, sgd opt.SGD) (Value, error) {
	cc, ok := cache.(*convCache)
	if !ok {
		panic("conv2d: backward called with foreign cache")
	}
	if !grad.IsTensor() {
		return Value{}, fmt.Errorf("conv2d: %w: expected a 4D tensor gradient", ErrShapeMismatch)
	}
	gt := grad.T
	n, _, _, _ := gt.Shape()

	gradKernel := make([]float64, len(c.kernel))
	gradBias := make([]float64, len(c.bias))
	pn, ph, pw, pc := cc.padded.Shape()
	dPadded := tensor.New(pn, ph, pw, pc)

	for b := 0; b < n; b++ {
		for oy := 0; oy < c.outH; oy++ {
			for ox := 0; ox < c.outW; ox++ {
				for f := 0; f < c.filters; f++ {
					dz := gt.At(b, oy, ox, f) * c.act.Derivative(cc.output.At(b, oy, ox, f))
					gradBias[f] += dz
					for ky := 0; ky < c.kH; ky++ {
						py := oy*c.stride + ky
						for kx := 0; kx < c.kW; kx++ {
							px := ox*c.stride + kx
							for ci := 0; ci < c.inC; ci++ {
								ki := c.kernelIndex(ky, kx, ci, f)
								gradKernel[ki] += cc.padded.At(b, py, px, ci) * dz
								dPadded.Set(b, py, px, ci,
									dPadded.At(b, py, px, ci)+c.kernel[ki]*dz)
							}
						}
					}
				}
			}
		}
	}

	// Undo the forward pad: crop the gradient to the input region.
	gradIn := tensor.New(n, c.inH, c.inW, c.inC)
	for b := 0; b < n; b++ {
		for y := 0; y < c.inH; y++ {
			for x := 0; x < c.inW; x++ {
				for ci := 0; ci < c.inC; ci++ {
					gradIn.Set(b, y, x, ci, dPadded.At(b, y+c.padTop, x+c.padLeft, ci))
				}
			}
		}
	}

	sgd.StepInPlace(c.kernel, gradKernel)
	sgd.StepInPlace(c.bias, gradBias)

	return FromTensor(gradIn), nil
}
