package layer

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/andresilva/gocnn/internal/activations"
	"github.com/andresilva/gocnn/internal/opt"
)

// Dense is a fully connected layer.
// The weight matrix is outSize x inSize, row-major and output-major;
// it and the bias vector are the layer's owned parameters, mutated in
// place by the SGD update during Backward.
type Dense struct {
	inSize  int
	outSize int

	weights *mat.Dense
	bias    *mat.VecDense

	actName string
	act     activations.Activation // nil when actName == "softmax"
}

// NewDense creates a dense layer with Xavier-style initialization:
// weights in (U(0,1)-0.5)*sqrt(2/(in+out)), biases in (U(0,1)-0.5)*0.1.
func NewDense(in, out int, activation string) (*Dense, error) {
	var act activations.Activation
	if activation != "softmax" {
		var err error
		act, err = activations.Get(activation)
		if err != nil {
			return nil, err
		}
	}

	weights := make([]float64, out*in)
	scale := math.Sqrt(2 / float64(in+out))
	for i := range weights {
		weights[i] = (rand.Float64() - 0.5) * scale
	}
	biases := make([]float64, out)
	for i := range biases {
		biases[i] = (rand.Float64() - 0.5) * 0.1
	}

	return &Dense{
		inSize:  in,
		outSize: out,
		weights: mat.NewDense(out, in, weights),
		bias:    mat.NewVecDense(out, biases),
		actName: activation,
		act:     act,
	}, nil
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int { return d.inSize }

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int { return d.outSize }

// Activation returns the activation identifier.
func (d *Dense) Activation() string { return d.actName }

// Weights returns a copy of the flattened row-major weight matrix.
func (d *Dense) Weights() []float64 {
	raw := d.weights.RawMatrix().Data
	out := make([]float64, len(raw))
	copy(out, raw)
	return out
}

// Biases returns a copy of the bias vector.
func (d *Dense) Biases() []float64 {
	raw := d.bias.RawVector().Data
	out := make([]float64, len(raw))
	copy(out, raw)
	return out
}

// SetWeights overwrites the weight matrix in place.
func (d *Dense) SetWeights(w []float64) error {
	raw := d.weights.RawMatrix().Data
	if len(w) != len(raw) {
		return fmt.Errorf("dense: %w: expected %d weights, got %d", ErrShapeMismatch, len(raw), len(w))
	}
	copy(raw, w)
	return nil
}

// SetBiases overwrites the bias vector in place.
func (d *Dense) SetBiases(b []float64) error {
	raw := d.bias.RawVector().Data
	if len(b) != len(raw) {
		return fmt.Errorf("dense: %w: expected %d biases, got %d", ErrShapeMismatch, len(raw), len(b))
	}
	copy(raw, b)
	return nil
}

type denseCache struct {
	input  []float64 // raw input vector
	preAct []float64 // z = Wx + b
	output []float64 // activation(z)
}

func (*denseCache) isCache() {}

// Forward computes z = Wx + b and applies the activation elementwise,
// or a numerically stabilized softmax when the activation identifier
// is "softmax". A 4D tensor input contributes only its first batch
// element, flattened.
func (d *Dense) Forward(x Value) (Value, Cache, error) {
	vec := x.Vec
	if x.IsTensor() {
		vec = x.T.Flatten()[0]
	}
	if len(vec) != d.inSize {
		return Value{}, nil, fmt.Errorf("dense: %w: expected input of size %d, got %d", ErrShapeMismatch, d.inSize, len(vec))
	}

	input := make([]float64, d.inSize)
	copy(input, vec)

	var z mat.VecDense
	z.MulVec(d.weights, mat.NewVecDense(d.inSize, input))
	z.AddVec(&z, d.bias)

	preAct := make([]float64, d.outSize)
	copy(preAct, z.RawVector().Data)

	output := make([]float64, d.outSize)
	if d.actName == "softmax" {
		softmax(preAct, output)
	} else {
		for i, v := range preAct {
			output[i] = d.act.Activate(v)
		}
	}

	cache := &denseCache{input: input, preAct: preAct, output: output}
	return Vec(output), cache, nil
}

// Backward computes parameter and input gradients, clamps every
// gradient value to [-1, 1], and applies the SGD update in place.
// In the softmax case the incoming gradient is used directly as dZ:
// the softmax+cross-entropy shortcut seeds it pre-combined.
func (d *Dense) Backward(grad Value, cache Cache, sgd opt.SGD) (Value, error) {
	dc, ok := cache.(*denseCache)
	if !ok {
		panic("dense: backward called with foreign cache")
	}
	g := grad.Vec
	if grad.IsTensor() || len(g) != d.outSize {
		return Value{}, fmt.Errorf("dense: %w: expected gradient of size %d", ErrShapeMismatch, d.outSize)
	}

	dz := make([]float64, d.outSize)
	if d.actName == "softmax" {
		for i := range dz {
			dz[i] = clip(g[i])
		}
	} else {
		for i := range dz {
			dz[i] = clip(g[i] * d.act.Derivative(dc.output[i]))
		}
	}

	gradW := make([]float64, d.outSize*d.inSize)
	for o := 0; o < d.outSize; o++ {
		base := o * d.inSize
		for j := 0; j < d.inSize; j++ {
			gradW[base+j] = clip(dz[o] * dc.input[j])
		}
	}

	// Input gradient uses the pre-update weights.
	var dx mat.VecDense
	dx.MulVec(d.weights.T(), mat.NewVecDense(d.outSize, dz))
	gradIn := make([]float64, d.inSize)
	for j, v := range dx.RawVector().Data {
		gradIn[j] = clip(v)
	}

	sgd.StepInPlace(d.weights.RawMatrix().Data, gradW)
	sgd.StepInPlace(d.bias.RawVector().Data, dz)

	return Vec(gradIn), nil
}

// softmax writes the stabilized softmax of z into out:
// the max is subtracted before exponentiating, and the result is
// normalized to sum 1.
func softmax(z, out []float64) {
	maxVal := z[0]
	for _, v := range z[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
}
