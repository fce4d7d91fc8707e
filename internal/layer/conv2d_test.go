package layer

import (
	"math"
	"testing"

	"github.com/andresilva/gocnn/internal/opt"
	"github.com/andresilva/gocnn/internal/tensor"
)

func newTestConv(t *testing.T) *Conv2D {
	t.Helper()
	// 3x3 single-channel input, 2x2 all-ones kernel, one filter,
	// identity activation. Every output is just the window sum.
	c, err := NewConv2D(3, 3, 1, 1, 2, 2, 1, "valid", "identity")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetKernel([]float64{1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetBiases([]float64{0}); err != nil {
		t.Fatal(err)
	}
	return c
}

func input3x3(t *testing.T) *tensor.Tensor {
	t.Helper()
	data := make([]float64, 9)
	for i := range data {
		data[i] = float64(i + 1)
	}
	ts, err := tensor.NewWithData(1, 3, 3, 1, data)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestConv2DForward(t *testing.T) {
	c := newTestConv(t)

	out, _, err := c.Forward(FromTensor(input3x3(t)))
	if err != nil {
		t.Fatal(err)
	}

	n, h, w, ch := out.T.Shape()
	if n != 1 || h != 2 || w != 2 || ch != 1 {
		t.Fatalf("Output shape = [%d,%d,%d,%d], expected [1,2,2,1]", n, h, w, ch)
	}

	// Window sums over 1..9.
	expected := []float64{12, 16, 24, 28}
	for i, v := range out.T.Data() {
		if math.Abs(v-expected[i]) > 1e-12 {
			t.Errorf("Output[%d] = %f, expected %f", i, v, expected[i])
		}
	}
}

func TestConv2DBackward(t *testing.T) {
	c := newTestConv(t)
	lr := 0.001
	sgd := opt.SGD{LearningRate: lr}

	_, cache, err := c.Forward(FromTensor(input3x3(t)))
	if err != nil {
		t.Fatal(err)
	}

	grad := tensor.New(1, 2, 2, 1)
	grad.Fill(1)
	gradIn, err := c.Backward(FromTensor(grad), cache, sgd)
	if err != nil {
		t.Fatal(err)
	}

	// With an all-ones kernel and dz = 1 everywhere, the input gradient
	// at each position equals the number of windows covering it.
	expectedIn := []float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}
	for i, v := range gradIn.T.Data() {
		if math.Abs(v-expectedIn[i]) > 1e-12 {
			t.Errorf("GradIn[%d] = %f, expected %f", i, v, expectedIn[i])
		}
	}

	// dK[ky,kx] = sum over windows of the covered input, i.e. the same
	// values the forward pass produced.
	expectedK := []float64{12, 16, 24, 28}
	for i, k := range c.Kernel() {
		want := 1 - lr*expectedK[i]
		if math.Abs(k-want) > 1e-12 {
			t.Errorf("Kernel[%d] = %f, expected %f", i, k, want)
		}
	}

	// dB = sum of dz over the four output positions.
	if b := c.Biases()[0]; math.Abs(b-(-lr*4)) > 1e-12 {
		t.Errorf("Bias = %f, expected %f", b, -lr*4)
	}
}

func TestConv2DSamePadding(t *testing.T) {
	c, err := NewConv2D(4, 4, 1, 2, 3, 3, 1, "same", "relu")
	if err != nil {
		t.Fatal(err)
	}

	// "same" with stride 1 preserves the spatial size.
	h, w, ch := c.OutShape()
	if h != 4 || w != 4 || ch != 2 {
		t.Errorf("OutShape = [%d,%d,%d], expected [4,4,2]", h, w, ch)
	}
	if pads := c.Pads(); pads != [4]int{1, 1, 1, 1} {
		t.Errorf("Pads = %v, expected [1,1,1,1]", pads)
	}
}

func TestConv2DSamePaddingEvenKernel(t *testing.T) {
	c, err := NewConv2D(4, 4, 1, 1, 2, 2, 1, "same", "identity")
	if err != nil {
		t.Fatal(err)
	}

	// Odd remainder goes to the bottom/right.
	if pads := c.Pads(); pads != [4]int{0, 1, 0, 1} {
		t.Errorf("Pads = %v, expected [0,1,0,1]", pads)
	}
	h, w, _ := c.OutShape()
	if h != 4 || w != 4 {
		t.Errorf("OutShape = [%d,%d], expected [4,4]", h, w)
	}
}

func TestConv2DErrors(t *testing.T) {
	if _, err := NewConv2D(3, 3, 1, 1, 2, 2, 1, "mirror", "identity"); err == nil {
		t.Error("Expected error for unknown padding mode, got nil")
	}
	if _, err := NewConv2D(3, 3, 1, 1, 2, 2, 1, "valid", "softmax"); err == nil {
		t.Error("Expected error for softmax on conv layer, got nil")
	}
	if _, err := NewConv2D(2, 2, 1, 1, 5, 5, 1, "valid", "identity"); err == nil {
		t.Error("Expected error for kernel larger than input, got nil")
	}
}

func TestConv2DForwardShapeMismatch(t *testing.T) {
	c := newTestConv(t)

	if _, _, err := c.Forward(Vec([]float64{1, 2, 3})); err == nil {
		t.Error("Expected error for vector input, got nil")
	}
	if _, _, err := c.Forward(FromTensor(tensor.New(1, 5, 5, 1))); err == nil {
		t.Error("Expected shape mismatch error, got nil")
	}
}
