package layer

import (
	"math"
	"testing"

	"github.com/andresilva/gocnn/internal/opt"
)

func newTestDense(t *testing.T, in, out int, activation string, weights, biases []float64) *Dense {
	t.Helper()
	d, err := NewDense(in, out, activation)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetWeights(weights); err != nil {
		t.Fatal(err)
	}
	if err := d.SetBiases(biases); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDenseForward(t *testing.T) {
	// W = [[1,2],[3,4]] (row-major, output-major), b = [0.5,-0.5]
	d := newTestDense(t, 2, 2, "identity", []float64{1, 2, 3, 4}, []float64{0.5, -0.5})

	out, _, err := d.Forward(Vec([]float64{1, 1}))
	if err != nil {
		t.Fatal(err)
	}

	// z = [1+2+0.5, 3+4-0.5] = [3.5, 6.5]
	expected := []float64{3.5, 6.5}
	for i := range expected {
		if math.Abs(out.Vec[i]-expected[i]) > 1e-12 {
			t.Errorf("Output[%d] = %f, expected %f", i, out.Vec[i], expected[i])
		}
	}
}

func TestDenseForwardShapeMismatch(t *testing.T) {
	d := newTestDense(t, 2, 1, "identity", []float64{1, 1}, []float64{0})
	if _, _, err := d.Forward(Vec([]float64{1, 2, 3})); err == nil {
		t.Error("Expected shape mismatch error, got nil")
	}
}

func TestDenseSoftmax(t *testing.T) {
	d := newTestDense(t, 2, 3, "softmax",
		[]float64{1, 0, 0, 1, 1, 1}, []float64{0, 0, 0})

	out, _, err := d.Forward(Vec([]float64{2, 3}))
	if err != nil {
		t.Fatal(err)
	}

	var sum float64
	for i, v := range out.Vec {
		if v < 0 {
			t.Errorf("Softmax output[%d] = %f, expected non-negative", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("Softmax sum = %f, expected 1", sum)
	}
}

func TestDenseBackward(t *testing.T) {
	// Identity activation keeps the arithmetic transparent.
	d := newTestDense(t, 2, 2, "identity", []float64{1, 2, 3, 4}, []float64{0.5, -0.5})
	sgd := opt.SGD{LearningRate: 0.1}

	x := []float64{1, 1}
	_, cache, err := d.Forward(Vec(x))
	if err != nil {
		t.Fatal(err)
	}

	gradIn, err := d.Backward(Vec([]float64{1, -1}), cache, sgd)
	if err != nil {
		t.Fatal(err)
	}

	// dz = [1,-1]; dX = W^T dz = [1-3, 2-4] = [-2,-2], clipped to [-1,-1].
	expectedIn := []float64{-1, -1}
	for i := range expectedIn {
		if math.Abs(gradIn.Vec[i]-expectedIn[i]) > 1e-12 {
			t.Errorf("GradIn[%d] = %f, expected %f", i, gradIn.Vec[i], expectedIn[i])
		}
	}

	// dW = dz ⊗ x = [[1,1],[-1,-1]]; W' = W - 0.1*dW.
	expectedW := []float64{0.9, 1.9, 3.1, 4.1}
	for i, w := range d.Weights() {
		if math.Abs(w-expectedW[i]) > 1e-12 {
			t.Errorf("W[%d] = %f, expected %f", i, w, expectedW[i])
		}
	}

	// B' = B - 0.1*dz.
	expectedB := []float64{0.4, -0.4}
	for i, b := range d.Biases() {
		if math.Abs(b-expectedB[i]) > 1e-12 {
			t.Errorf("B[%d] = %f, expected %f", i, b, expectedB[i])
		}
	}
}

// TestDenseGradientClipping verifies that no gradient value used in a
// weight update exceeds magnitude 1, even for adversarially large
// inputs and incoming gradients.
func TestDenseGradientClipping(t *testing.T) {
	d := newTestDense(t, 2, 2, "identity", []float64{1, 2, 3, 4}, []float64{0, 0})
	lr := 0.1
	sgd := opt.SGD{LearningRate: lr}

	before := d.Weights()
	biasBefore := d.Biases()

	_, cache, err := d.Forward(Vec([]float64{1e6, -1e6}))
	if err != nil {
		t.Fatal(err)
	}
	gradIn, err := d.Backward(Vec([]float64{1e9, -1e9}), cache, sgd)
	if err != nil {
		t.Fatal(err)
	}

	// Each weight moved by at most lr * 1.
	for i, w := range d.Weights() {
		if math.Abs(w-before[i]) > lr+1e-12 {
			t.Errorf("Weight %d moved by %g, clip allows at most %g", i, math.Abs(w-before[i]), lr)
		}
	}
	for i, b := range d.Biases() {
		if math.Abs(b-biasBefore[i]) > lr+1e-12 {
			t.Errorf("Bias %d moved by %g, clip allows at most %g", i, math.Abs(b-biasBefore[i]), lr)
		}
	}
	for i, g := range gradIn.Vec {
		if math.Abs(g) > 1 {
			t.Errorf("GradIn[%d] = %g, expected magnitude <= 1", i, g)
		}
	}
}

func TestDenseRejectsUnknownActivation(t *testing.T) {
	if _, err := NewDense(2, 2, "swish"); err == nil {
		t.Error("Expected error for unknown activation, got nil")
	}
}
