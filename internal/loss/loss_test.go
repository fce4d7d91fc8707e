package loss

import (
	"math"
	"testing"
)

func TestGetUnknown(t *testing.T) {
	if _, err := Get("hinge"); err == nil {
		t.Error("Expected error for unknown loss, got nil")
	}
}

func TestGetEmptyIsMSE(t *testing.T) {
	l, err := Get("")
	if err != nil {
		t.Fatal(err)
	}
	if l.Name() != "mean_squared_error" {
		t.Errorf("Get(\"\") = %s, expected mean_squared_error", l.Name())
	}
}

func TestMSEForward(t *testing.T) {
	l := MSE{}
	// ((1-0)^2 + (0-1)^2) / 2 = 1
	got := l.Forward([]float64{1, 0}, []float64{0, 1})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("MSE = %f, expected 1", got)
	}
}

func TestMSEBackward(t *testing.T) {
	l := MSE{}
	grad := l.Backward([]float64{1, 0}, []float64{0, 1})
	// (2/2) * (p - y)
	expected := []float64{1, -1}
	for i := range expected {
		if math.Abs(grad[i]-expected[i]) > 1e-12 {
			t.Errorf("Grad[%d] = %f, expected %f", i, grad[i], expected[i])
		}
	}
}

func TestBinaryCrossEntropyClamping(t *testing.T) {
	l := BinaryCrossEntropy{}

	// Exact 0/1 predictions must not produce infinities.
	v := l.Forward([]float64{0, 1}, []float64{1, 0})
	if math.IsInf(v, 0) || math.IsNaN(v) {
		t.Errorf("BCE with saturated predictions = %f, expected finite", v)
	}

	grad := l.Backward([]float64{0, 1}, []float64{1, 0})
	for i, g := range grad {
		if math.IsInf(g, 0) || math.IsNaN(g) {
			t.Errorf("Grad[%d] = %f, expected finite", i, g)
		}
	}
}

func TestBinaryCrossEntropyValue(t *testing.T) {
	l := BinaryCrossEntropy{}
	// -(log(0.8) + log(0.7)) / 2
	got := l.Forward([]float64{0.8, 0.3}, []float64{1, 0})
	want := -(math.Log(0.8) + math.Log(0.7)) / 2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("BCE = %f, expected %f", got, want)
	}
}

func TestCategoricalCrossEntropyValue(t *testing.T) {
	l := CategoricalCrossEntropy{}
	got := l.Forward([]float64{0.1, 0.7, 0.2}, []float64{0, 1, 0})
	want := -math.Log(0.7)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("CCE = %f, expected %f", got, want)
	}
}

// TestBackwardNumeric checks every registered loss gradient against a
// central-difference approximation of its forward function.
func TestBackwardNumeric(t *testing.T) {
	yPred := []float64{0.3, 0.6, 0.1}
	yTrue := []float64{0, 1, 0}

	const h = 1e-7
	const tol = 1e-4

	for name := range registry {
		l, _ := Get(name)
		grad := l.Backward(yPred, yTrue)
		for i := range yPred {
			plus := make([]float64, len(yPred))
			minus := make([]float64, len(yPred))
			copy(plus, yPred)
			copy(minus, yPred)
			plus[i] += h
			minus[i] -= h
			numeric := (l.Forward(plus, yTrue) - l.Forward(minus, yTrue)) / (2 * h)
			if math.Abs(grad[i]-numeric) > tol {
				t.Errorf("%s: grad[%d] = %g, numeric %g", name, i, grad[i], numeric)
			}
		}
	}
}

func TestLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on length mismatch")
		}
	}()
	MSE{}.Forward([]float64{1, 2}, []float64{1})
}
