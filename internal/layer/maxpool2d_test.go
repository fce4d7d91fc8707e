package layer

import (
	"math"
	"testing"

	"github.com/andresilva/gocnn/internal/opt"
	"github.com/andresilva/gocnn/internal/tensor"
)

func input4x4(t *testing.T) *tensor.Tensor {
	t.Helper()
	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i + 1)
	}
	ts, err := tensor.NewWithData(1, 4, 4, 1, data)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestMaxPool2DForward(t *testing.T) {
	m, err := NewMaxPool2D(4, 4, 1, 2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	out, _, err := m.Forward(FromTensor(input4x4(t)))
	if err != nil {
		t.Fatal(err)
	}

	n, h, w, c := out.T.Shape()
	if n != 1 || h != 2 || w != 2 || c != 1 {
		t.Fatalf("Output shape = [%d,%d,%d,%d], expected [1,2,2,1]", n, h, w, c)
	}

	expected := []float64{6, 8, 14, 16}
	for i, v := range out.T.Data() {
		if v != expected[i] {
			t.Errorf("Output[%d] = %f, expected %f", i, v, expected[i])
		}
	}
}

func TestMaxPool2DBackwardRouting(t *testing.T) {
	m, err := NewMaxPool2D(4, 4, 1, 2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	_, cache, err := m.Forward(FromTensor(input4x4(t)))
	if err != nil {
		t.Fatal(err)
	}

	grad, err := tensor.NewWithData(1, 2, 2, 1, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	gradIn, err := m.Backward(FromTensor(grad), cache, opt.SGD{})
	if err != nil {
		t.Fatal(err)
	}

	// Each gradient lands exactly on the position of its window maximum:
	// flat indices 5, 7, 13, 15.
	routed := map[int]float64{5: 1, 7: 2, 13: 3, 15: 4}
	var sum float64
	for i, v := range gradIn.T.Data() {
		want := routed[i]
		if v != want {
			t.Errorf("GradIn[%d] = %f, expected %f", i, v, want)
		}
		sum += v
	}

	// Non-overlapping windows conserve the gradient mass.
	if math.Abs(sum-10) > 1e-12 {
		t.Errorf("Gradient sum = %f, expected 10", sum)
	}
}

func TestMaxPool2DDefaultStride(t *testing.T) {
	// Stride <= 0 defaults to the window size per dimension.
	m, err := NewMaxPool2D(6, 4, 3, 3, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	sh, sw := m.Strides()
	if sh != 3 || sw != 2 {
		t.Errorf("Strides = (%d,%d), expected (3,2)", sh, sw)
	}
	h, w, c := m.OutShape()
	if h != 2 || w != 2 || c != 3 {
		t.Errorf("OutShape = [%d,%d,%d], expected [2,2,3]", h, w, c)
	}
}

func TestMaxPool2DErrors(t *testing.T) {
	if _, err := NewMaxPool2D(2, 2, 1, 4, 4, 1); err == nil {
		t.Error("Expected error for window larger than input, got nil")
	}

	m, err := NewMaxPool2D(4, 4, 1, 2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Forward(Vec([]float64{1, 2})); err == nil {
		t.Error("Expected error for vector input, got nil")
	}
	if _, _, err := m.Forward(FromTensor(tensor.New(1, 3, 3, 1))); err == nil {
		t.Error("Expected shape mismatch error, got nil")
	}
}
