package layer

import (
	"testing"

	"github.com/andresilva/gocnn/internal/tensor"
)

func TestNewInputShapeValidation(t *testing.T) {
	if _, err := NewInput([]int{2, 3}); err == nil {
		t.Error("Expected error for 2-element shape, got nil")
	}
	if _, err := NewInput([]int{0}); err == nil {
		t.Error("Expected error for non-positive dimension, got nil")
	}
	if _, err := NewInput([]int{28, 28, 1}); err != nil {
		t.Errorf("NewInput([28,28,1]) failed: %v", err)
	}
}

func TestInputForwardVector(t *testing.T) {
	in, err := NewInput([]int{3})
	if err != nil {
		t.Fatal(err)
	}

	out, _, err := in.Forward(Vec([]float64{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Vec) != 3 {
		t.Errorf("Output length = %d, expected 3", len(out.Vec))
	}

	if _, _, err := in.Forward(Vec([]float64{1, 2})); err == nil {
		t.Error("Expected shape mismatch error, got nil")
	}
	if _, _, err := in.Forward(FromTensor(tensor.New(1, 1, 3, 1))); err == nil {
		t.Error("Expected error for tensor into vector input, got nil")
	}
}

func TestInputForwardTensor(t *testing.T) {
	in, err := NewInput([]int{2, 2, 1})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := in.Forward(FromTensor(tensor.New(1, 2, 2, 1))); err != nil {
		t.Errorf("Forward failed: %v", err)
	}
	if _, _, err := in.Forward(FromTensor(tensor.New(1, 3, 2, 1))); err == nil {
		t.Error("Expected shape mismatch error, got nil")
	}
	if _, _, err := in.Forward(Vec([]float64{1, 2, 3, 4})); err == nil {
		t.Error("Expected error for vector into tensor input, got nil")
	}
}
