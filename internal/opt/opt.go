// Package opt provides the gradient descent update step.
package opt

import "gonum.org/v1/gonum/floats"

// SGD (Stochastic Gradient Descent) updates parameters in place.
// Adaptive optimizers are deliberately out of scope; the engine runs
// plain single-sample gradient descent.
type SGD struct {
	LearningRate float64
}

// Step computes updated parameters: params - lr * gradients
// Returns a new slice with updated values.
func (s SGD) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	copy(result, params)
	floats.AddScaled(result, -s.LearningRate, gradients)
	return result
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s SGD) StepInPlace(params, gradients []float64) {
	floats.AddScaled(params, -s.LearningRate, gradients)
}
