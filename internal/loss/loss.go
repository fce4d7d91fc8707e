// Package loss provides named loss functions with gradients.
package loss

import (
	"fmt"
	"math"
)

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the scalar loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. the prediction.
	Backward(yPred, yTrue []float64) []float64

	// Name is the registry identifier used in checkpoints.
	Name() string
}

// Get resolves a loss function by its registry name.
// The empty name resolves to mean squared error.
func Get(name string) (Loss, error) {
	if name == "" {
		return MSE{}, nil
	}
	l, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("loss: unknown loss %q", name)
	}
	return l, nil
}

var registry = map[string]Loss{
	"mean_squared_error":       MSE{},
	"binary_crossentropy":      BinaryCrossEntropy{},
	"categorical_crossentropy": CategoricalCrossEntropy{},
}

func checkLen(name string, yPred, yTrue []float64) {
	if len(yPred) != len(yTrue) {
		panic(name + ": prediction and target must have same length")
	}
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes (1/n) * sum((y_pred - y_true)^2)
func (MSE) Forward(yPred, yTrue []float64) float64 {
	checkLen("MSE", yPred, yTrue)
	var sum float64
	for i := range yPred {
		diff := yPred[i] - yTrue[i]
		sum += diff * diff
	}
	return sum / float64(len(yPred))
}

// Backward computes dL/dy_pred = (2/n) * (y_pred - y_true)
func (MSE) Backward(yPred, yTrue []float64) []float64 {
	checkLen("MSE", yPred, yTrue)
	grad := make([]float64, len(yPred))
	factor := 2.0 / float64(len(yPred))
	for i := range yPred {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
	return grad
}

func (MSE) Name() string { return "mean_squared_error" }

// clampProb bounds a probability away from 0 and 1 before taking logs.
func clampProb(p float64) float64 {
	const eps = 1e-7
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

// BinaryCrossEntropy loss. Predictions are clamped to [1e-7, 1-1e-7].
type BinaryCrossEntropy struct{}

// Forward computes -(1/n) * sum(y*log(p) + (1-y)*log(1-p))
func (BinaryCrossEntropy) Forward(yPred, yTrue []float64) float64 {
	checkLen("BinaryCrossEntropy", yPred, yTrue)
	var sum float64
	for i := range yPred {
		p := clampProb(yPred[i])
		sum -= yTrue[i]*math.Log(p) + (1-yTrue[i])*math.Log(1-p)
	}
	return sum / float64(len(yPred))
}

// Backward computes dL/dp = (1/n) * (p - y) / (p * (1 - p))
func (BinaryCrossEntropy) Backward(yPred, yTrue []float64) []float64 {
	checkLen("BinaryCrossEntropy", yPred, yTrue)
	grad := make([]float64, len(yPred))
	factor := 1.0 / float64(len(yPred))
	for i := range yPred {
		p := clampProb(yPred[i])
		grad[i] = factor * (p - yTrue[i]) / (p * (1 - p))
	}
	return grad
}

func (BinaryCrossEntropy) Name() string { return "binary_crossentropy" }

// CategoricalCrossEntropy loss. The target is assumed one-hot.
type CategoricalCrossEntropy struct{}

// Forward computes -sum(y_true * log(p))
func (CategoricalCrossEntropy) Forward(yPred, yTrue []float64) float64 {
	checkLen("CategoricalCrossEntropy", yPred, yTrue)
	var sum float64
	for i := range yPred {
		sum -= yTrue[i] * math.Log(clampProb(yPred[i]))
	}
	return sum
}

// Backward computes dL/dp = -y_true / p
func (CategoricalCrossEntropy) Backward(yPred, yTrue []float64) []float64 {
	checkLen("CategoricalCrossEntropy", yPred, yTrue)
	grad := make([]float64, len(yPred))
	for i := range yPred {
		grad[i] = -yTrue[i] / clampProb(yPred[i])
	}
	return grad
}

func (CategoricalCrossEntropy) Name() string { return "categorical_crossentropy" }
