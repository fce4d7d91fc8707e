// Package activations provides named activation functions with paired
// derivatives.
//
// Derivative is evaluated on the activation output, not the
// pre-activation input: sigmoid, tanh and relu derivatives are
// algebraically simpler in terms of the output, and every layer's
// backward pass relies on this convention.
package activations

import (
	"fmt"
	"math"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x).
	Activate(x float64) float64

	// Derivative computes f'(x) given y = f(x).
	Derivative(y float64) float64

	// Name is the registry identifier used in checkpoints.
	Name() string
}

// Get resolves an activation by its registry name.
// The empty name resolves to identity.
func Get(name string) (Activation, error) {
	if name == "" {
		return Identity{}, nil
	}
	act, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("activations: unknown activation %q", name)
	}
	return act, nil
}

var registry = map[string]Activation{
	"identity":   Identity{},
	"sigmoid":    Sigmoid{},
	"tanh":       Tanh{},
	"relu":       ReLU{},
	"leaky_relu": LeakyReLU{Alpha: 0.01},
	"elu":        ELU{Alpha: 1.0},
	"softplus":   Softplus{},
}

// Identity activation function.
type Identity struct{}

func (Identity) Activate(x float64) float64   { return x }
func (Identity) Derivative(y float64) float64 { return 1 }
func (Identity) Name() string                 { return "identity" }

// Sigmoid activation function.
type Sigmoid struct{}

// Activate computes 1 / (1 + exp(-x))
func (Sigmoid) Activate(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Derivative computes y * (1 - y)
func (Sigmoid) Derivative(y float64) float64 {
	return y * (1 - y)
}

func (Sigmoid) Name() string { return "sigmoid" }

// Tanh activation function.
// The input is clamped to ±20 before the hyperbolic tangent to avoid
// overflow in exp.
type Tanh struct{}

// Activate computes tanh(clamp(x, -20, 20))
func (Tanh) Activate(x float64) float64 {
	if x > 20 {
		x = 20
	} else if x < -20 {
		x = -20
	}
	return math.Tanh(x)
}

// Derivative computes 1 - y^2
func (Tanh) Derivative(y float64) float64 {
	return 1 - y*y
}

func (Tanh) Name() string { return "tanh" }

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if y > 0, else 0.
// ReLU preserves sign, so the output carries the needed information.
func (ReLU) Derivative(y float64) float64 {
	if y > 0 {
		return 1
	}
	return 0
}

func (ReLU) Name() string { return "relu" }

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// Activate computes x if x > 0, else alpha*x
func (l LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if y > 0, else alpha
func (l LeakyReLU) Derivative(y float64) float64 {
	if y > 0 {
		return 1
	}
	return l.Alpha
}

func (LeakyReLU) Name() string { return "leaky_relu" }

// ELU activation function.
type ELU struct {
	Alpha float64
}

// Activate computes x if x > 0, else alpha*(exp(x)-1)
func (e ELU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return e.Alpha * (math.Exp(x) - 1)
}

// Derivative returns 1 if y > 0, else y + alpha
// For x <= 0, y = alpha*(exp(x)-1), so f'(x) = alpha*exp(x) = y + alpha.
func (e ELU) Derivative(y float64) float64 {
	if y > 0 {
		return 1
	}
	return y + e.Alpha
}

func (ELU) Name() string { return "elu" }

// Softplus activation function.
type Softplus struct{}

// Activate computes ln(1 + exp(x))
func (Softplus) Activate(x float64) float64 {
	return math.Log1p(math.Exp(x))
}

// Derivative computes 1 - exp(-y)
// y = ln(1+exp(x)) gives exp(x) = exp(y)-1, so f'(x) = sigmoid(x) = 1 - exp(-y).
func (Softplus) Derivative(y float64) float64 {
	return 1 - math.Exp(-y)
}

func (Softplus) Name() string { return "softplus" }
