// Package net provides the network engine: layer construction from
// configuration, the forward/backward passes, and checkpointing.
package net

import (
	"errors"
	"fmt"
	"math"

	"github.com/andresilva/gocnn/internal/layer"
	"github.com/andresilva/gocnn/internal/loss"
	"github.com/andresilva/gocnn/internal/opt"
)

var (
	// ErrConfiguration reports an invalid layer configuration list.
	ErrConfiguration = errors.New("invalid network configuration")

	// ErrNumericalInstability reports a non-finite value detected in a
	// gradient during a training step. The step is abandoned; the
	// caller decides whether to abort the run or skip the sample.
	ErrNumericalInstability = errors.New("non-finite value in gradient")
)

// Options configures a network.
type Options struct {
	LearningRate float64 // default 0.1
	Loss         string  // default "mean_squared_error"
	Debug        bool    // enables opportunistic non-finite checks
}

func (o Options) withDefaults() Options {
	if o.LearningRate == 0 {
		o.LearningRate = 0.1
	}
	if o.Loss == "" {
		o.Loss = "mean_squared_error"
	}
	return o
}

// Network is an ordered sequence of built layers plus a learning rate
// and a selected loss function. Train and Guess must not run
// concurrently on the same instance: parameters are updated in place
// and read again on the very next forward pass.
type Network struct {
	layers   []layer.Layer
	sgd      opt.SGD
	lossName string
	loss     loss.Loss
	debug    bool
}

// prevShape tracks the inferred output of the previously built layer
// during construction.
type prevShape struct {
	isTensor bool
	h, w, c  int
	size     int
}

func (p prevShape) flatSize() int {
	if p.isTensor {
		return p.h * p.w * p.c
	}
	return p.size
}

// New builds a network from an ordered configuration list, inferring
// each layer's input geometry from its predecessor. Validation is
// eager: invalid orderings fail here, not at the first forward call.
func New(configs []layer.Config, opts Options) (*Network, error) {
	if len(configs) < 2 {
		return nil, fmt.Errorf("%w: need at least an input and an output layer, got %d", ErrConfiguration, len(configs))
	}

	opts = opts.withDefaults()
	lossFn, err := loss.Get(opts.Loss)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	first, ok := configs[0].(layer.InputConfig)
	if !ok {
		return nil, fmt.Errorf("%w: first layer must be an input layer", ErrConfiguration)
	}

	in, err := layer.NewInput(first.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	layers := []layer.Layer{in}

	prev := prevShape{}
	if len(first.Shape) == 3 {
		prev = prevShape{isTensor: true, h: first.Shape[0], w: first.Shape[1], c: first.Shape[2]}
	} else {
		prev = prevShape{size: first.Shape[0]}
	}

	for i, cfg := range configs[1:] {
		built, next, err := buildLayer(cfg, prev)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrConfiguration, i+1, err)
		}
		layers = append(layers, built)
		prev = next
	}

	return &Network{
		layers:   layers,
		sgd:      opt.SGD{LearningRate: opts.LearningRate},
		lossName: opts.Loss,
		loss:     lossFn,
		debug:    opts.Debug,
	}, nil
}

func buildLayer(cfg layer.Config, prev prevShape) (layer.Layer, prevShape, error) {
	switch c := cfg.(type) {
	case layer.InputConfig:
		return nil, prevShape{}, errors.New("input layer is only valid as the first layer")

	case layer.DenseConfig:
		if c.Size <= 0 {
			return nil, prevShape{}, fmt.Errorf("dense size must be positive, got %d", c.Size)
		}
		d, err := layer.NewDense(prev.flatSize(), c.Size, c.Activation)
		if err != nil {
			return nil, prevShape{}, err
		}
		return d, prevShape{size: c.Size}, nil

	case layer.Conv2DConfig:
		if !prev.isTensor {
			return nil, prevShape{}, errors.New("Conv2D must follow an input/conv/pool")
		}
		conv, err := layer.NewConv2D(prev.h, prev.w, prev.c, c.Filters,
			c.KernelH, c.KernelW, c.Stride, c.Padding, c.Activation)
		if err != nil {
			return nil, prevShape{}, err
		}
		h, w, ch := conv.OutShape()
		return conv, prevShape{isTensor: true, h: h, w: w, c: ch}, nil

	case layer.MaxPool2DConfig:
		if !prev.isTensor {
			return nil, prevShape{}, errors.New("MaxPool2D must follow an input/conv/pool")
		}
		pool, err := layer.NewMaxPool2D(prev.h, prev.w, prev.c, c.WindowH, c.WindowW, c.Stride)
		if err != nil {
			return nil, prevShape{}, err
		}
		h, w, ch := pool.OutShape()
		return pool, prevShape{isTensor: true, h: h, w: w, c: ch}, nil

	case layer.FlattenConfig:
		if !prev.isTensor {
			return nil, prevShape{}, errors.New("Flatten must follow an input/conv/pool")
		}
		f := layer.NewFlatten(prev.h, prev.w, prev.c)
		return f, prevShape{size: f.OutSize()}, nil

	default:
		return nil, prevShape{}, fmt.Errorf("unknown layer configuration %T", cfg)
	}
}

// Layers returns the network's built layers.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// LearningRate returns the global learning rate.
func (n *Network) LearningRate() float64 {
	return n.sgd.LearningRate
}

// LossName returns the selected loss function identifier.
func (n *Network) LossName() string {
	return n.lossName
}

// traceStep is one entry of the forward reconstruction trace: a layer,
// its output, and the opaque cache its backward pass will consume.
type traceStep struct {
	layer layer.Layer
	out   layer.Value
	cache layer.Cache
}

func (n *Network) forward(x layer.Value) ([]traceStep, error) {
	steps := make([]traceStep, 0, len(n.layers))
	cur := x
	for _, l := range n.layers {
		out, cache, err := l.Forward(cur)
		if err != nil {
			return nil, err
		}
		steps = append(steps, traceStep{layer: l, out: out, cache: cache})
		cur = out
	}
	return steps, nil
}

// Guess runs forward inference and returns the final layer's raw
// output, softmax-normalized probabilities included when applicable.
func (n *Network) Guess(x layer.Value) ([]float64, error) {
	steps, err := n.forward(x)
	if err != nil {
		return nil, err
	}
	return steps[len(steps)-1].out.Raw(), nil
}

// usesSoftmaxShortcut reports whether the loss gradient seed can use
// the softmax+cross-entropy simplification: the final layer is a dense
// softmax and the selected loss is categorical cross-entropy.
func (n *Network) usesSoftmaxShortcut() bool {
	last, ok := n.layers[len(n.layers)-1].(*layer.Dense)
	return ok && last.Activation() == "softmax" && n.lossName == "categorical_crossentropy"
}

// lossGradient seeds the backward pass at the network output.
func (n *Network) lossGradient(pred, target []float64) []float64 {
	if n.usesSoftmaxShortcut() {
		grad := make([]float64, len(pred))
		for i := range pred {
			grad[i] = pred[i] - target[i]
		}
		return grad
	}
	return n.loss.Backward(pred, target)
}

// Train runs one stochastic gradient descent step on a single sample,
// updating every trainable layer's parameters in place.
func (n *Network) Train(x layer.Value, target []float64) error {
	steps, err := n.forward(x)
	if err != nil {
		return err
	}

	pred := steps[len(steps)-1].out.Raw()
	if len(pred) != len(target) {
		return fmt.Errorf("train: %w: prediction size %d, target size %d",
			layer.ErrShapeMismatch, len(pred), len(target))
	}

	grad := layer.Vec(n.lossGradient(pred, target))
	for i := len(steps) - 1; i >= 0; i-- {
		grad, err = steps[i].layer.Backward(grad, steps[i].cache, n.sgd)
		if err != nil {
			return err
		}
		if n.debug && hasNonFinite(grad) {
			return fmt.Errorf("%w: layer %d", ErrNumericalInstability, i)
		}
	}
	return nil
}

func hasNonFinite(v layer.Value) bool {
	for _, f := range v.Raw() {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
	}
	return false
}
