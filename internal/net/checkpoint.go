package net

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresilva/gocnn/internal/layer"
	"github.com/andresilva/gocnn/internal/loss"
)

// Checkpoint is the serializable snapshot of a network: the global
// learning rate plus one tagged record per layer. It is the sole wire
// and file format boundary; every parameter array is a full copy,
// never an alias of live layer state.
type Checkpoint struct {
	LearningRate float64       `json:"learningRate"`
	Layers       []LayerRecord `json:"layers"`
}

// LayerRecord is a tagged per-layer record. Only the fields relevant
// to the record's Type are set. Dense weights are row-major and
// output-major; conv kernels are flattened in [kH,kW,C_in,C_out]
// order. Conv records persist the resolved pad offsets so a restored
// layer reproduces the original geometry exactly, regardless of the
// padding mode it was configured with.
type LayerRecord struct {
	Type string `json:"type"`

	// Input
	Shape []int `json:"shape,omitempty"`

	// Dense
	InSize     int       `json:"inSize,omitempty"`
	Size       int       `json:"size,omitempty"`
	Activation string    `json:"activation,omitempty"`
	Weights    []float64 `json:"weights,omitempty"`
	Biases     []float64 `json:"biases,omitempty"`

	// Conv2D / MaxPool2D / Flatten
	InShape []int `json:"inShape,omitempty"` // [H,W,C]

	// Conv2D
	Filters int    `json:"filters,omitempty"`
	Kernel  []int  `json:"kernel,omitempty"` // [kH,kW]
	Stride  int    `json:"stride,omitempty"`
	Padding string `json:"padding,omitempty"`
	Pad     []int  `json:"pad,omitempty"` // [top,bottom,left,right]

	// MaxPool2D
	Window  []int `json:"window,omitempty"`
	Strides []int `json:"strides,omitempty"` // [strideH,strideW]
}

// Checkpoint captures the network's full state as a serializable
// record. Parameter arrays are copied.
func (n *Network) Checkpoint() (Checkpoint, error) {
	cp := Checkpoint{LearningRate: n.sgd.LearningRate}
	for i, l := range n.layers {
		switch v := l.(type) {
		case *layer.Input:
			cp.Layers = append(cp.Layers, LayerRecord{Type: "input", Shape: v.Shape()})

		case *layer.Dense:
			cp.Layers = append(cp.Layers, LayerRecord{
				Type:       "dense",
				InSize:     v.InSize(),
				Size:       v.OutSize(),
				Activation: v.Activation(),
				Weights:    v.Weights(),
				Biases:     v.Biases(),
			})

		case *layer.Conv2D:
			h, w, c := v.InShape()
			kh, kw := v.KernelSize()
			pads := v.Pads()
			cp.Layers = append(cp.Layers, LayerRecord{
				Type:       "conv2d",
				InShape:    []int{h, w, c},
				Filters:    v.Filters(),
				Kernel:     []int{kh, kw},
				Stride:     v.Stride(),
				Padding:    v.Padding(),
				Pad:        pads[:],
				Activation: v.Activation(),
				Weights:    v.Kernel(),
				Biases:     v.Biases(),
			})

		case *layer.MaxPool2D:
			h, w, c := v.InShape()
			wh, ww := v.Window()
			sh, sw := v.Strides()
			cp.Layers = append(cp.Layers, LayerRecord{
				Type:    "maxpool2d",
				InShape: []int{h, w, c},
				Window:  []int{wh, ww},
				Strides: []int{sh, sw},
			})

		case *layer.Flatten:
			h, w, c := v.InShape()
			cp.Layers = append(cp.Layers, LayerRecord{Type: "flatten", InShape: []int{h, w, c}})

		default:
			return Checkpoint{}, fmt.Errorf("checkpoint: unknown layer type %T at index %d", l, i)
		}
	}
	return cp, nil
}

// FromCheckpoint rebuilds a network from a checkpoint record and
// overwrites the freshly initialized parameters with the persisted
// values. The record's learning rate wins over opts.LearningRate; loss
// selection and debug mode come from opts.
func FromCheckpoint(cp Checkpoint, opts Options) (*Network, error) {
	if len(cp.Layers) < 2 {
		return nil, fmt.Errorf("%w: checkpoint has %d layers, need at least 2", ErrConfiguration, len(cp.Layers))
	}

	opts = opts.withDefaults()
	lossFn, err := loss.Get(opts.Loss)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	layers := make([]layer.Layer, 0, len(cp.Layers))
	for i, rec := range cp.Layers {
		built, err := restoreLayer(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrConfiguration, i, err)
		}
		layers = append(layers, built)
	}

	if _, ok := layers[0].(*layer.Input); !ok {
		return nil, fmt.Errorf("%w: first checkpointed layer must be an input layer", ErrConfiguration)
	}

	n := &Network{
		layers:   layers,
		lossName: opts.Loss,
		loss:     lossFn,
		debug:    opts.Debug,
	}
	n.sgd.LearningRate = cp.LearningRate
	if n.sgd.LearningRate == 0 {
		n.sgd.LearningRate = opts.LearningRate
	}
	return n, nil
}

func restoreLayer(rec LayerRecord) (layer.Layer, error) {
	switch rec.Type {
	case "input":
		return layer.NewInput(rec.Shape)

	case "dense":
		d, err := layer.NewDense(rec.InSize, rec.Size, rec.Activation)
		if err != nil {
			return nil, err
		}
		if err := d.SetWeights(rec.Weights); err != nil {
			return nil, err
		}
		if err := d.SetBiases(rec.Biases); err != nil {
			return nil, err
		}
		return d, nil

	case "conv2d":
		if len(rec.InShape) != 3 || len(rec.Kernel) != 2 || len(rec.Pad) != 4 {
			return nil, fmt.Errorf("conv2d record missing geometry")
		}
		c, err := layer.NewConv2DWithPads(
			rec.InShape[0], rec.InShape[1], rec.InShape[2],
			rec.Filters, rec.Kernel[0], rec.Kernel[1], rec.Stride,
			rec.Pad[0], rec.Pad[1], rec.Pad[2], rec.Pad[3],
			rec.Activation)
		if err != nil {
			return nil, err
		}
		if err := c.SetKernel(rec.Weights); err != nil {
			return nil, err
		}
		if err := c.SetBiases(rec.Biases); err != nil {
			return nil, err
		}
		return c, nil

	case "maxpool2d":
		if len(rec.InShape) != 3 || len(rec.Window) != 2 || len(rec.Strides) != 2 {
			return nil, fmt.Errorf("maxpool2d record missing geometry")
		}
		return layer.NewMaxPool2DWithStrides(
			rec.InShape[0], rec.InShape[1], rec.InShape[2],
			rec.Window[0], rec.Window[1], rec.Strides[0], rec.Strides[1])

	case "flatten":
		if len(rec.InShape) != 3 {
			return nil, fmt.Errorf("flatten record missing geometry")
		}
		return layer.NewFlatten(rec.InShape[0], rec.InShape[1], rec.InShape[2]), nil

	default:
		return nil, fmt.Errorf("unknown layer record type %q", rec.Type)
	}
}

// Encode writes the network checkpoint to w as JSON.
func (n *Network) Encode(w io.Writer) error {
	cp, err := n.Checkpoint()
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(cp)
}

// Decode reads a JSON checkpoint from r and rebuilds the network.
func Decode(r io.Reader, opts Options) (*Network, error) {
	var cp Checkpoint
	if err := json.NewDecoder(r).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return FromCheckpoint(cp, opts)
}

// Save writes the network checkpoint to a file.
func (n *Network) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()
	return n.Encode(f)
}

// Load reads a checkpoint file and rebuilds the network.
func Load(filename string, opts Options) (*Network, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Decode(f, opts)
}
