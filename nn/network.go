package nn

import (
	"encoding/json"
	"fmt"
	"os"
)

// Network is a sequential stack of layers sharing one flat buffer
// convention. It covers the dense/softmax stacks the composites are built
// from; recurrent, attention and graph layers are driven directly through
// their forward/backward functions by the owning composite.
type Network struct {
	InputSize int           `json:"inputSize"`
	Layers    []LayerConfig `json:"layers"`

	// Storage for intermediate activations (needed for backward pass)
	// activations[0] = input, activations[i] = output of layer i-1
	activations [][]float32

	// Storage for pre-activation values (needed for derivatives)
	preActivations [][]float32

	// Gradient storage, parallel to Layers
	weightGradients [][]float32
	biasGradients   [][]float32
}

// NewSequential creates a network from an ordered list of layers.
func NewSequential(inputSize int, layers ...LayerConfig) *Network {
	n := &Network{
		InputSize: inputSize,
		Layers:    layers,
	}
	n.resetStorage()
	return n
}

func (n *Network) resetStorage() {
	total := len(n.Layers)
	n.activations = make([][]float32, total+1)
	n.preActivations = make([][]float32, total)
	n.weightGradients = make([][]float32, total)
	n.biasGradients = make([][]float32, total)
}

// OutputSize returns the width of the network's final output per sample.
func (n *Network) OutputSize() int {
	for i := len(n.Layers) - 1; i >= 0; i-- {
		if n.Layers[i].Type == LayerDense {
			return n.Layers[i].OutputSize
		}
	}
	return n.InputSize
}

// WeightGradients returns the weight gradients for all layers
func (n *Network) WeightGradients() [][]float32 {
	return n.weightGradients
}

// BiasGradients returns the bias gradients for all layers
func (n *Network) BiasGradients() [][]float32 {
	return n.biasGradients
}

// Forward runs the network on a flat input of one or more samples and
// stores intermediate activations for a subsequent Backward call.
// Batch size is inferred from len(input) / InputSize.
func (n *Network) Forward(input []float32) []float32 {
	batchSize := 1
	if n.InputSize > 0 && len(input) > n.InputSize {
		batchSize = len(input) / n.InputSize
	}

	n.activations[0] = make([]float32, len(input))
	copy(n.activations[0], input)

	data := n.activations[0]

	for i := range n.Layers {
		config := &n.Layers[i]

		switch config.Type {
		case LayerDense:
			preAct, postAct := denseForwardCPU(data, config, batchSize)
			n.preActivations[i] = preAct
			data = postAct

		case LayerSoftmax:
			// Softmax keeps the width; pre-activation is its input
			pre := make([]float32, len(data))
			copy(pre, data)
			n.preActivations[i] = pre
			data = softmaxRowsCPU(data, batchSize, config.Temperature)

		default:
			// Unsupported layer types pass through unchanged
			pre := make([]float32, len(data))
			copy(pre, data)
			n.preActivations[i] = pre
		}

		n.activations[i+1] = data
	}

	return data
}

// Backward propagates a loss gradient through the network, accumulating
// weight and bias gradients. Forward must have been called first.
// Returns the gradient with respect to the network input.
func (n *Network) Backward(gradOutput []float32) []float32 {
	grad := gradOutput

	for i := len(n.Layers) - 1; i >= 0; i-- {
		config := &n.Layers[i]
		input := n.activations[i]

		switch config.Type {
		case LayerDense:
			batchSize := 1
			if config.OutputSize > 0 && len(grad) > config.OutputSize {
				batchSize = len(grad) / config.OutputSize
			}
			gradInput, gradW, gradB := denseBackwardCPU(grad, input, n.preActivations[i], config, batchSize)
			n.weightGradients[i] = accumulate(n.weightGradients[i], gradW)
			n.biasGradients[i] = accumulate(n.biasGradients[i], gradB)
			grad = gradInput

		case LayerSoftmax:
			output := n.activations[i+1]
			// Infer the batch the same way Forward does; softmax layers
			// carry no OutputSize of their own
			batchSize := 1
			if n.InputSize > 0 && len(n.activations[0]) > n.InputSize {
				batchSize = len(n.activations[0]) / n.InputSize
			}
			width := len(output) / batchSize
			grad = softmaxBackwardCPU(grad, output, batchSize, width)

		default:
			// Pass-through layers propagate the gradient unchanged
		}
	}

	return grad
}

// ZeroGradients clears accumulated gradients before a new batch.
func (n *Network) ZeroGradients() {
	for i := range n.weightGradients {
		n.weightGradients[i] = nil
		n.biasGradients[i] = nil
	}
}

// ApplyGradients performs a plain SGD update: w = w - lr * grad.
// Optimizers with state implement the Optimizer interface instead.
func (n *Network) ApplyGradients(learningRate float32) {
	for i := range n.Layers {
		layer := &n.Layers[i]

		if len(layer.Weights) > 0 && len(n.weightGradients[i]) == len(layer.Weights) {
			for j := range layer.Weights {
				layer.Weights[j] -= learningRate * n.weightGradients[i][j]
			}
		}
		if len(layer.Bias) > 0 && len(n.biasGradients[i]) == len(layer.Bias) {
			for j := range layer.Bias {
				layer.Bias[j] -= learningRate * n.biasGradients[i][j]
			}
		}
	}
}

// accumulate adds src into dst element-wise, allocating dst on first use.
func accumulate(dst, src []float32) []float32 {
	if dst == nil {
		dst = make([]float32, len(src))
	}
	for i := range src {
		dst[i] += src[i]
	}
	return dst
}

// SaveJSON writes the network's layers and weights to a JSON file.
func (n *Network) SaveJSON(path string) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal network: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write network %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a network previously written with SaveJSON.
func LoadJSON(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network %s: %w", path, err)
	}
	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("unmarshal network %s: %w", path, err)
	}
	n.resetStorage()
	return &n, nil
}
