package nn

import (
	"math"
	"math/rand"
)

// InitDenseLayer initializes a dense (fully-connected) layer
func InitDenseLayer(inputSize, outputSize int, activation ActivationType) LayerConfig {
	// He initialization for weights
	stddev := float32(math.Sqrt(2.0 / float64(inputSize)))

	weights := make([]float32, inputSize*outputSize)
	for i := range weights {
		weights[i] = float32(rand.NormFloat64()) * stddev
	}

	// Biases initialized to zero
	bias := make([]float32, outputSize)

	return LayerConfig{
		Type:       LayerDense,
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		Weights:    weights,
		Bias:       bias,
	}
}

// denseForwardCPU performs forward pass for a dense layer
// input: [batchSize * inputSize]
// weights: [inputSize * outputSize]
// output: [batchSize * outputSize]
func denseForwardCPU(input []float32, config *LayerConfig, batchSize int) ([]float32, []float32) {
	inputSize := config.InputSize
	outputSize := config.OutputSize
	weights := config.Weights
	bias := config.Bias

	preAct := make([]float32, batchSize*outputSize)
	postAct := make([]float32, batchSize*outputSize)

	// output = input @ weights + bias
	for b := 0; b < batchSize; b++ {
		for o := 0; o < outputSize; o++ {
			sum := bias[o]
			for i := 0; i < inputSize; i++ {
				sum += input[b*inputSize+i] * weights[i*outputSize+o]
			}

			outIdx := b*outputSize + o
			preAct[outIdx] = sum
			postAct[outIdx] = activateCPU(sum, config.Activation)
		}
	}

	return preAct, postAct
}

// denseBackwardCPU performs backward pass for a dense layer.
// Returns gradients with respect to the input, the weights, and the bias.
func denseBackwardCPU(gradOutput, input, preAct []float32, config *LayerConfig, batchSize int) ([]float32, []float32, []float32) {
	inputSize := config.InputSize
	outputSize := config.OutputSize
	weights := config.Weights

	gradInput := make([]float32, batchSize*inputSize)
	gradWeights := make([]float32, inputSize*outputSize)
	gradBias := make([]float32, outputSize)

	// Apply activation derivative
	gradPreAct := make([]float32, len(gradOutput))
	for i := range gradOutput {
		gradPreAct[i] = gradOutput[i] * activateDerivativeCPU(preAct[i], config.Activation)
	}

	for b := 0; b < batchSize; b++ {
		for o := 0; o < outputSize; o++ {
			grad := gradPreAct[b*outputSize+o]
			gradBias[o] += grad

			for i := 0; i < inputSize; i++ {
				inputIdx := b*inputSize + i
				weightIdx := i*outputSize + o

				gradWeights[weightIdx] += input[inputIdx] * grad
				gradInput[inputIdx] += weights[weightIdx] * grad
			}
		}
	}

	return gradInput, gradWeights, gradBias
}
