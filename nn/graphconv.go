package nn

import (
	"math"
	"math/rand"
)

// InitGraphConvLayer initializes a graph convolution layer:
// H' = act(A_norm @ H @ W + b), where A_norm is a row-normalized
// adjacency with self-loops supplied at forward time.
func InitGraphConvLayer(inputSize, outputSize int, activation ActivationType) LayerConfig {
	// Glorot initialization
	stddev := float32(math.Sqrt(2.0 / float64(inputSize+outputSize)))

	weights := make([]float32, inputSize*outputSize)
	for i := range weights {
		weights[i] = float32(rand.NormFloat64()) * stddev
	}

	return LayerConfig{
		Type:       LayerGraphConv,
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		Weights:    weights,
		Bias:       make([]float32, outputSize),
	}
}

// NormalizeAdjacency adds self-loops to a [numNodes * numNodes] adjacency
// and row-normalizes it so each node averages over itself and its
// neighbors.
func NormalizeAdjacency(adjacency []float32, numNodes int) []float32 {
	norm := make([]float32, numNodes*numNodes)
	for i := 0; i < numNodes; i++ {
		rowSum := float32(0)
		for j := 0; j < numNodes; j++ {
			v := adjacency[i*numNodes+j]
			if i == j {
				v += 1.0 // self-loop
			}
			norm[i*numNodes+j] = v
			rowSum += v
		}
		if rowSum > 0 {
			for j := 0; j < numNodes; j++ {
				norm[i*numNodes+j] /= rowSum
			}
		}
	}
	return norm
}

// graphConvForwardCPU performs a graph convolution over one graph.
// features: [numNodes * inputSize], adjacency: row-normalized
// [numNodes * numNodes]. Returns pre- and post-activation node features
// plus the aggregated neighborhood features needed for the backward pass.
func graphConvForwardCPU(features, adjacency []float32, config *LayerConfig, numNodes int) ([]float32, []float32, []float32) {
	inputSize := config.InputSize
	outputSize := config.OutputSize

	// Aggregate: agg = A_norm @ H
	agg := make([]float32, numNodes*inputSize)
	for i := 0; i < numNodes; i++ {
		for j := 0; j < numNodes; j++ {
			a := adjacency[i*numNodes+j]
			if a == 0 {
				continue
			}
			for f := 0; f < inputSize; f++ {
				agg[i*inputSize+f] += a * features[j*inputSize+f]
			}
		}
	}

	// Transform: out = agg @ W + b
	preAct := make([]float32, numNodes*outputSize)
	postAct := make([]float32, numNodes*outputSize)
	for i := 0; i < numNodes; i++ {
		for o := 0; o < outputSize; o++ {
			sum := config.Bias[o]
			for f := 0; f < inputSize; f++ {
				sum += agg[i*inputSize+f] * config.Weights[f*outputSize+o]
			}
			preAct[i*outputSize+o] = sum
			postAct[i*outputSize+o] = activateCPU(sum, config.Activation)
		}
	}

	return preAct, postAct, agg
}

// graphConvBackwardCPU computes gradients for a graph convolution.
// Returns gradients with respect to the input features, weights and bias.
func graphConvBackwardCPU(gradOutput, agg, preAct, adjacency []float32, config *LayerConfig, numNodes int) ([]float32, []float32, []float32) {
	inputSize := config.InputSize
	outputSize := config.OutputSize

	gradWeights := make([]float32, inputSize*outputSize)
	gradBias := make([]float32, outputSize)
	gradAgg := make([]float32, numNodes*inputSize)

	for i := 0; i < numNodes; i++ {
		for o := 0; o < outputSize; o++ {
			grad := gradOutput[i*outputSize+o] * activateDerivativeCPU(preAct[i*outputSize+o], config.Activation)
			gradBias[o] += grad

			for f := 0; f < inputSize; f++ {
				gradWeights[f*outputSize+o] += agg[i*inputSize+f] * grad
				gradAgg[i*inputSize+f] += config.Weights[f*outputSize+o] * grad
			}
		}
	}

	// Propagate through the aggregation: gradH = A_norm^T @ gradAgg
	gradInput := make([]float32, numNodes*inputSize)
	for i := 0; i < numNodes; i++ {
		for j := 0; j < numNodes; j++ {
			a := adjacency[i*numNodes+j]
			if a == 0 {
				continue
			}
			for f := 0; f < inputSize; f++ {
				gradInput[j*inputSize+f] += a * gradAgg[i*inputSize+f]
			}
		}
	}

	return gradInput, gradWeights, gradBias
}

// GraphConvForward exposes the graph convolution forward pass for
// composites that drive the layer directly.
func GraphConvForward(config *LayerConfig, features, adjacency []float32, numNodes int) []float32 {
	_, postAct, _ := graphConvForwardCPU(features, adjacency, config, numNodes)
	return postAct
}

// GraphConvForwardFull exposes the forward pass together with the
// pre-activation and aggregated values a later GraphConvBackward needs.
func GraphConvForwardFull(config *LayerConfig, features, adjacency []float32, numNodes int) (preAct, postAct, agg []float32) {
	preAct, postAct, agg = graphConvForwardCPU(features, adjacency, config, numNodes)
	return preAct, postAct, agg
}

// GraphConvBackward exposes the backward pass for composites that drive
// the layer directly.
func GraphConvBackward(config *LayerConfig, gradOutput, agg, preAct, adjacency []float32, numNodes int) (gradInput, gradWeights, gradBias []float32) {
	return graphConvBackwardCPU(gradOutput, agg, preAct, adjacency, config, numNodes)
}
