package nn

import (
	"math"
	"math/rand"
)

// InitMultiHeadAttentionLayer initializes a multi-head self-attention
// layer with Xavier initialization on the four projection matrices.
// dModel must be divisible by numHeads.
func InitMultiHeadAttentionLayer(dModel, numHeads int) LayerConfig {
	headDim := dModel / numHeads

	std := math.Sqrt(2.0 / float64(dModel+dModel))
	initProj := func() []float32 {
		w := make([]float32, dModel*dModel)
		for i := range w {
			w[i] = float32(rand.NormFloat64() * std)
		}
		return w
	}

	return LayerConfig{
		Type:         LayerMultiHeadAttention,
		DModel:       dModel,
		NumHeads:     numHeads,
		HeadDim:      headDim,
		QWeights:     initProj(),
		KWeights:     initProj(),
		VWeights:     initProj(),
		OutputWeight: initProj(),
		QBias:        make([]float32, dModel),
		KBias:        make([]float32, dModel),
		VBias:        make([]float32, dModel),
		OutputBias:   make([]float32, dModel),
	}
}

// multiHeadAttentionForwardCPU performs multi-head self-attention over a
// single sequence. Input and output are [seqLen * dModel]; the sequence
// length is inferred from the input length.
func multiHeadAttentionForwardCPU(input []float32, config *LayerConfig) []float32 {
	dModel := config.DModel
	numHeads := config.NumHeads
	headDim := config.HeadDim
	seqLen := len(input) / dModel

	// Q, K, V projections: X @ W + b
	project := func(weights, bias []float32) []float32 {
		out := make([]float32, seqLen*dModel)
		for s := 0; s < seqLen; s++ {
			for o := 0; o < dModel; o++ {
				sum := bias[o]
				for i := 0; i < dModel; i++ {
					sum += input[s*dModel+i] * weights[i*dModel+o]
				}
				out[s*dModel+o] = sum
			}
		}
		return out
	}

	q := project(config.QWeights, config.QBias)
	k := project(config.KWeights, config.KBias)
	v := project(config.VWeights, config.VBias)

	// Scaled dot-product attention per head
	scale := float32(1.0 / math.Sqrt(float64(headDim)))
	attended := make([]float32, seqLen*dModel)

	scores := make([]float32, seqLen)
	for h := 0; h < numHeads; h++ {
		offset := h * headDim

		for sq := 0; sq < seqLen; sq++ {
			for sk := 0; sk < seqLen; sk++ {
				dot := float32(0)
				for d := 0; d < headDim; d++ {
					dot += q[sq*dModel+offset+d] * k[sk*dModel+offset+d]
				}
				scores[sk] = dot * scale
			}

			weights := Softmax(scores, 1.0)

			for d := 0; d < headDim; d++ {
				sum := float32(0)
				for sk := 0; sk < seqLen; sk++ {
					sum += weights[sk] * v[sk*dModel+offset+d]
				}
				attended[sq*dModel+offset+d] = sum
			}
		}
	}

	// Output projection
	output := make([]float32, seqLen*dModel)
	for s := 0; s < seqLen; s++ {
		for o := 0; o < dModel; o++ {
			sum := config.OutputBias[o]
			for i := 0; i < dModel; i++ {
				sum += attended[s*dModel+i] * config.OutputWeight[i*dModel+o]
			}
			output[s*dModel+o] = sum
		}
	}

	return output
}

// AttentionForward exposes the self-attention forward pass for composites
// that drive the layer directly.
func AttentionForward(config *LayerConfig, input []float32) []float32 {
	return multiHeadAttentionForwardCPU(input, config)
}
