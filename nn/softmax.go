package nn

import (
	"math"
)

// InitSoftmaxLayer initializes a softmax layer over the trailing dimension.
// A temperature of 0 is treated as 1.0.
func InitSoftmaxLayer(temperature float32) LayerConfig {
	return LayerConfig{
		Type:        LayerSoftmax,
		Temperature: temperature,
	}
}

// Softmax computes a temperature-scaled softmax over one vector.
// Subtracts the max before exponentiating for numerical stability.
func Softmax(input []float32, temperature float32) []float32 {
	if temperature == 0 {
		temperature = 1.0
	}

	output := make([]float32, len(input))
	if len(input) == 0 {
		return output
	}

	maxVal := input[0]
	for _, v := range input[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	sum := float32(0)
	for i, v := range input {
		e := float32(math.Exp(float64((v - maxVal) / temperature)))
		output[i] = e
		sum += e
	}
	for i := range output {
		output[i] /= sum
	}

	return output
}

// softmaxRowsCPU applies Softmax independently to each sample in a batch.
func softmaxRowsCPU(input []float32, batchSize int, temperature float32) []float32 {
	if batchSize <= 1 {
		return Softmax(input, temperature)
	}

	width := len(input) / batchSize
	output := make([]float32, len(input))
	for b := 0; b < batchSize; b++ {
		row := Softmax(input[b*width:(b+1)*width], temperature)
		copy(output[b*width:], row)
	}
	return output
}

// softmaxBackwardCPU computes the gradient through a softmax layer given
// the gradient at its output and the softmax output itself:
// dL/dx_i = y_i * (dL/dy_i - sum_j dL/dy_j * y_j)
func softmaxBackwardCPU(gradOutput, output []float32, batchSize, width int) []float32 {
	gradInput := make([]float32, len(gradOutput))

	for b := 0; b < batchSize; b++ {
		offset := b * width

		dot := float32(0)
		for j := 0; j < width; j++ {
			dot += gradOutput[offset+j] * output[offset+j]
		}
		for i := 0; i < width; i++ {
			gradInput[offset+i] = output[offset+i] * (gradOutput[offset+i] - dot)
		}
	}

	return gradInput
}
