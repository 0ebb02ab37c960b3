package nn

import (
	"math"
)

// MSELoss computes mean squared error between output and target.
func MSELoss(output, target []float32) float32 {
	if len(output) == 0 {
		return 0
	}
	sum := float32(0)
	for i := range output {
		diff := output[i] - target[i]
		sum += diff * diff
	}
	return sum / float32(len(output))
}

// MSEGradient computes the gradient of MSELoss with respect to output.
func MSEGradient(output, target []float32) []float32 {
	grad := make([]float32, len(output))
	scale := 2.0 / float32(len(output))
	for i := range output {
		grad[i] = (output[i] - target[i]) * scale
	}
	return grad
}

// BCELoss computes binary cross-entropy for sigmoid outputs in (0, 1).
// Outputs are clamped away from 0 and 1 to keep the logs finite.
func BCELoss(output, target []float32) float32 {
	if len(output) == 0 {
		return 0
	}
	const epsilon = 1e-7
	sum := float32(0)
	for i := range output {
		p := clampProb(output[i], epsilon)
		t := float64(target[i])
		sum += -float32(t*math.Log(float64(p)) + (1-t)*math.Log(float64(1-p)))
	}
	return sum / float32(len(output))
}

// BCEGradient computes the gradient of BCELoss with respect to output.
func BCEGradient(output, target []float32) []float32 {
	const epsilon = 1e-7
	grad := make([]float32, len(output))
	scale := 1.0 / float32(len(output))
	for i := range output {
		p := clampProb(output[i], epsilon)
		grad[i] = (p - target[i]) / (p * (1 - p)) * scale
	}
	return grad
}

// CrossEntropyLoss computes -sum(target * log(output)) for probability
// outputs, e.g. after a softmax layer.
func CrossEntropyLoss(output, target []float32) float32 {
	const epsilon = 1e-7
	sum := float32(0)
	for i := range output {
		if target[i] > 0 {
			p := output[i]
			if p < epsilon {
				p = epsilon
			}
			sum += -target[i] * float32(math.Log(float64(p)))
		}
	}
	return sum
}

func clampProb(p, epsilon float32) float32 {
	if p < epsilon {
		return epsilon
	}
	if p > 1-epsilon {
		return 1 - epsilon
	}
	return p
}
