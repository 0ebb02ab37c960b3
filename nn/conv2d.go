package nn

import (
	"math"
	"math/rand"
)

// InitConv2DLayer initializes a 2D convolutional layer. With
// kernelSize == stride and zero padding it doubles as a patch-embedding
// projection for vision encoders.
func InitConv2DLayer(
	inputHeight, inputWidth, inputChannels int,
	kernelSize, stride, padding, filters int,
	activation ActivationType,
) LayerConfig {
	outputHeight := (inputHeight+2*padding-kernelSize)/stride + 1
	outputWidth := (inputWidth+2*padding-kernelSize)/stride + 1

	// He initialization
	kernelTotal := filters * inputChannels * kernelSize * kernelSize
	kernel := make([]float32, kernelTotal)
	stddev := float32(math.Sqrt(2.0 / float64(inputChannels*kernelSize*kernelSize)))
	for i := range kernel {
		kernel[i] = float32(rand.NormFloat64()) * stddev
	}

	bias := make([]float32, filters)

	return LayerConfig{
		Type:          LayerConv2D,
		Activation:    activation,
		KernelSize:    kernelSize,
		Stride:        stride,
		Padding:       padding,
		Filters:       filters,
		Kernel:        kernel,
		Bias:          bias,
		InputHeight:   inputHeight,
		InputWidth:    inputWidth,
		InputChannels: inputChannels,
		OutputHeight:  outputHeight,
		OutputWidth:   outputWidth,
	}
}

// conv2DForwardCPU performs 2D convolution on CPU.
// input shape: [batch][inChannels][height][width] flattened
// output shape: [batch][filters][outHeight][outWidth] flattened
func conv2DForwardCPU(input []float32, config *LayerConfig, batchSize int) ([]float32, []float32) {
	inH := config.InputHeight
	inW := config.InputWidth
	inC := config.InputChannels
	kSize := config.KernelSize
	stride := config.Stride
	padding := config.Padding
	filters := config.Filters
	outH := config.OutputHeight
	outW := config.OutputWidth

	preAct := make([]float32, batchSize*filters*outH*outW)
	postAct := make([]float32, batchSize*filters*outH*outW)

	for b := 0; b < batchSize; b++ {
		for f := 0; f < filters; f++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					sum := config.Bias[f]

					for c := 0; c < inC; c++ {
						for ky := 0; ky < kSize; ky++ {
							iy := oy*stride - padding + ky
							if iy < 0 || iy >= inH {
								continue
							}
							for kx := 0; kx < kSize; kx++ {
								ix := ox*stride - padding + kx
								if ix < 0 || ix >= inW {
									continue
								}

								inputIdx := b*inC*inH*inW + c*inH*inW + iy*inW + ix
								kernelIdx := f*inC*kSize*kSize + c*kSize*kSize + ky*kSize + kx
								sum += input[inputIdx] * config.Kernel[kernelIdx]
							}
						}
					}

					outIdx := b*filters*outH*outW + f*outH*outW + oy*outW + ox
					preAct[outIdx] = sum
					postAct[outIdx] = activateCPU(sum, config.Activation)
				}
			}
		}
	}

	return preAct, postAct
}

// Conv2DForward exposes the convolution forward pass for composites that
// drive the layer directly.
func Conv2DForward(config *LayerConfig, input []float32, batchSize int) []float32 {
	_, postAct := conv2DForwardCPU(input, config, batchSize)
	return postAct
}
