package nn

import (
	"math"
	"math/rand"
)

// InitLSTMLayer initializes an LSTM layer with Xavier/Glorot initialization.
// LSTM has 4 gates: input (i), forget (f), cell/candidate (g), output (o).
func InitLSTMLayer(inputSize, hiddenSize, seqLength int) LayerConfig {
	config := LayerConfig{
		Type:       LayerLSTM,
		Activation: ActivationTanh,
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
		SeqLength:  seqLength,
	}

	stdIH := math.Sqrt(2.0 / float64(inputSize+hiddenSize))
	stdHH := math.Sqrt(2.0 / float64(hiddenSize+hiddenSize))

	initIH := func() []float32 {
		w := make([]float32, hiddenSize*inputSize)
		for i := range w {
			w[i] = float32(rand.NormFloat64() * stdIH)
		}
		return w
	}
	initHH := func() []float32 {
		w := make([]float32, hiddenSize*hiddenSize)
		for i := range w {
			w[i] = float32(rand.NormFloat64() * stdHH)
		}
		return w
	}

	config.WeightIH_i = initIH()
	config.WeightHH_i = initHH()
	config.BiasH_i = make([]float32, hiddenSize)

	// Forget gate bias starts at 1.0 to remember by default
	config.WeightIH_f = initIH()
	config.WeightHH_f = initHH()
	config.BiasH_f = make([]float32, hiddenSize)
	for i := range config.BiasH_f {
		config.BiasH_f[i] = 1.0
	}

	config.WeightIH_g = initIH()
	config.WeightHH_g = initHH()
	config.BiasH_g = make([]float32, hiddenSize)

	config.WeightIH_o = initIH()
	config.WeightHH_o = initHH()
	config.BiasH_o = make([]float32, hiddenSize)

	return config
}

// lstmStates holds all per-timestep values the backward pass needs.
// Hidden and cell include the zero initial state at index 0, so both are
// [batchSize, seqLength+1, hiddenSize]; the gate buffers are
// [batchSize, seqLength, hiddenSize].
type lstmStates struct {
	Hidden []float32
	Cell   []float32
	IGate  []float32
	FGate  []float32
	GGate  []float32
	OGate  []float32
	CTanh  []float32 // tanh(cell state), cached for the backward pass
}

func newLSTMStates(batchSize, seqLength, hiddenSize int) *lstmStates {
	gateLen := batchSize * seqLength * hiddenSize
	return &lstmStates{
		Hidden: make([]float32, batchSize*(seqLength+1)*hiddenSize),
		Cell:   make([]float32, batchSize*(seqLength+1)*hiddenSize),
		IGate:  make([]float32, gateLen),
		FGate:  make([]float32, gateLen),
		GGate:  make([]float32, gateLen),
		OGate:  make([]float32, gateLen),
		CTanh:  make([]float32, gateLen),
	}
}

// lstmForwardCPU performs the forward pass for an LSTM layer.
// Input shape: [batchSize, seqLength, inputSize] flattened.
// Output shape: [batchSize, seqLength, hiddenSize] flattened.
func lstmForwardCPU(config *LayerConfig, input []float32, batchSize int) ([]float32, *lstmStates) {
	inputSize := config.InputSize
	hiddenSize := config.HiddenSize
	seqLength := config.SeqLength

	output := make([]float32, batchSize*seqLength*hiddenSize)
	states := newLSTMStates(batchSize, seqLength, hiddenSize)

	for t := 0; t < seqLength; t++ {
		for b := 0; b < batchSize; b++ {
			prevIdx := b*(seqLength+1)*hiddenSize + t*hiddenSize
			currIdx := b*(seqLength+1)*hiddenSize + (t+1)*hiddenSize
			inputIdx := b*seqLength*inputSize + t*inputSize
			gateIdx := b*seqLength*hiddenSize + t*hiddenSize

			for h := 0; h < hiddenSize; h++ {
				// i_t = sigmoid(W_ii @ x_t + W_hi @ h_{t-1} + b_i)
				iSum := config.BiasH_i[h]
				// f_t = sigmoid(W_if @ x_t + W_hf @ h_{t-1} + b_f)
				fSum := config.BiasH_f[h]
				// g_t = tanh(W_ig @ x_t + W_hg @ h_{t-1} + b_g)
				gSum := config.BiasH_g[h]
				// o_t = sigmoid(W_io @ x_t + W_ho @ h_{t-1} + b_o)
				oSum := config.BiasH_o[h]

				for i := 0; i < inputSize; i++ {
					x := input[inputIdx+i]
					iSum += config.WeightIH_i[h*inputSize+i] * x
					fSum += config.WeightIH_f[h*inputSize+i] * x
					gSum += config.WeightIH_g[h*inputSize+i] * x
					oSum += config.WeightIH_o[h*inputSize+i] * x
				}
				for hp := 0; hp < hiddenSize; hp++ {
					hPrev := states.Hidden[prevIdx+hp]
					iSum += config.WeightHH_i[h*hiddenSize+hp] * hPrev
					fSum += config.WeightHH_f[h*hiddenSize+hp] * hPrev
					gSum += config.WeightHH_g[h*hiddenSize+hp] * hPrev
					oSum += config.WeightHH_o[h*hiddenSize+hp] * hPrev
				}

				states.IGate[gateIdx+h] = sigmoid(iSum)
				states.FGate[gateIdx+h] = sigmoid(fSum)
				states.GGate[gateIdx+h] = float32(math.Tanh(float64(gSum)))
				states.OGate[gateIdx+h] = sigmoid(oSum)

				// c_t = f_t * c_{t-1} + i_t * g_t
				states.Cell[currIdx+h] = states.FGate[gateIdx+h]*states.Cell[prevIdx+h] +
					states.IGate[gateIdx+h]*states.GGate[gateIdx+h]

				// h_t = o_t * tanh(c_t)
				cTanh := float32(math.Tanh(float64(states.Cell[currIdx+h])))
				states.CTanh[gateIdx+h] = cTanh
				states.Hidden[currIdx+h] = states.OGate[gateIdx+h] * cTanh
			}

			outputIdx := b*seqLength*hiddenSize + t*hiddenSize
			copy(output[outputIdx:outputIdx+hiddenSize], states.Hidden[currIdx:currIdx+hiddenSize])
		}
	}

	return output, states
}

// lstmGradients holds the weight and bias gradients for all four gates.
type lstmGradients struct {
	WeightIH_i, WeightHH_i, BiasH_i []float32
	WeightIH_f, WeightHH_f, BiasH_f []float32
	WeightIH_g, WeightHH_g, BiasH_g []float32
	WeightIH_o, WeightHH_o, BiasH_o []float32
}

// lstmBackwardCPU performs backpropagation through time for an LSTM layer.
// gradOutput has the output shape [batchSize, seqLength, hiddenSize].
func lstmBackwardCPU(config *LayerConfig, gradOutput, input []float32, states *lstmStates, batchSize int) ([]float32, *lstmGradients) {
	inputSize := config.InputSize
	hiddenSize := config.HiddenSize
	seqLength := config.SeqLength

	gradInput := make([]float32, batchSize*seqLength*inputSize)
	grads := &lstmGradients{
		WeightIH_i: make([]float32, hiddenSize*inputSize),
		WeightHH_i: make([]float32, hiddenSize*hiddenSize),
		BiasH_i:    make([]float32, hiddenSize),
		WeightIH_f: make([]float32, hiddenSize*inputSize),
		WeightHH_f: make([]float32, hiddenSize*hiddenSize),
		BiasH_f:    make([]float32, hiddenSize),
		WeightIH_g: make([]float32, hiddenSize*inputSize),
		WeightHH_g: make([]float32, hiddenSize*hiddenSize),
		BiasH_g:    make([]float32, hiddenSize),
		WeightIH_o: make([]float32, hiddenSize*inputSize),
		WeightHH_o: make([]float32, hiddenSize*hiddenSize),
		BiasH_o:    make([]float32, hiddenSize),
	}

	// gradHidden holds dL/dh_t for the current timestep; gradHiddenPrev
	// collects the recurrent contributions destined for h_{t-1} so they
	// never mix with the values still being read at timestep t
	gradHidden := make([]float32, batchSize*hiddenSize)
	gradHiddenPrev := make([]float32, batchSize*hiddenSize)
	gradCell := make([]float32, batchSize*hiddenSize)

	for t := seqLength - 1; t >= 0; t-- {
		for b := 0; b < batchSize; b++ {
			outputIdx := b*seqLength*hiddenSize + t*hiddenSize
			gateIdx := b*seqLength*hiddenSize + t*hiddenSize
			prevIdx := b*(seqLength+1)*hiddenSize + t*hiddenSize
			inputIdx := b*seqLength*inputSize + t*inputSize

			for h := 0; h < hiddenSize; h++ {
				gradHidden[b*hiddenSize+h] += gradOutput[outputIdx+h]
			}

			for h := 0; h < hiddenSize; h++ {
				dh := gradHidden[b*hiddenSize+h]

				oGate := states.OGate[gateIdx+h]
				cTanh := states.CTanh[gateIdx+h]

				// h_t = o_t * tanh(c_t)
				do := dh * cTanh
				dcFromH := dh * oGate * (1.0 - cTanh*cTanh)
				gradCell[b*hiddenSize+h] += dcFromH

				dc := gradCell[b*hiddenSize+h]

				iGate := states.IGate[gateIdx+h]
				fGate := states.FGate[gateIdx+h]
				gGate := states.GGate[gateIdx+h]
				prevCell := states.Cell[prevIdx+h]

				// c_t = f_t * c_{t-1} + i_t * g_t
				df := dc * prevCell
				di := dc * gGate
				dg := dc * iGate

				// Gradient flows to the previous cell state
				gradCell[b*hiddenSize+h] = dc * fGate

				// Gate pre-activation gradients (sigmoid'/tanh')
				diPre := di * iGate * (1.0 - iGate)
				dfPre := df * fGate * (1.0 - fGate)
				dgPre := dg * (1.0 - gGate*gGate)
				doPre := do * oGate * (1.0 - oGate)

				grads.BiasH_i[h] += diPre
				grads.BiasH_f[h] += dfPre
				grads.BiasH_g[h] += dgPre
				grads.BiasH_o[h] += doPre

				for i := 0; i < inputSize; i++ {
					x := input[inputIdx+i]
					gradInput[inputIdx+i] += config.WeightIH_i[h*inputSize+i]*diPre +
						config.WeightIH_f[h*inputSize+i]*dfPre +
						config.WeightIH_g[h*inputSize+i]*dgPre +
						config.WeightIH_o[h*inputSize+i]*doPre

					grads.WeightIH_i[h*inputSize+i] += diPre * x
					grads.WeightIH_f[h*inputSize+i] += dfPre * x
					grads.WeightIH_g[h*inputSize+i] += dgPre * x
					grads.WeightIH_o[h*inputSize+i] += doPre * x
				}

				for hp := 0; hp < hiddenSize; hp++ {
					hPrev := states.Hidden[prevIdx+hp]
					gradHiddenPrev[b*hiddenSize+hp] += config.WeightHH_i[h*hiddenSize+hp]*diPre +
						config.WeightHH_f[h*hiddenSize+hp]*dfPre +
						config.WeightHH_g[h*hiddenSize+hp]*dgPre +
						config.WeightHH_o[h*hiddenSize+hp]*doPre

					grads.WeightHH_i[h*hiddenSize+hp] += diPre * hPrev
					grads.WeightHH_f[h*hiddenSize+hp] += dfPre * hPrev
					grads.WeightHH_g[h*hiddenSize+hp] += dgPre * hPrev
					grads.WeightHH_o[h*hiddenSize+hp] += doPre * hPrev
				}
			}
		}

		gradHidden, gradHiddenPrev = gradHiddenPrev, gradHidden
		for i := range gradHiddenPrev {
			gradHiddenPrev[i] = 0
		}
	}

	return gradInput, grads
}

// applyLSTMGradients performs an SGD update on all gate weights.
func applyLSTMGradients(config *LayerConfig, grads *lstmGradients, learningRate float32) {
	update := func(w, g []float32) {
		for i := range w {
			w[i] -= learningRate * g[i]
		}
	}
	update(config.WeightIH_i, grads.WeightIH_i)
	update(config.WeightHH_i, grads.WeightHH_i)
	update(config.BiasH_i, grads.BiasH_i)
	update(config.WeightIH_f, grads.WeightIH_f)
	update(config.WeightHH_f, grads.WeightHH_f)
	update(config.BiasH_f, grads.BiasH_f)
	update(config.WeightIH_g, grads.WeightIH_g)
	update(config.WeightHH_g, grads.WeightHH_g)
	update(config.BiasH_g, grads.BiasH_g)
	update(config.WeightIH_o, grads.WeightIH_o)
	update(config.WeightHH_o, grads.WeightHH_o)
	update(config.BiasH_o, grads.BiasH_o)
}

// LSTMForward exposes the LSTM forward pass for composites that drive the
// layer directly. It returns the full output sequence.
func LSTMForward(config *LayerConfig, input []float32, batchSize int) []float32 {
	output, _ := lstmForwardCPU(config, input, batchSize)
	return output
}

// LSTMTrainStep runs one forward/backward/update cycle over a batch of
// sequences against target outputs for the LAST timestep only, through a
// caller-supplied head network. Returns the batch loss (MSE).
func LSTMTrainStep(config *LayerConfig, head *Network, input, target []float32, batchSize int, learningRate float32) float32 {
	hiddenSize := config.HiddenSize
	seqLength := config.SeqLength

	seqOut, states := lstmForwardCPU(config, input, batchSize)

	// Slice out the last timestep per sample as the head input
	lastHidden := make([]float32, batchSize*hiddenSize)
	for b := 0; b < batchSize; b++ {
		srcIdx := b*seqLength*hiddenSize + (seqLength-1)*hiddenSize
		copy(lastHidden[b*hiddenSize:], seqOut[srcIdx:srcIdx+hiddenSize])
	}

	head.ZeroGradients()
	pred := head.Forward(lastHidden)

	loss := float32(0)
	gradPred := make([]float32, len(pred))
	for i := range pred {
		diff := pred[i] - target[i]
		loss += diff * diff
		gradPred[i] = 2 * diff / float32(len(pred))
	}
	loss /= float32(len(pred))

	gradLast := head.Backward(gradPred)
	head.ApplyGradients(learningRate)

	// Scatter the head's input gradient back onto the last timestep
	gradSeq := make([]float32, len(seqOut))
	for b := 0; b < batchSize; b++ {
		dstIdx := b*seqLength*hiddenSize + (seqLength-1)*hiddenSize
		copy(gradSeq[dstIdx:dstIdx+hiddenSize], gradLast[b*hiddenSize:(b+1)*hiddenSize])
	}

	_, grads := lstmBackwardCPU(config, gradSeq, input, states, batchSize)
	applyLSTMGradients(config, grads, learningRate)

	return loss
}
