package nn

// ActivationType defines the activation function used in a layer
type ActivationType int

const (
	ActivationLinear    ActivationType = 0 // identity
	ActivationSigmoid   ActivationType = 1 // 1 / (1 + exp(-v))
	ActivationTanh      ActivationType = 2 // tanh(v)
	ActivationReLU      ActivationType = 3 // max(0, v)
	ActivationLeakyReLU ActivationType = 4 // v if v >= 0, else v * 0.1
	ActivationSoftplus  ActivationType = 5 // log(1 + exp(v))
)

// LayerType defines the type of neural network layer
type LayerType int

const (
	LayerDense              LayerType = 0 // Dense/fully-connected layer
	LayerConv2D             LayerType = 1 // 2D convolutional layer (also used for patch embedding)
	LayerLSTM               LayerType = 2 // Long Short-Term Memory layer
	LayerMultiHeadAttention LayerType = 3 // Multi-head self-attention layer
	LayerSoftmax            LayerType = 4 // Softmax over the trailing dimension
	LayerGraphConv          LayerType = 5 // Graph convolution over a fixed adjacency
)

// LayerConfig holds the weights and hyperparameters of a single layer.
// Only the fields relevant to the layer's Type are populated.
type LayerConfig struct {
	Type       LayerType      `json:"type"`
	Activation ActivationType `json:"activation"`

	// Dense / GraphConv parameters
	InputSize  int       `json:"inputSize,omitempty"`
	OutputSize int       `json:"outputSize,omitempty"`
	Weights    []float32 `json:"weights,omitempty"` // [inputSize * outputSize]
	Bias       []float32 `json:"bias,omitempty"`    // [outputSize]

	// Conv2D parameters
	KernelSize    int       `json:"kernelSize,omitempty"`
	Stride        int       `json:"stride,omitempty"`
	Padding       int       `json:"padding,omitempty"`
	Filters       int       `json:"filters,omitempty"`
	Kernel        []float32 `json:"kernel,omitempty"` // [filters][inChannels][kH][kW]
	InputHeight   int       `json:"inputHeight,omitempty"`
	InputWidth    int       `json:"inputWidth,omitempty"`
	InputChannels int       `json:"inputChannels,omitempty"`
	OutputHeight  int       `json:"outputHeight,omitempty"`
	OutputWidth   int       `json:"outputWidth,omitempty"`

	// Multi-head attention parameters
	NumHeads     int       `json:"numHeads,omitempty"`
	HeadDim      int       `json:"headDim,omitempty"` // DModel / NumHeads
	DModel       int       `json:"dModel,omitempty"`
	QWeights     []float32 `json:"qWeights,omitempty"` // [dModel * dModel]
	KWeights     []float32 `json:"kWeights,omitempty"`
	VWeights     []float32 `json:"vWeights,omitempty"`
	OutputWeight []float32 `json:"outputWeight,omitempty"`
	QBias        []float32 `json:"qBias,omitempty"` // [dModel]
	KBias        []float32 `json:"kBias,omitempty"`
	VBias        []float32 `json:"vBias,omitempty"`
	OutputBias   []float32 `json:"outputBias,omitempty"`

	// LSTM parameters (gates: i=input, f=forget, g=cell, o=output)
	HiddenSize int `json:"hiddenSize,omitempty"`
	SeqLength  int `json:"seqLength,omitempty"`

	WeightIH_i []float32 `json:"weightIHi,omitempty"` // [hiddenSize * inputSize]
	WeightHH_i []float32 `json:"weightHHi,omitempty"` // [hiddenSize * hiddenSize]
	BiasH_i    []float32 `json:"biasHi,omitempty"`    // [hiddenSize]

	WeightIH_f []float32 `json:"weightIHf,omitempty"`
	WeightHH_f []float32 `json:"weightHHf,omitempty"`
	BiasH_f    []float32 `json:"biasHf,omitempty"`

	WeightIH_g []float32 `json:"weightIHg,omitempty"`
	WeightHH_g []float32 `json:"weightHHg,omitempty"`
	BiasH_g    []float32 `json:"biasHg,omitempty"`

	WeightIH_o []float32 `json:"weightIHo,omitempty"`
	WeightHH_o []float32 `json:"weightHHo,omitempty"`
	BiasH_o    []float32 `json:"biasHo,omitempty"`

	// Softmax parameters
	Temperature float32 `json:"temperature,omitempty"` // 0 is treated as 1.0
}
