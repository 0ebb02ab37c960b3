// Package theorist holds the reasoning dimension: composites that model
// structure between variables rather than raw signals.
package theorist

import (
	"fmt"
	"time"

	"github.com/openfluke/tetramind/config"
	"github.com/openfluke/tetramind/nn"
)

// CausalInferenceEngine predicts node outcomes over a caller-supplied
// causal graph and estimates intervention effects by forwarding a modified
// copy of the input. A stack of graph convolutions encodes the nodes; a
// dense head reads out one outcome per node.
type CausalInferenceEngine struct {
	NumNodes   int
	FeatureDim int
	HiddenDim  int

	encoder []nn.LayerConfig
	head    *nn.Network

	learningRate float32
}

// DefaultCausalConfig returns the default hyperparameters for
// CausalInferenceEngine.
func DefaultCausalConfig() config.Config {
	return config.Config{
		"num_nodes":     8,
		"feature_dim":   4,
		"hidden_dim":    16,
		"graph_layers":  2,
		"learning_rate": 0.01,
	}
}

// NewCausalInferenceEngine constructs the composite from cfg. Construction
// fails on the first missing key.
func NewCausalInferenceEngine(cfg config.Config) (*CausalInferenceEngine, error) {
	numNodes, err := cfg.Int("num_nodes")
	if err != nil {
		return nil, err
	}
	featureDim, err := cfg.Int("feature_dim")
	if err != nil {
		return nil, err
	}
	hiddenDim, err := cfg.Int("hidden_dim")
	if err != nil {
		return nil, err
	}
	graphLayers, err := cfg.Int("graph_layers")
	if err != nil {
		return nil, err
	}
	learningRate, err := cfg.Float("learning_rate")
	if err != nil {
		return nil, err
	}

	var encoder []nn.LayerConfig
	inSize := featureDim
	for i := 0; i < graphLayers; i++ {
		encoder = append(encoder, nn.InitGraphConvLayer(inSize, hiddenDim, nn.ActivationReLU))
		inSize = hiddenDim
	}

	return &CausalInferenceEngine{
		NumNodes:     numNodes,
		FeatureDim:   featureDim,
		HiddenDim:    hiddenDim,
		encoder:      encoder,
		head:         nn.NewSequential(hiddenDim, nn.InitDenseLayer(hiddenDim, 1, nn.ActivationLinear)),
		learningRate: learningRate,
	}, nil
}

// encoderCache keeps per-layer forward values for the backward pass.
type encoderCache struct {
	inputs  [][]float32
	preActs [][]float32
	aggs    [][]float32
}

func (e *CausalInferenceEngine) encode(features, adjacency []float32) ([]float32, *encoderCache) {
	cache := &encoderCache{}
	current := features

	for i := range e.encoder {
		preAct, postAct, agg := nn.GraphConvForwardFull(&e.encoder[i], current, adjacency, e.NumNodes)
		cache.inputs = append(cache.inputs, current)
		cache.preActs = append(cache.preActs, preAct)
		cache.aggs = append(cache.aggs, agg)
		current = postAct
	}

	return current, cache
}

// Predict forwards node features through the encoder and head, returning
// one outcome value per node. features is [numNodes * featureDim];
// adjacency is a raw [numNodes * numNodes] matrix, normalized internally.
func (e *CausalInferenceEngine) Predict(features, adjacency []float32) ([]float32, error) {
	if len(features) != e.NumNodes*e.FeatureDim {
		return nil, fmt.Errorf("features length %d, expected %d", len(features), e.NumNodes*e.FeatureDim)
	}
	if len(adjacency) != e.NumNodes*e.NumNodes {
		return nil, fmt.Errorf("adjacency length %d, expected %d", len(adjacency), e.NumNodes*e.NumNodes)
	}

	norm := nn.NormalizeAdjacency(adjacency, e.NumNodes)
	embedded, _ := e.encode(features, norm)
	return e.head.Forward(embedded), nil
}

// EstimateEffect estimates the effect of an intervention that shifts the
// first feature of treatmentNode by delta: the do-difference in the
// predicted outcome at outcomeNode.
func (e *CausalInferenceEngine) EstimateEffect(features, adjacency []float32, treatmentNode, outcomeNode int, delta float32) (float32, error) {
	if treatmentNode < 0 || treatmentNode >= e.NumNodes {
		return 0, fmt.Errorf("treatment node %d out of range [0, %d)", treatmentNode, e.NumNodes)
	}
	if outcomeNode < 0 || outcomeNode >= e.NumNodes {
		return 0, fmt.Errorf("outcome node %d out of range [0, %d)", outcomeNode, e.NumNodes)
	}

	base, err := e.Predict(features, adjacency)
	if err != nil {
		return 0, err
	}

	intervened := make([]float32, len(features))
	copy(intervened, features)
	intervened[treatmentNode*e.FeatureDim] += delta

	shifted, err := e.Predict(intervened, adjacency)
	if err != nil {
		return 0, err
	}

	return shifted[outcomeNode] - base[outcomeNode], nil
}

// Adjuster estimates an intervention effect corrected for confounding.
// Implementations decide how covariates enter the estimate.
type Adjuster interface {
	Adjust(e *CausalInferenceEngine, adjacency []float32, treatmentNode, outcomeNode int, delta float32) (float32, error)
}

// BackdoorAdjuster adjusts over a fixed set of empirical covariate
// samples.
type BackdoorAdjuster struct {
	Samples [][]float32
}

func (a *BackdoorAdjuster) Adjust(e *CausalInferenceEngine, adjacency []float32, treatmentNode, outcomeNode int, delta float32) (float32, error) {
	return e.BackdoorAdjust(a.Samples, adjacency, treatmentNode, outcomeNode, delta)
}

// BackdoorAdjust averages the intervention effect over the empirical
// covariate distribution: each sample is one observed configuration of all
// node features, and the adjusted effect is the mean per-sample effect.
func (e *CausalInferenceEngine) BackdoorAdjust(samples [][]float32, adjacency []float32, treatmentNode, outcomeNode int, delta float32) (float32, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("no covariate samples provided")
	}

	total := float32(0)
	for i, features := range samples {
		effect, err := e.EstimateEffect(features, adjacency, treatmentNode, outcomeNode, delta)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		total += effect
	}
	return total / float32(len(samples)), nil
}

// TrainingResult contains per-epoch outcome-prediction losses.
type TrainingResult struct {
	LossHistory []float64
	TotalTime   time.Duration
}

// Train fits the engine to observed (features, outcomes) pairs over a
// fixed adjacency, minimizing MSE on the per-node outcomes.
func (e *CausalInferenceEngine) Train(featureSets [][]float32, outcomes [][]float32, adjacency []float32, epochs int, verbose bool) (*TrainingResult, error) {
	if len(featureSets) != len(outcomes) {
		return nil, fmt.Errorf("feature count %d does not match outcome count %d", len(featureSets), len(outcomes))
	}
	if len(featureSets) == 0 {
		return nil, fmt.Errorf("no training data provided")
	}
	if len(adjacency) != e.NumNodes*e.NumNodes {
		return nil, fmt.Errorf("adjacency length %d, expected %d", len(adjacency), e.NumNodes*e.NumNodes)
	}

	norm := nn.NormalizeAdjacency(adjacency, e.NumNodes)

	result := &TrainingResult{LossHistory: make([]float64, 0, epochs)}
	start := time.Now()

	for epoch := 0; epoch < epochs; epoch++ {
		epochLoss := float64(0)

		for i := range featureSets {
			loss, err := e.trainStep(featureSets[i], outcomes[i], norm)
			if err != nil {
				return nil, err
			}
			epochLoss += float64(loss)
		}

		avg := epochLoss / float64(len(featureSets))
		result.LossHistory = append(result.LossHistory, avg)
		if verbose {
			fmt.Printf("  [causal] Epoch %d/%d - Loss: %.4f\n", epoch+1, epochs, avg)
		}
	}

	result.TotalTime = time.Since(start)
	return result, nil
}

func (e *CausalInferenceEngine) trainStep(features, targets, normAdjacency []float32) (float32, error) {
	if len(features) != e.NumNodes*e.FeatureDim {
		return 0, fmt.Errorf("features length %d, expected %d", len(features), e.NumNodes*e.FeatureDim)
	}
	if len(targets) != e.NumNodes {
		return 0, fmt.Errorf("targets length %d, expected %d", len(targets), e.NumNodes)
	}

	embedded, cache := e.encode(features, normAdjacency)

	e.head.ZeroGradients()
	pred := e.head.Forward(embedded)

	loss := nn.MSELoss(pred, targets)
	gradEmbedded := e.head.Backward(nn.MSEGradient(pred, targets))
	e.head.ApplyGradients(e.learningRate)

	// Backward through the encoder stack with plain SGD updates
	grad := gradEmbedded
	for i := len(e.encoder) - 1; i >= 0; i-- {
		gradInput, gradW, gradB := nn.GraphConvBackward(&e.encoder[i], grad, cache.aggs[i], cache.preActs[i], normAdjacency, e.NumNodes)

		layer := &e.encoder[i]
		for j := range layer.Weights {
			layer.Weights[j] -= e.learningRate * gradW[j]
		}
		for j := range layer.Bias {
			layer.Bias[j] -= e.learningRate * gradB[j]
		}

		grad = gradInput
	}

	return loss, nil
}

// EncoderLayer exposes a layer of the graph encoder, for inspection.
func (e *CausalInferenceEngine) EncoderLayer(i int) *nn.LayerConfig {
	return &e.encoder[i]
}
