package nn

import (
	"fmt"
	"math"
	"sort"
)

// Optimizer applies accumulated gradients to a network's weights.
type Optimizer interface {
	// Step applies gradients to network weights
	Step(network *Network, learningRate float32)

	// Reset clears optimizer state (momentum, etc.)
	Reset()

	// Name returns the optimizer name
	Name() string
}

// optimizerRegistry maps config-level optimizer names to constructors.
var optimizerRegistry = map[string]func() Optimizer{
	"sgd":     func() Optimizer { return NewSGDOptimizer(0.9) },
	"adam":    func() Optimizer { return NewAdamWOptimizer(0.9, 0.999, 1e-8, 0.0) },
	"adamw":   func() Optimizer { return NewAdamWOptimizer(0.9, 0.999, 1e-8, 0.01) },
	"rmsprop": func() Optimizer { return NewRMSpropOptimizer(0.99, 1e-8) },
}

// NewOptimizer returns an optimizer by its config-level name.
func NewOptimizer(name string) (Optimizer, error) {
	ctor, ok := optimizerRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown optimizer %q (known: %v)", name, OptimizerNames())
	}
	return ctor(), nil
}

// OptimizerNames lists the registered optimizer names, sorted.
func OptimizerNames() []string {
	names := make([]string, 0, len(optimizerRegistry))
	for name := range optimizerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ============================================================================
// SGD (with momentum)
// ============================================================================

type SGDOptimizer struct {
	momentum   float32
	velocities map[string][]float32
}

func NewSGDOptimizer(momentum float32) *SGDOptimizer {
	return &SGDOptimizer{
		momentum:   momentum,
		velocities: make(map[string][]float32),
	}
}

func (opt *SGDOptimizer) Step(network *Network, learningRate float32) {
	for i := range network.Layers {
		layer := &network.Layers[i]

		opt.update(fmt.Sprintf("weights_%d", i), layer.Weights, network.weightGradients[i], learningRate)
		opt.update(fmt.Sprintf("bias_%d", i), layer.Bias, network.biasGradients[i], learningRate)
	}
}

func (opt *SGDOptimizer) update(key string, params, grads []float32, learningRate float32) {
	if len(params) == 0 || len(grads) != len(params) {
		return
	}

	if opt.momentum == 0 {
		for j := range params {
			params[j] -= learningRate * grads[j]
		}
		return
	}

	if opt.velocities[key] == nil {
		opt.velocities[key] = make([]float32, len(params))
	}
	v := opt.velocities[key]

	// v = momentum * v + grad; w = w - lr * v
	for j := range params {
		v[j] = opt.momentum*v[j] + grads[j]
		params[j] -= learningRate * v[j]
	}
}

func (opt *SGDOptimizer) Reset() {
	opt.velocities = make(map[string][]float32)
}

func (opt *SGDOptimizer) Name() string {
	if opt.momentum > 0 {
		return "SGD (momentum)"
	}
	return "SGD"
}

// ============================================================================
// AdamW (Adam with decoupled weight decay)
// ============================================================================

type AdamWOptimizer struct {
	beta1       float32
	beta2       float32
	epsilon     float32
	weightDecay float32
	step        int

	m map[string][]float32 // first moment estimates
	v map[string][]float32 // second moment estimates
}

func NewAdamWOptimizer(beta1, beta2, epsilon, weightDecay float32) *AdamWOptimizer {
	return &AdamWOptimizer{
		beta1:       beta1,
		beta2:       beta2,
		epsilon:     epsilon,
		weightDecay: weightDecay,
		m:           make(map[string][]float32),
		v:           make(map[string][]float32),
	}
}

func (opt *AdamWOptimizer) Step(network *Network, learningRate float32) {
	opt.step++

	biasCorrection1 := 1.0 - float32(math.Pow(float64(opt.beta1), float64(opt.step)))
	biasCorrection2 := 1.0 - float32(math.Pow(float64(opt.beta2), float64(opt.step)))

	for i := range network.Layers {
		layer := &network.Layers[i]

		opt.update(fmt.Sprintf("weights_%d", i), layer.Weights, network.weightGradients[i],
			learningRate, biasCorrection1, biasCorrection2, opt.weightDecay)
		// Bias terms are not weight-decayed
		opt.update(fmt.Sprintf("bias_%d", i), layer.Bias, network.biasGradients[i],
			learningRate, biasCorrection1, biasCorrection2, 0)
	}
}

func (opt *AdamWOptimizer) update(key string, params, grads []float32, learningRate, bc1, bc2, weightDecay float32) {
	if len(params) == 0 || len(grads) != len(params) {
		return
	}

	if opt.m[key] == nil {
		opt.m[key] = make([]float32, len(params))
		opt.v[key] = make([]float32, len(params))
	}
	m := opt.m[key]
	v := opt.v[key]

	for j := range params {
		grad := grads[j]

		m[j] = opt.beta1*m[j] + (1-opt.beta1)*grad
		v[j] = opt.beta2*v[j] + (1-opt.beta2)*grad*grad

		mHat := m[j] / bc1
		vHat := v[j] / bc2

		params[j] -= learningRate * (mHat/(float32(math.Sqrt(float64(vHat)))+opt.epsilon) + weightDecay*params[j])
	}
}

func (opt *AdamWOptimizer) Reset() {
	opt.step = 0
	opt.m = make(map[string][]float32)
	opt.v = make(map[string][]float32)
}

func (opt *AdamWOptimizer) Name() string {
	if opt.weightDecay > 0 {
		return "AdamW"
	}
	return "Adam"
}

// ============================================================================
// RMSprop
// ============================================================================

type RMSpropOptimizer struct {
	alpha   float32 // decay rate
	epsilon float32

	v map[string][]float32 // running average of squared gradients
}

func NewRMSpropOptimizer(alpha, epsilon float32) *RMSpropOptimizer {
	return &RMSpropOptimizer{
		alpha:   alpha,
		epsilon: epsilon,
		v:       make(map[string][]float32),
	}
}

func (opt *RMSpropOptimizer) Step(network *Network, learningRate float32) {
	for i := range network.Layers {
		layer := &network.Layers[i]

		opt.update(fmt.Sprintf("weights_%d", i), layer.Weights, network.weightGradients[i], learningRate)
		opt.update(fmt.Sprintf("bias_%d", i), layer.Bias, network.biasGradients[i], learningRate)
	}
}

func (opt *RMSpropOptimizer) update(key string, params, grads []float32, learningRate float32) {
	if len(params) == 0 || len(grads) != len(params) {
		return
	}

	if opt.v[key] == nil {
		opt.v[key] = make([]float32, len(params))
	}
	v := opt.v[key]

	// v = alpha * v + (1 - alpha) * grad^2; w = w - lr * grad / sqrt(v + eps)
	for j := range params {
		grad := grads[j]
		v[j] = opt.alpha*v[j] + (1-opt.alpha)*grad*grad
		params[j] -= learningRate * grad / float32(math.Sqrt(float64(v[j]+opt.epsilon)))
	}
}

func (opt *RMSpropOptimizer) Reset() {
	opt.v = make(map[string][]float32)
}

func (opt *RMSpropOptimizer) Name() string {
	return "RMSprop"
}
