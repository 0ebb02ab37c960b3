// Package dreamer holds the generative dimension: composites that invent
// new samples rather than analyze existing ones.
package dreamer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/openfluke/tetramind/config"
	"github.com/openfluke/tetramind/nn"
)

// CreativeGAN is a generator/discriminator pair built from one flat
// configuration mapping. The generator maps latent noise to samples; the
// discriminator scores samples as real or generated.
type CreativeGAN struct {
	LatentDim int
	HiddenDim int
	OutputDim int

	Generator     *nn.Network
	Discriminator *nn.Network

	learningRate float32
	genOpt       nn.Optimizer
	discOpt      nn.Optimizer
}

// DefaultCreativeGANConfig returns the default hyperparameters for
// CreativeGAN. Every key NewCreativeGAN dereferences is present.
func DefaultCreativeGANConfig() config.Config {
	return config.Config{
		"latent_dim":           16,
		"hidden_dim":           64,
		"output_dim":           32,
		"generator_layers":     2,
		"discriminator_layers": 2,
		"learning_rate":        0.001,
		"optimizer":            "adam",
	}
}

// NewCreativeGAN constructs the composite from cfg. Construction fails on
// the first missing key; values are not range-checked.
func NewCreativeGAN(cfg config.Config) (*CreativeGAN, error) {
	latentDim, err := cfg.Int("latent_dim")
	if err != nil {
		return nil, err
	}
	hiddenDim, err := cfg.Int("hidden_dim")
	if err != nil {
		return nil, err
	}
	outputDim, err := cfg.Int("output_dim")
	if err != nil {
		return nil, err
	}
	genLayers, err := cfg.Int("generator_layers")
	if err != nil {
		return nil, err
	}
	discLayers, err := cfg.Int("discriminator_layers")
	if err != nil {
		return nil, err
	}
	learningRate, err := cfg.Float("learning_rate")
	if err != nil {
		return nil, err
	}
	optName, err := cfg.Str("optimizer")
	if err != nil {
		return nil, err
	}

	genOpt, err := nn.NewOptimizer(optName)
	if err != nil {
		return nil, fmt.Errorf("generator optimizer: %w", err)
	}
	discOpt, err := nn.NewOptimizer(optName)
	if err != nil {
		return nil, fmt.Errorf("discriminator optimizer: %w", err)
	}

	// Generator: latent -> hidden x N -> output, tanh keeps samples in [-1, 1]
	var gLayers []nn.LayerConfig
	inSize := latentDim
	for i := 0; i < genLayers; i++ {
		gLayers = append(gLayers, nn.InitDenseLayer(inSize, hiddenDim, nn.ActivationLeakyReLU))
		inSize = hiddenDim
	}
	gLayers = append(gLayers, nn.InitDenseLayer(inSize, outputDim, nn.ActivationTanh))

	// Discriminator: output -> hidden x N -> real/fake probability
	var dLayers []nn.LayerConfig
	inSize = outputDim
	for i := 0; i < discLayers; i++ {
		dLayers = append(dLayers, nn.InitDenseLayer(inSize, hiddenDim, nn.ActivationLeakyReLU))
		inSize = hiddenDim
	}
	dLayers = append(dLayers, nn.InitDenseLayer(inSize, 1, nn.ActivationSigmoid))

	return &CreativeGAN{
		LatentDim:     latentDim,
		HiddenDim:     hiddenDim,
		OutputDim:     outputDim,
		Generator:     nn.NewSequential(latentDim, gLayers...),
		Discriminator: nn.NewSequential(outputDim, dLayers...),
		learningRate:  learningRate,
		genOpt:        genOpt,
		discOpt:       discOpt,
	}, nil
}

// SampleLatent draws n standard-normal latent vectors, flattened.
func (g *CreativeGAN) SampleLatent(n int) []float32 {
	noise := make([]float32, n*g.LatentDim)
	for i := range noise {
		noise[i] = float32(rand.NormFloat64())
	}
	return noise
}

// Generate runs the generator on flattened noise vectors. The noise length
// must be a multiple of LatentDim; the result is n x OutputDim, flattened.
func (g *CreativeGAN) Generate(noise []float32) ([]float32, error) {
	if len(noise) == 0 || len(noise)%g.LatentDim != 0 {
		return nil, fmt.Errorf("noise length %d is not a multiple of latent_dim %d", len(noise), g.LatentDim)
	}
	return g.Generator.Forward(noise), nil
}

// TrainingConfig holds the adversarial loop settings.
type TrainingConfig struct {
	Epochs    int
	BatchSize int
	Verbose   bool
}

// DefaultTrainingConfig returns sensible defaults
func DefaultTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		Epochs:    10,
		BatchSize: 16,
		Verbose:   false,
	}
}

// TrainingResult contains per-epoch adversarial losses.
type TrainingResult struct {
	GeneratorLoss     []float64
	DiscriminatorLoss []float64
	TotalTime         time.Duration
}

// Train runs the adversarial loop over real samples. Each batch first
// updates the discriminator on real (target 1) and generated (target 0)
// samples, then updates the generator to push its samples toward 1.
func (g *CreativeGAN) Train(samples [][]float32, tc *TrainingConfig) (*TrainingResult, error) {
	if tc == nil {
		tc = DefaultTrainingConfig()
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no training samples provided")
	}
	for i, s := range samples {
		if len(s) != g.OutputDim {
			return nil, fmt.Errorf("sample %d has width %d, expected output_dim %d", i, len(s), g.OutputDim)
		}
	}

	batchSize := tc.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	result := &TrainingResult{
		GeneratorLoss:     make([]float64, 0, tc.Epochs),
		DiscriminatorLoss: make([]float64, 0, tc.Epochs),
	}
	start := time.Now()

	for epoch := 0; epoch < tc.Epochs; epoch++ {
		epochDLoss := float64(0)
		epochGLoss := float64(0)
		numBatches := 0

		for off := 0; off < len(samples); off += batchSize {
			end := off + batchSize
			if end > len(samples) {
				end = len(samples)
			}
			n := end - off

			realBatch := make([]float32, n*g.OutputDim)
			for i := 0; i < n; i++ {
				copy(realBatch[i*g.OutputDim:], samples[off+i])
			}

			ones := constTarget(n, 1)
			zeros := constTarget(n, 0)

			// Discriminator step
			g.Discriminator.ZeroGradients()

			realOut := g.Discriminator.Forward(realBatch)
			dLoss := nn.BCELoss(realOut, ones)
			g.Discriminator.Backward(nn.BCEGradient(realOut, ones))

			fake, err := g.Generate(g.SampleLatent(n))
			if err != nil {
				return nil, err
			}
			fakeOut := g.Discriminator.Forward(fake)
			dLoss += nn.BCELoss(fakeOut, zeros)
			g.Discriminator.Backward(nn.BCEGradient(fakeOut, zeros))

			g.discOpt.Step(g.Discriminator, g.learningRate)

			// Generator step: fool the discriminator
			g.Generator.ZeroGradients()
			g.Discriminator.ZeroGradients()

			fake = g.Generator.Forward(g.SampleLatent(n))
			fakeOut = g.Discriminator.Forward(fake)
			gLoss := nn.BCELoss(fakeOut, ones)

			gradFake := g.Discriminator.Backward(nn.BCEGradient(fakeOut, ones))
			g.Generator.Backward(gradFake)
			g.genOpt.Step(g.Generator, g.learningRate)

			// Discard the discriminator gradients from the generator step
			g.Discriminator.ZeroGradients()

			epochDLoss += float64(dLoss) / 2
			epochGLoss += float64(gLoss)
			numBatches++
		}

		result.DiscriminatorLoss = append(result.DiscriminatorLoss, epochDLoss/float64(numBatches))
		result.GeneratorLoss = append(result.GeneratorLoss, epochGLoss/float64(numBatches))

		if tc.Verbose {
			fmt.Printf("  [GAN] Epoch %d/%d - D: %.4f, G: %.4f\n",
				epoch+1, tc.Epochs, epochDLoss/float64(numBatches), epochGLoss/float64(numBatches))
		}
	}

	result.TotalTime = time.Since(start)
	return result, nil
}

func constTarget(n int, v float32) []float32 {
	t := make([]float32, n)
	for i := range t {
		t[i] = v
	}
	return t
}
