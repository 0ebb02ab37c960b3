package analyst

import (
	"fmt"
	"time"

	"github.com/openfluke/tetramind/config"
	"github.com/openfluke/tetramind/nn"
)

// AnomalyDetector scores inputs by autoencoder reconstruction error. A
// detector is calibrated on normal data; inputs that reconstruct worse
// than anything seen during calibration, by more than the margin, are
// flagged.
type AnomalyDetector struct {
	InputDim  int
	Margin    float32
	Threshold float32

	calibrated  bool
	autoencoder *nn.Network

	learningRate float32
	optimizer    nn.Optimizer
}

// DefaultAnomalyConfig returns the default hyperparameters for
// AnomalyDetector.
func DefaultAnomalyConfig() config.Config {
	return config.Config{
		"input_dim":     8,
		"bottleneck":    3,
		"learning_rate": 0.01,
		"margin":        1.5,
		"optimizer":     "adam",
	}
}

// NewAnomalyDetector constructs the composite from cfg. Construction
// fails on the first missing key.
func NewAnomalyDetector(cfg config.Config) (*AnomalyDetector, error) {
	inputDim, err := cfg.Int("input_dim")
	if err != nil {
		return nil, err
	}
	bottleneck, err := cfg.Int("bottleneck")
	if err != nil {
		return nil, err
	}
	learningRate, err := cfg.Float("learning_rate")
	if err != nil {
		return nil, err
	}
	margin, err := cfg.Float("margin")
	if err != nil {
		return nil, err
	}
	optName, err := cfg.Str("optimizer")
	if err != nil {
		return nil, err
	}

	opt, err := nn.NewOptimizer(optName)
	if err != nil {
		return nil, err
	}

	autoencoder := nn.NewSequential(inputDim,
		nn.InitDenseLayer(inputDim, bottleneck, nn.ActivationTanh),
		nn.InitDenseLayer(bottleneck, inputDim, nn.ActivationLinear),
	)

	return &AnomalyDetector{
		InputDim:     inputDim,
		Margin:       margin,
		autoencoder:  autoencoder,
		learningRate: learningRate,
		optimizer:    opt,
	}, nil
}

// Reconstruct passes one sample through the autoencoder.
func (d *AnomalyDetector) Reconstruct(sample []float32) ([]float32, error) {
	if len(sample) != d.InputDim {
		return nil, fmt.Errorf("sample length %d does not match input dim %d", len(sample), d.InputDim)
	}
	return d.autoencoder.Forward(sample), nil
}

// Score returns the mean squared reconstruction error of one sample.
func (d *AnomalyDetector) Score(sample []float32) (float32, error) {
	recon, err := d.Reconstruct(sample)
	if err != nil {
		return 0, err
	}
	return nn.MSELoss(recon, sample), nil
}

// Calibrate trains the autoencoder on normal samples and sets the
// anomaly threshold to the worst training reconstruction error times
// the margin.
func (d *AnomalyDetector) Calibrate(normal [][]float32, epochs int, verbose bool) (*TrainingResult, error) {
	if len(normal) == 0 {
		return nil, fmt.Errorf("no calibration samples provided")
	}
	for i, sample := range normal {
		if len(sample) != d.InputDim {
			return nil, fmt.Errorf("sample %d has length %d, expected %d", i, len(sample), d.InputDim)
		}
	}

	result := &TrainingResult{
		LossHistory: make([]float64, 0, epochs),
	}
	start := time.Now()

	for epoch := 0; epoch < epochs; epoch++ {
		var epochLoss float64
		for _, sample := range normal {
			recon := d.autoencoder.Forward(sample)
			epochLoss += float64(nn.MSELoss(recon, sample))

			d.autoencoder.ZeroGradients()
			d.autoencoder.Backward(nn.MSEGradient(recon, sample))
			d.optimizer.Step(d.autoencoder, d.learningRate)
		}
		epochLoss /= float64(len(normal))
		result.LossHistory = append(result.LossHistory, epochLoss)

		if verbose && (epoch+1)%10 == 0 {
			fmt.Printf("  [Anomaly] Epoch %d/%d - Loss: %.6f\n", epoch+1, epochs, epochLoss)
		}
	}

	var worst float32
	for _, sample := range normal {
		score, err := d.Score(sample)
		if err != nil {
			return nil, err
		}
		if score > worst {
			worst = score
		}
	}
	d.Threshold = worst * d.Margin
	d.calibrated = true

	result.TotalTime = time.Since(start)
	return result, nil
}

// IsAnomalous reports whether a sample reconstructs worse than the
// calibrated threshold. Calling it before Calibrate is an error.
func (d *AnomalyDetector) IsAnomalous(sample []float32) (bool, error) {
	if !d.calibrated {
		return false, fmt.Errorf("detector has not been calibrated")
	}
	score, err := d.Score(sample)
	if err != nil {
		return false, err
	}
	return score > d.Threshold, nil
}
