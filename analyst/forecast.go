// Package analyst provides the analytical dimension: time-series
// forecasting and reconstruction-based anomaly detection.
package analyst

import (
	"fmt"
	"time"

	"github.com/openfluke/tetramind/config"
	"github.com/openfluke/tetramind/nn"
)

// ForecastingEngine predicts future values of a univariate series. A
// recurrent encoder reads a sliding window and a dense head maps the
// final hidden state to the next value.
type ForecastingEngine struct {
	WindowSize int
	HiddenSize int

	recurrent nn.LayerConfig
	head      *nn.Network

	learningRate float32
}

// DefaultForecastConfig returns the default hyperparameters for
// ForecastingEngine.
func DefaultForecastConfig() config.Config {
	return config.Config{
		"window_size":   8,
		"hidden_size":   16,
		"learning_rate": 0.01,
	}
}

// NewForecastingEngine constructs the composite from cfg. Construction
// fails on the first missing key.
func NewForecastingEngine(cfg config.Config) (*ForecastingEngine, error) {
	windowSize, err := cfg.Int("window_size")
	if err != nil {
		return nil, err
	}
	hiddenSize, err := cfg.Int("hidden_size")
	if err != nil {
		return nil, err
	}
	learningRate, err := cfg.Float("learning_rate")
	if err != nil {
		return nil, err
	}

	return &ForecastingEngine{
		WindowSize: windowSize,
		HiddenSize: hiddenSize,
		recurrent:  nn.InitLSTMLayer(1, hiddenSize, windowSize),
		head: nn.NewSequential(hiddenSize,
			nn.InitDenseLayer(hiddenSize, 1, nn.ActivationLinear),
		),
		learningRate: learningRate,
	}, nil
}

// TrainingResult contains per-epoch losses for a forecasting fit.
type TrainingResult struct {
	LossHistory []float64
	TotalTime   time.Duration
}

// Train fits the engine on every sliding window of the series, each
// window predicting the value that follows it.
func (e *ForecastingEngine) Train(series []float32, epochs int, verbose bool) (*TrainingResult, error) {
	if len(series) < e.WindowSize+1 {
		return nil, fmt.Errorf("series length %d too short for window %d plus target", len(series), e.WindowSize)
	}

	numWindows := len(series) - e.WindowSize
	result := &TrainingResult{
		LossHistory: make([]float64, 0, epochs),
	}
	start := time.Now()

	for epoch := 0; epoch < epochs; epoch++ {
		var epochLoss float64
		for w := 0; w < numWindows; w++ {
			window := series[w : w+e.WindowSize]
			target := []float32{series[w+e.WindowSize]}
			loss := nn.LSTMTrainStep(&e.recurrent, e.head, window, target, 1, e.learningRate)
			epochLoss += float64(loss)
		}
		epochLoss /= float64(numWindows)
		result.LossHistory = append(result.LossHistory, epochLoss)

		if verbose && (epoch+1)%10 == 0 {
			fmt.Printf("  [Forecast] Epoch %d/%d - Loss: %.6f\n", epoch+1, epochs, epochLoss)
		}
	}

	result.TotalTime = time.Since(start)
	return result, nil
}

// predictNext predicts the value following one full window.
func (e *ForecastingEngine) predictNext(window []float32) float32 {
	seqOut := nn.LSTMForward(&e.recurrent, window, 1)
	last := seqOut[(e.WindowSize-1)*e.HiddenSize : e.WindowSize*e.HiddenSize]
	return e.head.Forward(last)[0]
}

// Forecast predicts horizon future values by iterated one-step
// prediction: each prediction is appended to the window for the next.
// The series must cover at least one window.
func (e *ForecastingEngine) Forecast(series []float32, horizon int) ([]float32, error) {
	if len(series) < e.WindowSize {
		return nil, fmt.Errorf("series length %d shorter than window %d", len(series), e.WindowSize)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	window := make([]float32, e.WindowSize)
	copy(window, series[len(series)-e.WindowSize:])

	forecast := make([]float32, 0, horizon)
	for i := 0; i < horizon; i++ {
		next := e.predictNext(window)
		forecast = append(forecast, next)
		copy(window, window[1:])
		window[e.WindowSize-1] = next
	}

	return forecast, nil
}
