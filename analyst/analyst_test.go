package analyst

import (
	"errors"
	"math"
	"testing"

	"github.com/openfluke/tetramind/config"
)

func TestForecastDefaultConfigConstructs(t *testing.T) {
	engine, err := NewForecastingEngine(DefaultForecastConfig())
	if err != nil {
		t.Fatalf("default config should construct: %v", err)
	}
	if engine.WindowSize != 8 {
		t.Errorf("expected window size 8, got %d", engine.WindowSize)
	}
}

func TestForecastMissingKeys(t *testing.T) {
	base := DefaultForecastConfig()
	for key := range base {
		cfg := base.Clone()
		delete(cfg, key)
		_, err := NewForecastingEngine(cfg)
		if err == nil {
			t.Errorf("expected error for missing key %q", key)
			continue
		}
		var mk *config.MissingKeyError
		if !errors.As(err, &mk) {
			t.Errorf("expected MissingKeyError for %q, got %v", key, err)
			continue
		}
		if mk.Key != key {
			t.Errorf("expected error to name %q, got %q", key, mk.Key)
		}
	}
}

func TestForecastHorizonLength(t *testing.T) {
	engine, err := NewForecastingEngine(DefaultForecastConfig())
	if err != nil {
		t.Fatal(err)
	}

	series := make([]float32, 20)
	for i := range series {
		series[i] = float32(math.Sin(float64(i) * 0.4))
	}

	forecast, err := engine.Forecast(series, 5)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(forecast) != 5 {
		t.Errorf("expected 5 forecast values, got %d", len(forecast))
	}
}

func TestForecastShortSeries(t *testing.T) {
	engine, err := NewForecastingEngine(DefaultForecastConfig())
	if err != nil {
		t.Fatal(err)
	}

	short := make([]float32, engine.WindowSize-1)
	if _, err := engine.Forecast(short, 3); err == nil {
		t.Error("expected error for series shorter than window")
	}
	full := make([]float32, engine.WindowSize)
	if _, err := engine.Forecast(full, 0); err == nil {
		t.Error("expected error for non-positive horizon")
	}
}

func TestForecastTrainReducesLoss(t *testing.T) {
	cfg := DefaultForecastConfig()
	cfg["window_size"] = 4
	cfg["hidden_size"] = 8
	engine, err := NewForecastingEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Constant series: the easiest possible target.
	series := make([]float32, 30)
	for i := range series {
		series[i] = 0.5
	}

	result, err := engine.Train(series, 30, false)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(result.LossHistory) != 30 {
		t.Fatalf("expected 30 loss entries, got %d", len(result.LossHistory))
	}
	first := result.LossHistory[0]
	last := result.LossHistory[len(result.LossHistory)-1]
	if last >= first {
		t.Errorf("expected loss to decrease, got %f -> %f", first, last)
	}

	if _, err := engine.Train(series[:4], 5, false); err == nil {
		t.Error("expected error for series with no training windows")
	}
}

func TestAnomalyDefaultConfigConstructs(t *testing.T) {
	detector, err := NewAnomalyDetector(DefaultAnomalyConfig())
	if err != nil {
		t.Fatalf("default config should construct: %v", err)
	}
	if detector.InputDim != 8 {
		t.Errorf("expected input dim 8, got %d", detector.InputDim)
	}
}

func TestAnomalyMissingKeys(t *testing.T) {
	base := DefaultAnomalyConfig()
	for key := range base {
		cfg := base.Clone()
		delete(cfg, key)
		_, err := NewAnomalyDetector(cfg)
		if err == nil {
			t.Errorf("expected error for missing key %q", key)
			continue
		}
		var mk *config.MissingKeyError
		if !errors.As(err, &mk) {
			t.Errorf("expected MissingKeyError for %q, got %v", key, err)
			continue
		}
		if mk.Key != key {
			t.Errorf("expected error to name %q, got %q", key, mk.Key)
		}
	}
}

func TestAnomalyCalibrationSamplesPass(t *testing.T) {
	cfg := DefaultAnomalyConfig()
	cfg["input_dim"] = 4
	cfg["bottleneck"] = 2
	detector, err := NewAnomalyDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}

	normal := [][]float32{
		{0.1, 0.2, 0.1, 0.2},
		{0.2, 0.1, 0.2, 0.1},
		{0.15, 0.15, 0.15, 0.15},
	}
	if _, err := detector.Calibrate(normal, 50, false); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}

	// The threshold is the worst calibration error times a margin above
	// 1, so every calibration sample must pass.
	for i, sample := range normal {
		anomalous, err := detector.IsAnomalous(sample)
		if err != nil {
			t.Fatal(err)
		}
		if anomalous {
			t.Errorf("calibration sample %d flagged as anomalous", i)
		}
	}
}

func TestAnomalyBeforeCalibration(t *testing.T) {
	detector, err := NewAnomalyDetector(DefaultAnomalyConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := detector.IsAnomalous(make([]float32, detector.InputDim)); err == nil {
		t.Error("expected error before calibration")
	}
}

func TestAnomalyZeroThresholdAfterCalibration(t *testing.T) {
	cfg := DefaultAnomalyConfig()
	cfg["input_dim"] = 4
	cfg["bottleneck"] = 2
	detector, err := NewAnomalyDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}

	normal := [][]float32{{0.1, 0.1, 0.1, 0.1}}
	if _, err := detector.Calibrate(normal, 20, false); err != nil {
		t.Fatal(err)
	}

	// A perfectly reconstructed calibration set yields threshold 0;
	// that must still count as calibrated
	detector.Threshold = 0
	anomalous, err := detector.IsAnomalous([]float32{5, 5, 5, 5})
	if err != nil {
		t.Fatalf("calibrated detector rejected a query: %v", err)
	}
	if !anomalous {
		t.Error("sample above a zero threshold should be flagged")
	}
}

func TestAnomalyRejectsWrongWidth(t *testing.T) {
	detector, err := NewAnomalyDetector(DefaultAnomalyConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := detector.Score(make([]float32, detector.InputDim+1)); err == nil {
		t.Error("expected error for wrong sample width")
	}
	if _, err := detector.Calibrate(nil, 10, false); err == nil {
		t.Error("expected error for empty calibration set")
	}
}

func TestAnomalyDistantSampleFlagged(t *testing.T) {
	cfg := DefaultAnomalyConfig()
	cfg["input_dim"] = 4
	cfg["bottleneck"] = 2
	detector, err := NewAnomalyDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}

	normal := make([][]float32, 8)
	for i := range normal {
		normal[i] = []float32{0.1, 0.1, 0.1, 0.1}
	}
	if _, err := detector.Calibrate(normal, 200, false); err != nil {
		t.Fatal(err)
	}

	score, err := detector.Score([]float32{50, -50, 50, -50})
	if err != nil {
		t.Fatal(err)
	}
	normalScore, err := detector.Score(normal[0])
	if err != nil {
		t.Fatal(err)
	}
	if score <= normalScore {
		t.Errorf("distant sample scored %f, not above normal score %f", score, normalScore)
	}
}
