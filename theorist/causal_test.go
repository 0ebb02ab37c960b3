package theorist

import (
	"errors"
	"math"
	"testing"

	"github.com/openfluke/tetramind/config"
)

func chainAdjacency(n int) []float32 {
	adj := make([]float32, n*n)
	for i := 0; i < n-1; i++ {
		adj[i*n+i+1] = 1
	}
	return adj
}

func TestDefaultConfigConstructs(t *testing.T) {
	engine, err := NewCausalInferenceEngine(DefaultCausalConfig())
	if err != nil {
		t.Fatalf("default config should construct: %v", err)
	}
	if engine.NumNodes != 8 || engine.HiddenDim != 16 {
		t.Errorf("unexpected dimensions: nodes=%d hidden=%d", engine.NumNodes, engine.HiddenDim)
	}
}

func TestEveryMissingKeyFails(t *testing.T) {
	full := DefaultCausalConfig()

	for key := range full {
		cfg := full.Clone()
		delete(cfg, key)

		_, err := NewCausalInferenceEngine(cfg)
		var mk *config.MissingKeyError
		if err == nil || !errors.As(err, &mk) || mk.Key != key {
			t.Errorf("key %q: expected MissingKeyError naming it, got %v", key, err)
		}
	}
}

func TestReconstructionIsIndependent(t *testing.T) {
	cfg := DefaultCausalConfig()

	a, _ := NewCausalInferenceEngine(cfg)
	b, _ := NewCausalInferenceEngine(cfg)

	before := b.EncoderLayer(0).Weights[0]
	a.EncoderLayer(0).Weights[0] += 100

	if b.EncoderLayer(0).Weights[0] != before {
		t.Error("mutating one composite leaked into the other")
	}
}

func TestPredictOutputWidth(t *testing.T) {
	engine, err := NewCausalInferenceEngine(DefaultCausalConfig())
	if err != nil {
		t.Fatal(err)
	}

	features := make([]float32, engine.NumNodes*engine.FeatureDim)
	out, err := engine.Predict(features, chainAdjacency(engine.NumNodes))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(out) != engine.NumNodes {
		t.Errorf("expected one outcome per node (%d), got %d", engine.NumNodes, len(out))
	}

	if _, err := engine.Predict(features[:1], chainAdjacency(engine.NumNodes)); err == nil {
		t.Error("expected error for wrong features length")
	}
}

func TestZeroInterventionHasZeroEffect(t *testing.T) {
	engine, err := NewCausalInferenceEngine(DefaultCausalConfig())
	if err != nil {
		t.Fatal(err)
	}

	features := make([]float32, engine.NumNodes*engine.FeatureDim)
	for i := range features {
		features[i] = float32(i%3) * 0.1
	}

	effect, err := engine.EstimateEffect(features, chainAdjacency(engine.NumNodes), 0, 3, 0)
	if err != nil {
		t.Fatalf("EstimateEffect failed: %v", err)
	}
	if effect != 0 {
		t.Errorf("delta=0 must produce zero effect, got %f", effect)
	}
}

func TestEstimateEffectValidatesNodes(t *testing.T) {
	engine, err := NewCausalInferenceEngine(DefaultCausalConfig())
	if err != nil {
		t.Fatal(err)
	}

	features := make([]float32, engine.NumNodes*engine.FeatureDim)
	adj := chainAdjacency(engine.NumNodes)

	if _, err := engine.EstimateEffect(features, adj, -1, 0, 1); err == nil {
		t.Error("expected error for negative treatment node")
	}
	if _, err := engine.EstimateEffect(features, adj, 0, engine.NumNodes, 1); err == nil {
		t.Error("expected error for out-of-range outcome node")
	}
}

func TestBackdoorAdjustIsMeanEffect(t *testing.T) {
	engine, err := NewCausalInferenceEngine(DefaultCausalConfig())
	if err != nil {
		t.Fatal(err)
	}

	adj := chainAdjacency(engine.NumNodes)
	samples := make([][]float32, 3)
	for s := range samples {
		f := make([]float32, engine.NumNodes*engine.FeatureDim)
		for i := range f {
			f[i] = float32((s+1)*(i%4)) * 0.05
		}
		samples[s] = f
	}

	adjusted, err := engine.BackdoorAdjust(samples, adj, 0, 2, 0.5)
	if err != nil {
		t.Fatalf("BackdoorAdjust failed: %v", err)
	}

	sum := float32(0)
	for _, f := range samples {
		effect, err := engine.EstimateEffect(f, adj, 0, 2, 0.5)
		if err != nil {
			t.Fatal(err)
		}
		sum += effect
	}
	mean := sum / float32(len(samples))

	if math.Abs(float64(adjusted-mean)) > 1e-5 {
		t.Errorf("adjusted effect %f should equal mean per-sample effect %f", adjusted, mean)
	}

	if _, err := engine.BackdoorAdjust(nil, adj, 0, 2, 0.5); err == nil {
		t.Error("expected error for empty sample set")
	}

	var adjuster Adjuster = &BackdoorAdjuster{Samples: samples}
	viaAdjuster, err := adjuster.Adjust(engine, adj, 0, 2, 0.5)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if viaAdjuster != adjusted {
		t.Errorf("Adjuster gave %f, direct call gave %f", viaAdjuster, adjusted)
	}
}

func TestTrainReducesLoss(t *testing.T) {
	engine, err := NewCausalInferenceEngine(DefaultCausalConfig())
	if err != nil {
		t.Fatal(err)
	}

	adj := chainAdjacency(engine.NumNodes)

	featureSets := make([][]float32, 4)
	outcomes := make([][]float32, 4)
	for s := range featureSets {
		f := make([]float32, engine.NumNodes*engine.FeatureDim)
		y := make([]float32, engine.NumNodes)
		for i := range f {
			f[i] = float32((s+i)%5) * 0.1
		}
		for i := range y {
			// Outcome correlated with the node's first feature
			y[i] = f[i*engine.FeatureDim] * 0.5
		}
		featureSets[s] = f
		outcomes[s] = y
	}

	result, err := engine.Train(featureSets, outcomes, adj, 40, false)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if len(result.LossHistory) != 40 {
		t.Fatalf("expected 40 epochs of losses, got %d", len(result.LossHistory))
	}
	first := result.LossHistory[0]
	last := result.LossHistory[len(result.LossHistory)-1]
	if last >= first {
		t.Errorf("loss did not decrease: first %f, last %f", first, last)
	}
}
