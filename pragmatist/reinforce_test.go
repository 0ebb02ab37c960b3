package pragmatist

import (
	"errors"
	"math"
	"testing"

	"github.com/openfluke/tetramind/config"
)

// banditEnv is a two-armed bandit: arm 0 always pays 1, arm 1 pays 0.
// Each episode is a single step.
type banditEnv struct{}

func (banditEnv) Reset() []float32 { return []float32{1, 0, 0, 0} }

func (banditEnv) Step(action int) ([]float32, float32, bool) {
	reward := float32(0)
	if action == 0 {
		reward = 1
	}
	return []float32{1, 0, 0, 0}, reward, true
}

func TestReinforcementDefaultConfigConstructs(t *testing.T) {
	engine, err := NewReinforcementEngine(DefaultReinforcementConfig())
	if err != nil {
		t.Fatalf("default config should construct: %v", err)
	}
	if engine.StateDim != 4 || engine.ActionDim != 2 {
		t.Errorf("unexpected dimensions: state=%d action=%d", engine.StateDim, engine.ActionDim)
	}
}

func TestReinforcementMissingKeys(t *testing.T) {
	base := DefaultReinforcementConfig()
	for key := range base {
		cfg := base.Clone()
		delete(cfg, key)
		_, err := NewReinforcementEngine(cfg)
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

func TestReinforcementIndependentInstances(t *testing.T) {
	cfg := DefaultReinforcementConfig()
	a, err := NewReinforcementEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewReinforcementEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	before := b.Actor.Layers[0].Weights[0]
	a.Actor.Layers[0].Weights[0] = 99
	if b.Actor.Layers[0].Weights[0] != before {
		t.Error("mutating one engine's actor changed the other")
	}
}

func TestPolicyIsDistribution(t *testing.T) {
	engine, err := NewReinforcementEngine(DefaultReinforcementConfig())
	if err != nil {
		t.Fatal(err)
	}

	probs := engine.Policy([]float32{0.5, -0.5, 0.1, 0.2})
	if len(probs) != engine.ActionDim {
		t.Fatalf("expected %d probabilities, got %d", engine.ActionDim, len(probs))
	}
	var sum float32
	for _, p := range probs {
		if p < 0 {
			t.Errorf("negative probability %f", p)
		}
		sum += p
	}
	if math.Abs(float64(sum)-1.0) > 1e-4 {
		t.Errorf("probabilities sum to %f, expected 1", sum)
	}
}

func TestComputeGAE(t *testing.T) {
	cfg := DefaultReinforcementConfig()
	cfg["gamma"] = 0.5
	cfg["gae_lambda"] = 1.0
	engine, err := NewReinforcementEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	traj := &Trajectory{
		Rewards: []float32{1, 1},
		Values:  []float32{0, 0},
	}
	advantages, returns := engine.ComputeGAE(traj)

	// With zero values and lambda 1 the advantage is the discounted
	// return: A1 = 1, A0 = 1 + 0.5*1 = 1.5.
	if math.Abs(float64(advantages[1])-1.0) > 1e-6 {
		t.Errorf("expected advantage 1.0 at last step, got %f", advantages[1])
	}
	if math.Abs(float64(advantages[0])-1.5) > 1e-6 {
		t.Errorf("expected advantage 1.5 at first step, got %f", advantages[0])
	}
	if math.Abs(float64(returns[0])-1.5) > 1e-6 {
		t.Errorf("expected return 1.5, got %f", returns[0])
	}
}

func TestEmptyTrajectoryNoUpdate(t *testing.T) {
	engine, err := NewReinforcementEngine(DefaultReinforcementConfig())
	if err != nil {
		t.Fatal(err)
	}

	before := make([]float32, len(engine.Actor.Layers[0].Weights))
	copy(before, engine.Actor.Layers[0].Weights)

	engine.Update(&Trajectory{}, 4)

	for i, w := range engine.Actor.Layers[0].Weights {
		if w != before[i] {
			t.Fatal("empty trajectory changed actor weights")
		}
	}
}

func TestBanditLearnsBestArm(t *testing.T) {
	engine, err := NewReinforcementEngine(DefaultReinforcementConfig())
	if err != nil {
		t.Fatal(err)
	}

	tc := &RLTrainingConfig{Episodes: 500, MaxSteps: 1, UpdateEpochs: 2}
	result, err := engine.Train(banditEnv{}, tc)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.EpisodeRewards) != tc.Episodes {
		t.Fatalf("expected %d episode rewards, got %d", tc.Episodes, len(result.EpisodeRewards))
	}

	probs := engine.Policy([]float32{1, 0, 0, 0})
	if probs[0] < 0.6 {
		t.Errorf("expected policy to favor the paying arm, got prob %f", probs[0])
	}
}

func TestTrainRequiresEnvironment(t *testing.T) {
	engine, err := NewReinforcementEngine(DefaultReinforcementConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Train(nil, nil); err == nil {
		t.Error("expected error for nil environment")
	}
}
