package pragmatist

import (
	"errors"
	"math"
	"testing"

	"github.com/openfluke/tetramind/config"
)

func sphere(x []float32) float32 {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestOptimizationDefaultConfigConstructs(t *testing.T) {
	engine, err := NewOptimizationEngine(DefaultOptimizationConfig())
	if err != nil {
		t.Fatalf("default config should construct: %v", err)
	}
	if engine.Algorithm != "genetic" {
		t.Errorf("expected default algorithm genetic, got %s", engine.Algorithm)
	}
}

func TestOptimizationMissingKeys(t *testing.T) {
	base := DefaultOptimizationConfig()
	for key := range base {
		cfg := base.Clone()
		delete(cfg, key)
		_, err := NewOptimizationEngine(cfg)
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

func TestOptimizationUnknownAlgorithm(t *testing.T) {
	cfg := DefaultOptimizationConfig()
	cfg["algorithm"] = "gradient_descent"
	_, err := NewOptimizationEngine(cfg)
	if err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestOptimizationStrategiesList(t *testing.T) {
	engine, err := NewOptimizationEngine(DefaultOptimizationConfig())
	if err != nil {
		t.Fatal(err)
	}
	names := engine.Strategies()
	want := map[string]bool{"genetic": true, "annealing": true, "hillclimb": true}
	if len(names) != len(want) {
		t.Fatalf("expected %d strategies, got %v", len(want), names)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected strategy %q", n)
		}
	}
}

func TestOptimizationMinimizesSphere(t *testing.T) {
	bounds := []Bound{{-5, 5}, {-5, 5}, {-5, 5}}

	for _, alg := range []string{"genetic", "annealing", "hillclimb"} {
		cfg := DefaultOptimizationConfig()
		cfg["algorithm"] = alg
		engine, err := NewOptimizationEngine(cfg)
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}

		result, err := engine.Optimize(sphere, bounds, 2000)
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}
		if result.BestValue > 10 {
			t.Errorf("%s: expected BestValue < 10 on sphere, got %f", alg, result.BestValue)
		}
		for i, v := range result.Best {
			if float64(v) < float64(bounds[i].Min) || float64(v) > float64(bounds[i].Max) {
				t.Errorf("%s: dimension %d out of bounds: %f", alg, i, v)
			}
		}
	}
}

func TestOptimizationValidatesBounds(t *testing.T) {
	engine, err := NewOptimizationEngine(DefaultOptimizationConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Optimize(sphere, nil, 100); err == nil {
		t.Error("expected error for empty bounds")
	}
	if _, err := engine.Optimize(sphere, []Bound{{5, -5}}, 100); err == nil {
		t.Error("expected error for inverted bound")
	}
}

func TestGeneticNeverRegresses(t *testing.T) {
	cfg := DefaultOptimizationConfig()
	engine, err := NewOptimizationEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	bounds := []Bound{{-2, 2}, {-2, 2}}
	small, err := engine.Optimize(sphere, bounds, 300)
	if err != nil {
		t.Fatal(err)
	}
	large, err := engine.Optimize(sphere, bounds, 3000)
	if err != nil {
		t.Fatal(err)
	}
	// Not strictly guaranteed across independent runs, but the larger
	// budget should land within the same order of magnitude at worst.
	if float64(large.BestValue) > math.Max(float64(small.BestValue)*10, 1.0) {
		t.Errorf("larger budget did much worse: %f vs %f", large.BestValue, small.BestValue)
	}
}
