// Package pragmatist holds the decision dimension: composites that search
// for good actions or parameters rather than model data.
package pragmatist

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/openfluke/tetramind/config"
)

// Objective is a function to minimize over a bounded box.
type Objective func(x []float32) float32

// Bound is the allowed range of one coordinate.
type Bound struct {
	Min, Max float32
}

// Strategy is one search algorithm. Minimize spends the given budget of
// iterations and returns the best point evaluated and its value.
type Strategy interface {
	Name() string
	Minimize(objective Objective, bounds []Bound, budget int) ([]float32, float32)
}

// OptimizationEngine holds every known strategy, constructed from one
// mapping, and runs the one the `algorithm` key selects.
type OptimizationEngine struct {
	Algorithm  string
	strategies map[string]Strategy
}

// DefaultOptimizationConfig returns the default hyperparameters for
// OptimizationEngine. All strategies read their settings from it.
func DefaultOptimizationConfig() config.Config {
	return config.Config{
		"algorithm":           "genetic",
		"population_size":     30,
		"mutation_rate":       0.1,
		"elite_count":         2,
		"initial_temperature": 2.0,
		"cooling_rate":        0.95,
		"step_size":           0.5,
	}
}

// NewOptimizationEngine constructs all strategies from cfg and selects the
// one named by the `algorithm` key. An unknown name is a construction
// error listing the known strategies.
func NewOptimizationEngine(cfg config.Config) (*OptimizationEngine, error) {
	algorithm, err := cfg.Str("algorithm")
	if err != nil {
		return nil, err
	}
	populationSize, err := cfg.Int("population_size")
	if err != nil {
		return nil, err
	}
	mutationRate, err := cfg.Float("mutation_rate")
	if err != nil {
		return nil, err
	}
	eliteCount, err := cfg.Int("elite_count")
	if err != nil {
		return nil, err
	}
	initialTemperature, err := cfg.Float("initial_temperature")
	if err != nil {
		return nil, err
	}
	coolingRate, err := cfg.Float("cooling_rate")
	if err != nil {
		return nil, err
	}
	stepSize, err := cfg.Float("step_size")
	if err != nil {
		return nil, err
	}

	strategies := map[string]Strategy{
		"genetic": &GeneticStrategy{
			PopulationSize: populationSize,
			MutationRate:   mutationRate,
			EliteCount:     eliteCount,
		},
		"annealing": &AnnealingStrategy{
			InitialTemperature: initialTemperature,
			CoolingRate:        coolingRate,
			StepSize:           stepSize,
		},
		"hillclimb": &HillClimbStrategy{
			StepSize: stepSize,
		},
	}

	if _, ok := strategies[algorithm]; !ok {
		names := make([]string, 0, len(strategies))
		for name := range strategies {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown optimization algorithm %q (known: %v)", algorithm, names)
	}

	return &OptimizationEngine{
		Algorithm:  algorithm,
		strategies: strategies,
	}, nil
}

// Strategies lists the engine's strategy names, sorted.
func (e *OptimizationEngine) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OptimizationResult is the outcome of one Optimize run.
type OptimizationResult struct {
	Best      []float32
	BestValue float32
	Algorithm string
}

// Optimize minimizes objective over the bounded box using the configured
// strategy.
func (e *OptimizationEngine) Optimize(objective Objective, bounds []Bound, budget int) (*OptimizationResult, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("no bounds provided")
	}
	for i, b := range bounds {
		if b.Max < b.Min {
			return nil, fmt.Errorf("bound %d has max %f < min %f", i, b.Max, b.Min)
		}
	}

	strategy := e.strategies[e.Algorithm]
	best, bestVal := strategy.Minimize(objective, bounds, budget)

	return &OptimizationResult{
		Best:      best,
		BestValue: bestVal,
		Algorithm: strategy.Name(),
	}, nil
}

func randomPoint(bounds []Bound) []float32 {
	x := make([]float32, len(bounds))
	for i, b := range bounds {
		x[i] = b.Min + rand.Float32()*(b.Max-b.Min)
	}
	return x
}

func clampPoint(x []float32, bounds []Bound) {
	for i, b := range bounds {
		if x[i] < b.Min {
			x[i] = b.Min
		}
		if x[i] > b.Max {
			x[i] = b.Max
		}
	}
}

// ============================================================================
// Genetic strategy: elitist evolution with uniform crossover
// ============================================================================

type GeneticStrategy struct {
	PopulationSize int
	MutationRate   float32
	EliteCount     int
}

func (s *GeneticStrategy) Name() string { return "genetic" }

func (s *GeneticStrategy) Minimize(objective Objective, bounds []Bound, budget int) ([]float32, float32) {
	type individual struct {
		genes   []float32
		fitness float32
	}

	population := make([]individual, s.PopulationSize)
	for i := range population {
		genes := randomPoint(bounds)
		population[i] = individual{genes: genes, fitness: objective(genes)}
	}

	rank := func() {
		sort.Slice(population, func(a, b int) bool {
			return population[a].fitness < population[b].fitness
		})
	}
	rank()

	for gen := 0; gen < budget; gen++ {
		next := make([]individual, 0, s.PopulationSize)

		// Elites carry over unchanged, so the best value never regresses
		elites := s.EliteCount
		if elites > len(population) {
			elites = len(population)
		}
		for i := 0; i < elites; i++ {
			next = append(next, population[i])
		}

		for len(next) < s.PopulationSize {
			// Tournament selection of two parents
			p1 := population[tournamentIndex(len(population), 3)]
			p2 := population[tournamentIndex(len(population), 3)]

			child := make([]float32, len(bounds))
			for g := range child {
				if rand.Float32() < 0.5 {
					child[g] = p1.genes[g]
				} else {
					child[g] = p2.genes[g]
				}
				if rand.Float32() < s.MutationRate {
					span := bounds[g].Max - bounds[g].Min
					child[g] += float32(rand.NormFloat64()) * span * 0.1
				}
			}
			clampPoint(child, bounds)

			next = append(next, individual{genes: child, fitness: objective(child)})
		}

		population = next
		rank()
	}

	best := make([]float32, len(population[0].genes))
	copy(best, population[0].genes)
	return best, population[0].fitness
}

// tournamentIndex picks k random indices and returns the lowest; the
// population is kept sorted by fitness, so lower indices are fitter.
func tournamentIndex(n, k int) int {
	winner := rand.Intn(n)
	for i := 1; i < k; i++ {
		if c := rand.Intn(n); c < winner {
			winner = c
		}
	}
	return winner
}

// ============================================================================
// Simulated annealing strategy
// ============================================================================

type AnnealingStrategy struct {
	InitialTemperature float32
	CoolingRate        float32
	StepSize           float32
}

func (s *AnnealingStrategy) Name() string { return "annealing" }

func (s *AnnealingStrategy) Minimize(objective Objective, bounds []Bound, budget int) ([]float32, float32) {
	current := randomPoint(bounds)
	currentVal := objective(current)

	best := make([]float32, len(current))
	copy(best, current)
	bestVal := currentVal

	temperature := s.InitialTemperature

	for i := 0; i < budget; i++ {
		candidate := make([]float32, len(current))
		for g := range candidate {
			span := bounds[g].Max - bounds[g].Min
			candidate[g] = current[g] + float32(rand.NormFloat64())*s.StepSize*span*0.1
		}
		clampPoint(candidate, bounds)

		candidateVal := objective(candidate)
		delta := candidateVal - currentVal

		if delta < 0 || (temperature > 0 && rand.Float32() < float32(math.Exp(float64(-delta/temperature)))) {
			current = candidate
			currentVal = candidateVal
		}
		if currentVal < bestVal {
			copy(best, current)
			bestVal = currentVal
		}

		temperature *= s.CoolingRate
	}

	return best, bestVal
}

// ============================================================================
// Hill climbing strategy with random restarts
// ============================================================================

type HillClimbStrategy struct {
	StepSize float32
}

func (s *HillClimbStrategy) Name() string { return "hillclimb" }

func (s *HillClimbStrategy) Minimize(objective Objective, bounds []Bound, budget int) ([]float32, float32) {
	current := randomPoint(bounds)
	currentVal := objective(current)

	best := make([]float32, len(current))
	copy(best, current)
	bestVal := currentVal

	stale := 0
	for i := 0; i < budget; i++ {
		candidate := make([]float32, len(current))
		for g := range candidate {
			span := bounds[g].Max - bounds[g].Min
			candidate[g] = current[g] + float32(rand.NormFloat64())*s.StepSize*span*0.1
		}
		clampPoint(candidate, bounds)

		if candidateVal := objective(candidate); candidateVal < currentVal {
			current = candidate
			currentVal = candidateVal
			stale = 0
		} else {
			stale++
		}

		if currentVal < bestVal {
			copy(best, current)
			bestVal = currentVal
		}

		// Restart when stuck on a plateau
		if stale > 20 {
			current = randomPoint(bounds)
			currentVal = objective(current)
			stale = 0
		}
	}

	return best, bestVal
}
