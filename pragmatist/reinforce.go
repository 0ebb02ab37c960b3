package pragmatist

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/openfluke/tetramind/config"
	"github.com/openfluke/tetramind/nn"
)

// Environment is the external world a ReinforcementEngine acts in.
// Reset starts a new episode and returns the initial state; Step applies a
// discrete action and returns the next state, the reward, and whether the
// episode has ended.
type Environment interface {
	Reset() []float32
	Step(action int) (state []float32, reward float32, done bool)
}

// ReinforcementEngine is an actor/critic pair built from one flat
// configuration mapping. The actor maps states to a discrete action
// distribution; the critic estimates state values. Updates use the
// clipped surrogate objective with GAE advantages.
type ReinforcementEngine struct {
	StateDim  int
	ActionDim int

	Actor  *nn.Network
	Critic *nn.Network

	gamma        float32
	gaeLambda    float32
	clipEpsilon  float32
	learningRate float32

	actorOpt  nn.Optimizer
	criticOpt nn.Optimizer
}

// DefaultReinforcementConfig returns the default hyperparameters for
// ReinforcementEngine.
func DefaultReinforcementConfig() config.Config {
	return config.Config{
		"state_dim":     4,
		"action_dim":    2,
		"hidden_dim":    32,
		"learning_rate": 0.003,
		"gamma":         0.99,
		"gae_lambda":    0.95,
		"clip_epsilon":  0.2,
		"optimizer":     "adam",
	}
}

// NewReinforcementEngine constructs the composite from cfg. Construction
// fails on the first missing key.
func NewReinforcementEngine(cfg config.Config) (*ReinforcementEngine, error) {
	stateDim, err := cfg.Int("state_dim")
	if err != nil {
		return nil, err
	}
	actionDim, err := cfg.Int("action_dim")
	if err != nil {
		return nil, err
	}
	hiddenDim, err := cfg.Int("hidden_dim")
	if err != nil {
		return nil, err
	}
	learningRate, err := cfg.Float("learning_rate")
	if err != nil {
		return nil, err
	}
	gamma, err := cfg.Float("gamma")
	if err != nil {
		return nil, err
	}
	gaeLambda, err := cfg.Float("gae_lambda")
	if err != nil {
		return nil, err
	}
	clipEpsilon, err := cfg.Float("clip_epsilon")
	if err != nil {
		return nil, err
	}
	optName, err := cfg.Str("optimizer")
	if err != nil {
		return nil, err
	}

	actorOpt, err := nn.NewOptimizer(optName)
	if err != nil {
		return nil, fmt.Errorf("actor optimizer: %w", err)
	}
	criticOpt, err := nn.NewOptimizer(optName)
	if err != nil {
		return nil, fmt.Errorf("critic optimizer: %w", err)
	}

	actor := nn.NewSequential(stateDim,
		nn.InitDenseLayer(stateDim, hiddenDim, nn.ActivationTanh),
		nn.InitDenseLayer(hiddenDim, actionDim, nn.ActivationLinear),
		nn.InitSoftmaxLayer(1.0),
	)
	critic := nn.NewSequential(stateDim,
		nn.InitDenseLayer(stateDim, hiddenDim, nn.ActivationTanh),
		nn.InitDenseLayer(hiddenDim, 1, nn.ActivationLinear),
	)

	return &ReinforcementEngine{
		StateDim:     stateDim,
		ActionDim:    actionDim,
		Actor:        actor,
		Critic:       critic,
		gamma:        gamma,
		gaeLambda:    gaeLambda,
		clipEpsilon:  clipEpsilon,
		learningRate: learningRate,
		actorOpt:     actorOpt,
		criticOpt:    criticOpt,
	}, nil
}

// Policy returns the action distribution for one state.
func (e *ReinforcementEngine) Policy(state []float32) []float32 {
	return e.Actor.Forward(state)
}

// Value returns the critic's estimate for one state.
func (e *ReinforcementEngine) Value(state []float32) float32 {
	return e.Critic.Forward(state)[0]
}

// SelectAction samples an action from the policy, returning the action
// index and its probability.
func (e *ReinforcementEngine) SelectAction(state []float32) (int, float32) {
	probs := e.Policy(state)

	r := rand.Float32()
	cum := float32(0)
	for a, p := range probs {
		cum += p
		if r < cum {
			return a, p
		}
	}
	last := len(probs) - 1
	return last, probs[last]
}

// GreedyAction returns the most probable action.
func (e *ReinforcementEngine) GreedyAction(state []float32) int {
	probs := e.Policy(state)
	best := 0
	for a, p := range probs {
		if p > probs[best] {
			best = a
		}
	}
	return best
}

// Trajectory is one episode of experience.
type Trajectory struct {
	States      [][]float32
	Actions     []int
	Rewards     []float32
	Values      []float32
	Probs       []float32 // probability of the chosen action at collection time
	TotalReward float32
}

// CollectTrajectory runs one episode of at most maxSteps interactions.
func (e *ReinforcementEngine) CollectTrajectory(env Environment, maxSteps int) *Trajectory {
	traj := &Trajectory{}
	state := env.Reset()

	for step := 0; step < maxSteps; step++ {
		action, prob := e.SelectAction(state)
		value := e.Value(state)

		next, reward, done := env.Step(action)

		stateCopy := make([]float32, len(state))
		copy(stateCopy, state)
		traj.States = append(traj.States, stateCopy)
		traj.Actions = append(traj.Actions, action)
		traj.Rewards = append(traj.Rewards, reward)
		traj.Values = append(traj.Values, value)
		traj.Probs = append(traj.Probs, prob)
		traj.TotalReward += reward

		if done {
			break
		}
		state = next
	}

	return traj
}

// ComputeGAE computes generalized advantage estimates and discounted
// returns for a trajectory. The terminal bootstrap value is zero.
func (e *ReinforcementEngine) ComputeGAE(traj *Trajectory) (advantages, returns []float32) {
	n := len(traj.Rewards)
	advantages = make([]float32, n)
	returns = make([]float32, n)

	gae := float32(0)
	for t := n - 1; t >= 0; t-- {
		nextValue := float32(0)
		if t < n-1 {
			nextValue = traj.Values[t+1]
		}
		delta := traj.Rewards[t] + e.gamma*nextValue - traj.Values[t]
		gae = delta + e.gamma*e.gaeLambda*gae
		advantages[t] = gae
		returns[t] = advantages[t] + traj.Values[t]
	}

	return advantages, returns
}

// Update applies one clipped-surrogate policy update and one value update
// per epoch over a trajectory. Empty trajectories are a no-op.
func (e *ReinforcementEngine) Update(traj *Trajectory, epochs int) {
	if len(traj.States) == 0 {
		return
	}

	advantages, returns := e.ComputeGAE(traj)

	for epoch := 0; epoch < epochs; epoch++ {
		e.Actor.ZeroGradients()
		e.Critic.ZeroGradients()

		for t, state := range traj.States {
			action := traj.Actions[t]
			oldProb := traj.Probs[t]
			if oldProb < 1e-8 {
				oldProb = 1e-8
			}

			probs := e.Actor.Forward(state)
			ratio := probs[action] / oldProb

			// Clipped surrogate: the gradient is zero when the ratio is
			// outside [1-eps, 1+eps] on the advantage's bad side
			adv := advantages[t]
			clipped := (adv > 0 && ratio > 1+e.clipEpsilon) ||
				(adv < 0 && ratio < 1-e.clipEpsilon)

			gradProbs := make([]float32, len(probs))
			if !clipped {
				gradProbs[action] = -adv / (oldProb * float32(len(traj.States)))
			}
			e.Actor.Backward(gradProbs)

			value := e.Critic.Forward(state)
			e.Critic.Backward(nn.MSEGradient(value, []float32{returns[t]}))
		}

		e.actorOpt.Step(e.Actor, e.learningRate)
		e.criticOpt.Step(e.Critic, e.learningRate)
	}
}

// RLTrainingConfig holds the episode-loop settings.
type RLTrainingConfig struct {
	Episodes     int
	MaxSteps     int
	UpdateEpochs int
	Verbose      bool
}

// DefaultRLTrainingConfig returns sensible defaults
func DefaultRLTrainingConfig() *RLTrainingConfig {
	return &RLTrainingConfig{
		Episodes:     100,
		MaxSteps:     200,
		UpdateEpochs: 4,
	}
}

// RLTrainingResult contains per-episode rewards.
type RLTrainingResult struct {
	EpisodeRewards []float32
	TotalTime      time.Duration
}

// Train runs the full collect/update loop against an environment.
func (e *ReinforcementEngine) Train(env Environment, tc *RLTrainingConfig) (*RLTrainingResult, error) {
	if env == nil {
		return nil, fmt.Errorf("no environment provided")
	}
	if tc == nil {
		tc = DefaultRLTrainingConfig()
	}

	result := &RLTrainingResult{
		EpisodeRewards: make([]float32, 0, tc.Episodes),
	}
	start := time.Now()

	for episode := 0; episode < tc.Episodes; episode++ {
		traj := e.CollectTrajectory(env, tc.MaxSteps)
		e.Update(traj, tc.UpdateEpochs)

		result.EpisodeRewards = append(result.EpisodeRewards, traj.TotalReward)

		if tc.Verbose && (episode+1)%10 == 0 {
			fmt.Printf("  [RL] Episode %d/%d - Reward: %.2f\n", episode+1, tc.Episodes, traj.TotalReward)
		}
	}

	result.TotalTime = time.Since(start)
	return result, nil
}
