package genome

import "math/rand"

const (
	DefaultClimbMaxSteps             = 100
	DefaultClimbMaxNonImprovingSteps = 5
	DefaultClimbLambda               = 3
)

// ClimbOptions bounds a (1+λ) hill climb. Non-positive fields take defaults.
type ClimbOptions struct {
	MaxSteps             int `json:"max_steps" yaml:"max_steps"`
	MaxNonImprovingSteps int `json:"max_non_improving_steps" yaml:"max_non_improving_steps"`
	Lambda               int `json:"lambda" yaml:"lambda"`
}

func DefaultClimbOptions() ClimbOptions {
	return ClimbOptions{
		MaxSteps:             DefaultClimbMaxSteps,
		MaxNonImprovingSteps: DefaultClimbMaxNonImprovingSteps,
		Lambda:               DefaultClimbLambda,
	}
}

// WithDefaults fills non-positive fields.
func (o ClimbOptions) WithDefaults() ClimbOptions {
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultClimbMaxSteps
	}
	if o.MaxNonImprovingSteps <= 0 {
		o.MaxNonImprovingSteps = DefaultClimbMaxNonImprovingSteps
	}
	if o.Lambda <= 0 {
		o.Lambda = DefaultClimbLambda
	}
	return o
}

// ClimbResult is the outcome of a hill climb.
type ClimbResult struct {
	Best  *Genome
	Steps int
}

// ClimbHill runs a (1+λ) evolution strategy from g and returns the best
// genome found.
func (g *Genome) ClimbHill(rng *rand.Rand, opts ClimbOptions) *Genome {
	return g.Climb(rng, opts).Best
}

// Climb is ClimbHill that also reports how many steps ran.
//
// Each step mutates the current incumbent λ times, not the starting genome,
// so the search walks uphill. The incumbent is kept on ties; only a strict
// fitness increase resets the non-improving counter.
func (g *Genome) Climb(rng *rand.Rand, opts ClimbOptions) ClimbResult {
	opts = opts.WithDefaults()
	if g.length == 0 {
		return ClimbResult{Best: g}
	}

	fittest := g
	nonImproving := 0
	steps := 0
	for steps < opts.MaxSteps {
		steps++
		incumbent := fittest
		for i := 0; i < opts.Lambda; i++ {
			child := incumbent.Mutate(rng)
			if child.Fitness() > fittest.Fitness() {
				fittest = child
			}
		}

		if fittest.Fitness() > incumbent.Fitness() {
			nonImproving = 0
		} else {
			nonImproving++
		}
		if nonImproving >= opts.MaxNonImprovingSteps {
			break
		}
	}
	return ClimbResult{Best: fittest, Steps: steps}
}
