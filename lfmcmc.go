package epiworld

import (
	"log"
	"math"

	"github.com/segmentio/ksuid"
)

// SimulateFunc runs a full simulation under parameter vector theta and
// returns opaque data; the LF-MCMC chain never looks inside it directly.
type SimulateFunc func(theta []float64) interface{}

// SummaryFunc reduces opaque simulation data down to a fixed-length summary
// statistic vector, the only thing a KernelFunc compares.
type SummaryFunc func(data interface{}) []float64

// ProposalFunc draws a candidate theta' from the current theta.
type ProposalFunc func(theta []float64, lb, ub []float64, rng *RNGEngine) []float64

// KernelFunc scores how close a candidate's summary stats are to the
// observed stats, at bandwidth epsilon.
type KernelFunc func(stats, observed []float64, epsilon float64) float64

// LFMCMC is a generic Approximate Bayesian Computation (likelihood-free
// MCMC) calibration loop, parameterised over the opaque data type its
// SimulateFunc returns; only SummaryFunc ever touches its internals.
type LFMCMC struct {
	Simulate SimulateFunc
	Summary  SummaryFunc
	Observed []float64

	Proposal ProposalFunc
	Kernel   KernelFunc
	Epsilon  float64

	LB []float64
	UB []float64

	// ChainID is a collision-free correlation id for this calibration run,
	// used in log lines the same way Model.RunID is.
	ChainID string

	Samples     [][]float64
	Accepted    []bool
	SampleStats [][]float64
}

// NewLFMCMC builds a chain with the default reflective-normal proposal and
// uniform-within-epsilon kernel.
func NewLFMCMC(simulate SimulateFunc, summary SummaryFunc, observed []float64, lb, ub []float64, epsilon float64) *LFMCMC {
	return &LFMCMC{
		Simulate: simulate,
		Summary:  summary,
		Observed: observed,
		Proposal: ReflectiveNormalProposal(1.0),
		Kernel:   UniformKernel,
		Epsilon:  epsilon,
		LB:       lb,
		UB:       ub,
		ChainID:  ksuid.New().String(),
	}
}

// ReflectiveNormalProposal returns a ProposalFunc that perturbs each
// parameter by N(0, sigma) and folds the result back into [lb,ub] by
// reflection: a value falling delta beyond a bound bounces back by delta,
// alternating direction every period of width (ub-lb) so the support stays
// exactly bounded.
func ReflectiveNormalProposal(sigma float64) ProposalFunc {
	return func(theta, lb, ub []float64, rng *RNGEngine) []float64 {
		out := make([]float64, len(theta))
		for i, t := range theta {
			x := t + rng.Normal(0, sigma)
			out[i] = reflect(x, lb[i], ub[i])
		}
		return out
	}
}

// reflect folds x into [lo, hi] by bouncing off the bounds repeatedly.
func reflect(x, lo, hi float64) float64 {
	width := hi - lo
	if width <= 0 {
		return lo
	}
	if x >= lo && x <= hi {
		return x
	}
	// A single bounce is computed directly so it lands exactly delta inside.
	if x < lo && lo-x <= width {
		return lo + (lo - x)
	}
	if x > hi && x-hi <= width {
		return hi - (x - hi)
	}
	offset := x - lo
	period := math.Mod(offset, 2*width)
	if period < 0 {
		period += 2 * width
	}
	if period <= width {
		return lo + period
	}
	return hi - (period - width)
}

// UniformKernel returns 1 if every summary statistic is within epsilon of
// its observed counterpart, else 0. The default kernel.
func UniformKernel(stats, observed []float64, epsilon float64) float64 {
	for i := range stats {
		if math.Abs(stats[i]-observed[i]) > epsilon {
			return 0
		}
	}
	return 1
}

// GaussianKernel is an alternative smooth kernel using the Euclidean
// distance between stats and observed, for chains where a hard epsilon
// cutoff accepts too rarely.
func GaussianKernel(stats, observed []float64, epsilon float64) float64 {
	sumSq := 0.0
	for i := range stats {
		d := stats[i] - observed[i]
		sumSq += d * d
	}
	return math.Exp(-sumSq / (2 * epsilon * epsilon))
}

// Run executes n chain steps starting from theta0: propose, simulate, score
// via the kernel, accept with probability min(1, k/k_prev), record.
func (c *LFMCMC) Run(n int, theta0 []float64, seed int64) error {
	if c.Simulate == nil || c.Summary == nil {
		return newError(InvalidState, "LFMCMC requires Simulate and Summary functions")
	}
	rng := NewRNG(seed)
	theta := append([]float64(nil), theta0...)

	data := c.Simulate(theta)
	stats := c.Summary(data)
	kPrev := c.Kernel(stats, c.Observed, c.Epsilon)

	log.Printf("epiworld: lfmcmc chain %s starting: %d steps", c.ChainID, n)
	for i := 0; i < n; i++ {
		proposed := c.Proposal(theta, c.LB, c.UB, rng)
		data := c.Simulate(proposed)
		stats := c.Summary(data)
		k := c.Kernel(stats, c.Observed, c.Epsilon)

		var accept bool
		if kPrev <= 0 {
			accept = k > 0
		} else {
			ratio := k / kPrev
			accept = ratio >= 1 || rng.Uniform() < ratio
		}

		if accept {
			theta = proposed
			kPrev = k
		}

		c.Samples = append(c.Samples, append([]float64(nil), theta...))
		c.Accepted = append(c.Accepted, accept)
		c.SampleStats = append(c.SampleStats, stats)
	}
	log.Printf("epiworld: lfmcmc chain %s finished", c.ChainID)
	return nil
}

// AcceptanceRate returns the fraction of proposed steps accepted so far.
func (c *LFMCMC) AcceptanceRate() float64 {
	if len(c.Accepted) == 0 {
		return 0
	}
	n := 0
	for _, a := range c.Accepted {
		if a {
			n++
		}
	}
	return float64(n) / float64(len(c.Accepted))
}
