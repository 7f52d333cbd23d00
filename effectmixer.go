package epiworld

// Mixer combines several per-tool values of one effect (susceptibility
// reduction, transmission reduction, recovery enhancement, death reduction)
// into a single multiplicative factor. Replaceable per model.
type Mixer func(values []float64) float64

// IndependentActionMixer is the default combination rule: each tool acts
// independently, so the combined effect is 1 minus the probability that none
// of them act: 1 - Π(1 - vᵢ).
func IndependentActionMixer(values []float64) float64 {
	prodNone := 1.0
	for _, v := range values {
		prodNone *= 1 - v
	}
	return 1 - prodNone
}
