package epiworld

// Roulette implements conditional-roulette sampling: given per-option
// probabilities p1..pn of mutually exclusive events each independently
// "happening," exactly one of "none" (-1) or "option k" is chosen.
//
// Step 1 computes P(none) = Π(1-pi). Any probability within 1e-100 of
// certainty short-circuits the whole draw to a uniform choice among the
// certain options, avoiding the division by (1-p) blowing up in step 2.
// Otherwise step 2 computes, for each option, its probability of being the
// sole event conditional on not-none, and step 3 walks the cumulative sum of
// a single uniform draw against [P(none), P(none)+p_only_0, ...].
func Roulette(probs []float64, rng *RNGEngine) int {
	if len(probs) == 0 {
		return -1
	}

	pNone := 1.0
	var certain []int
	for i, p := range probs {
		pNone *= 1 - p
		if p >= 1-1e-100 {
			certain = append(certain, i)
		}
	}

	r := rng.Uniform()
	if len(certain) > 0 {
		idx := int(r * float64(len(certain)))
		if idx >= len(certain) {
			idx = len(certain) - 1
		}
		return certain[idx]
	}

	probsOnlyP := make([]float64, len(probs))
	pNoneOrSingle := pNone
	for i, p := range probs {
		probsOnlyP[i] = p * (pNone / (1 - p))
		pNoneOrSingle += probsOnlyP[i]
	}

	if pNoneOrSingle <= 0 {
		return -1
	}

	cumsum := pNone / pNoneOrSingle
	if r < cumsum {
		return -1
	}
	for i := range probs {
		cumsum += probsOnlyP[i] / pNoneOrSingle
		if r < cumsum {
			return i
		}
	}
	return len(probs) - 1
}

// isInfectious reports whether an agent is currently capable of
// transmitting: it carries a virus AND its current state is that virus's
// designated infectious state. This excludes pre-infectious compartments
// such as SEIR's Exposed from acting as a transmission source.
func isInfectious(agent *Agent) bool {
	return agent.Virus != nil && agent.State == agent.Virus.Virus.infectiousState()
}

// TransmissionKernel decides, for a susceptible agent, whether and by which
// virus it is infected today, enqueuing an EventAddVirus when it is.
type TransmissionKernel interface {
	TryInfect(agent *Agent, model *Model)
}

// NetworkKernel implements neighbour-based transmission: a susceptible
// agent's neighbours' active viruses compete via Roulette.
type NetworkKernel struct{}

func (NetworkKernel) TryInfect(agent *Agent, model *Model) {
	if agent.HasVirus() {
		return
	}
	var candidates []*VirusInstance
	var sources []int
	for _, nbrID := range agent.Neighbors {
		nbr := model.Agents[nbrID]
		if !isInfectious(nbr) {
			continue
		}
		candidates = append(candidates, nbr.Virus)
		sources = append(sources, nbr.ID)
	}
	if len(candidates) == 0 {
		return
	}
	debugAssert(len(candidates) == len(sources), "transmission candidate/source array length mismatch: %d vs %d", len(candidates), len(sources))

	probs := make([]float64, len(candidates))
	for i, vi := range candidates {
		v := vi.Virus
		source := model.Agents[sources[i]]
		pTransmit := 1 - transmissionReductionOf(source, v, model)
		probs[i] = agent.PInfect(v, model) * pTransmit
	}

	choice := Roulette(probs, model.RNG)
	if choice < 0 {
		return
	}
	debugAssert(choice < len(candidates), "roulette choice %d out of bounds for %d candidates", choice, len(candidates))
	v := candidates[choice].Virus
	model.Events.Enqueue(Event{
		Kind:              EventAddVirus,
		AgentID:           agent.ID,
		Virus:             v,
		SourceID:          sources[choice],
		SourceExposureDay: candidates[choice].ExposureDay,
		NewState:          v.StateInfected,
	})
}

// GroupMixingKernel implements contact-matrix-based group mixing: each
// agent belongs to one entity; for each target entity j in the contact
// matrix's row for the agent's own entity, contacts this step are drawn
// Binomial(infectious members of j, adjusted_rate(j) * row[j]), where
// adjusted_rate(j) = rate / size(j) capped at 1, with each contact an
// infectious agent drawn uniformly from j's infectious set.
type GroupMixingKernel struct {
	// ContactMatrix[i][j] is the probability a contact from entity i lands
	// in entity j; every row must sum to 1.0 +/- 0.001.
	ContactMatrix [][]float64
	// Deterministic, when true, uses the Binomial's mean truncated to an
	// integer (and capped at the infectious member count) instead of drawing.
	Deterministic bool
}

// NewGroupMixingKernel validates the contact matrix eagerly: every entry
// non-negative, every row summing to 1.0 within a tolerance of 0.001.
func NewGroupMixingKernel(matrix [][]float64, deterministic bool) (GroupMixingKernel, error) {
	for i, row := range matrix {
		sum := 0.0
		for j, p := range row {
			if p < 0 {
				return GroupMixingKernel{}, newError(InvalidArgument, "contact matrix entry (%d,%d) is negative: %f", i, j, p)
			}
			sum += p
		}
		if sum < 1-0.001 || sum > 1+0.001 {
			return GroupMixingKernel{}, newError(InvalidArgument, "contact matrix row %d sums to %f, expected 1.0 within 0.001", i, sum)
		}
	}
	return GroupMixingKernel{ContactMatrix: matrix, Deterministic: deterministic}, nil
}

// contactRateFor resolves the per-agent contact rate: per-agent override,
// then per-entity, then the model-wide scalar.
func contactRateFor(agent *Agent, entityID int, model *Model) float64 {
	if rate, ok := model.agentContactRate[agent.ID]; ok {
		return rate
	}
	if rate, ok := model.entityContactRate[entityID]; ok {
		return rate
	}
	return model.contactRate
}

func (k GroupMixingKernel) TryInfect(agent *Agent, model *Model) {
	if agent.HasVirus() || len(agent.Entities) == 0 {
		return
	}
	myEntity := agent.Entities[0]

	rate := contactRateFor(agent, myEntity, model)

	var candidates []*VirusInstance
	var sources []int

	row := k.ContactMatrix[myEntity]
	for j, pJump := range row {
		if pJump <= 0 {
			continue
		}
		target := model.Entities[j]
		size := target.Size()
		if size == 0 {
			continue
		}
		infectious := model.infectiousIndex[j]
		groupSize := len(infectious)
		if groupSize == 0 {
			continue
		}
		adjusted := rate / float64(size)
		if adjusted > 1 {
			adjusted = 1
		}
		adjusted *= pJump

		// Trial count is the infectious subset of the target entity, not its
		// total membership: contacts can only land on an infectious agent, so
		// sampling against the full entity size overstates force of infection
		// whenever prevalence within the entity is low.
		var nContacts int
		if k.Deterministic {
			nContacts = int(adjusted * float64(groupSize))
			if nContacts > groupSize {
				nContacts = groupSize
			}
		} else {
			nContacts = model.RNG.Binomial(groupSize, adjusted)
		}

		for c := 0; c < nContacts; c++ {
			var pick int
			for attempts := 0; attempts < 5; attempts++ {
				pick = infectious[model.RNG.UniformRange(0, len(infectious))]
				if pick != agent.ID {
					break
				}
			}
			if pick == agent.ID {
				continue
			}
			src := model.Agents[pick]
			if src.Virus == nil {
				continue
			}
			candidates = append(candidates, src.Virus)
			sources = append(sources, pick)
		}
	}

	if len(candidates) == 0 {
		return
	}
	debugAssert(len(candidates) == len(sources), "transmission candidate/source array length mismatch: %d vs %d", len(candidates), len(sources))
	probs := make([]float64, len(candidates))
	for i, vi := range candidates {
		v := vi.Virus
		source := model.Agents[sources[i]]
		pTransmit := 1 - transmissionReductionOf(source, v, model)
		probs[i] = agent.PInfect(v, model) * pTransmit
	}
	choice := Roulette(probs, model.RNG)
	if choice < 0 {
		return
	}
	debugAssert(choice < len(candidates), "roulette choice %d out of bounds for %d candidates", choice, len(candidates))
	v := candidates[choice].Virus
	model.Events.Enqueue(Event{
		Kind:              EventAddVirus,
		AgentID:           agent.ID,
		Virus:             v,
		SourceID:          sources[choice],
		SourceExposureDay: candidates[choice].ExposureDay,
		NewState:          v.StateInfected,
	})
}
