package epiworld

// UpdateFunc is looked up by an agent's current state and invoked with
// (agent, model) on every day that agent is active. Its only legal side
// effect is enqueuing events on model.Events.
type UpdateFunc func(agent *Agent, model *Model)

// StateEntry is one row of the model's state table: a label and an optional
// update function (nil means the state is terminal/passive, e.g. Recovered).
type StateEntry struct {
	Label  string
	Update UpdateFunc
}

// DefaultUpdateSusceptible lets the transmission kernel decide whether this
// agent gets infected today; the kernel itself enqueues EventAddVirus when it
// does. Susceptible agents otherwise have nothing else to do.
func DefaultUpdateSusceptible(agent *Agent, model *Model) {
	model.Kernel.TryInfect(agent, model)
}

// DefaultUpdateInfectious runs the two-event conditional: each day an
// infectious agent either dies, recovers, or stays infectious, with
//
//	P(die)  = p_die  * (1 - p_rec) / (1 - p_die*p_rec)
//	P(rec)  = p_rec  * (1 - p_die) / (1 - p_die*p_rec)
//
// Tool-mediated recovery enhancement and death reduction are folded into the
// two base probabilities before the conditional is evaluated.
func DefaultUpdateInfectious(agent *Agent, model *Model) {
	vi := agent.Virus
	if vi == nil {
		return
	}
	v := vi.Virus

	pDie := v.ProbDeath.Eval(agent, v, model)
	pDie *= 1 - deathReductionOf(agent, v, model)

	pRec := v.ProbRecovery.Eval(agent, v, model)
	pRec += (1 - pRec) * recoveryEnhancementOf(agent, v, model)

	pDie = clamp01(pDie)
	pRec = clamp01(pRec)

	denom := 1 - pDie*pRec
	if denom <= 0 {
		return
	}
	pDieCond := pDie * (1 - pRec) / denom
	pRecCond := pRec * (1 - pDie) / denom

	u := model.RNG.Uniform()
	switch {
	case u < pDieCond:
		model.Events.Enqueue(Event{Kind: EventRmVirus, AgentID: agent.ID, NewState: v.StateDead})
	case u < pDieCond+pRecCond:
		model.Events.Enqueue(Event{Kind: EventRmVirus, AgentID: agent.ID, NewState: v.StateRecovered})
	default:
		// stays infectious: self-loop, recorded as "stayed"
		model.Events.Enqueue(Event{Kind: EventSetState, AgentID: agent.ID, NewState: agent.State})
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
