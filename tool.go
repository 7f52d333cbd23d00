package epiworld

// Tool is an intervention or innate characteristic that modifies the four
// probabilities a virus's spread depends on. Each modifier lies in [0,1];
// Model.Build validates constant-valued modifiers at registration.
type Tool struct {
	ID   int
	Name string

	SusceptibilityReduction Hook
	TransmissionReduction   Hook
	RecoveryEnhancer        Hook
	DeathReduction          Hook
}

// validate checks the tool's constant modifier hooks lie in [0,1], the
// invariant every individual modifier carries.
func (t *Tool) validate() error {
	checks := map[string]Hook{
		"susceptibility_reduction": t.SusceptibilityReduction,
		"transmission_reduction":   t.TransmissionReduction,
		"recovery_enhancer":        t.RecoveryEnhancer,
		"death_reduction":          t.DeathReduction,
	}
	for name, h := range checks {
		if !h.inUnitInterval() {
			return newError(InvalidArgument, "tool %q %s %f outside [0,1]", t.Name, name, h.constant)
		}
	}
	return nil
}

// ToolInstance is the live copy of a Tool attached to exactly one agent.
type ToolInstance struct {
	Tool        *Tool
	OwnerID     int
	AcquiredDay int
}

// susceptibilityReductionOf composes all of an agent's tools' susceptibility
// reduction into one factor via the model's mixer.
func susceptibilityReductionOf(agent *Agent, virus *Virus, model *Model) float64 {
	if len(agent.Tools) == 0 {
		return 0
	}
	vals := make([]float64, len(agent.Tools))
	for i, ti := range agent.Tools {
		vals[i] = ti.Tool.SusceptibilityReduction.Eval(agent, virus, model)
	}
	return model.Mixer(vals)
}

// transmissionReductionOf composes the source agent's tools' transmission
// reduction.
func transmissionReductionOf(agent *Agent, virus *Virus, model *Model) float64 {
	if len(agent.Tools) == 0 {
		return 0
	}
	vals := make([]float64, len(agent.Tools))
	for i, ti := range agent.Tools {
		vals[i] = ti.Tool.TransmissionReduction.Eval(agent, virus, model)
	}
	return model.Mixer(vals)
}

// recoveryEnhancementOf composes recovery-rate boosts from an agent's tools.
func recoveryEnhancementOf(agent *Agent, virus *Virus, model *Model) float64 {
	if len(agent.Tools) == 0 {
		return 0
	}
	vals := make([]float64, len(agent.Tools))
	for i, ti := range agent.Tools {
		vals[i] = ti.Tool.RecoveryEnhancer.Eval(agent, virus, model)
	}
	return model.Mixer(vals)
}

// deathReductionOf composes death-probability reductions from an agent's
// tools.
func deathReductionOf(agent *Agent, virus *Virus, model *Model) float64 {
	if len(agent.Tools) == 0 {
		return 0
	}
	vals := make([]float64, len(agent.Tools))
	for i, ti := range agent.Tools {
		vals[i] = ti.Tool.DeathReduction.Eval(agent, virus, model)
	}
	return model.Mixer(vals)
}
