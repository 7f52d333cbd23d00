package epiworld

// HookKind tags how a probability/rate field on a Virus or Tool is
// represented: a stored constant, a stable index into the model's parameter
// table, or a callable.
type HookKind int

const (
	HookConstant HookKind = iota
	HookParam
	HookFunc
)

// ProbFunc computes a probability for a given agent/virus pair, allowed to
// read model parameters (e.g. age-dependent susceptibility).
type ProbFunc func(agent *Agent, virus *Virus, model *Model) float64

// Hook is a tagged union over the three ways a probability field can be
// specified. Parameter-backed hooks hold an index into Model.paramValues rather
// than a raw pointer/address, so hooks stay valid across Model.Clone.
type Hook struct {
	kind     HookKind
	constant float64
	paramIdx int
	fn       ProbFunc
}

// ConstHook wraps a fixed scalar.
func ConstHook(v float64) Hook { return Hook{kind: HookConstant, constant: v} }

// ParamHook wraps a named model parameter, resolved by index at Eval time so
// changing the parameter (e.g. from a GlobalEvent) changes every hook bound
// to it without re-wiring.
func ParamHook(idx int) Hook { return Hook{kind: HookParam, paramIdx: idx} }

// FuncHook wraps an arbitrary function of (agent, virus, model).
func FuncHook(fn ProbFunc) Hook { return Hook{kind: HookFunc, fn: fn} }

// inUnitInterval reports whether a constant-valued hook lies in [0,1].
// Parameter- and function-backed hooks are resolved at evaluation time, so
// only constants can be checked at registration.
func (h Hook) inUnitInterval() bool {
	return h.kind != HookConstant || (h.constant >= 0 && h.constant <= 1)
}

// Eval resolves the hook's current value.
func (h Hook) Eval(agent *Agent, virus *Virus, model *Model) float64 {
	switch h.kind {
	case HookParam:
		return model.ParamValue(h.paramIdx)
	case HookFunc:
		return h.fn(agent, virus, model)
	default:
		return h.constant
	}
}

// Virus is a pathogen template, registered once on a Model and referenced by
// id from every VirusInstance attached to an infected agent.
type Virus struct {
	ID   int
	Name string

	ProbInfecting Hook
	ProbRecovery  Hook
	ProbDeath     Hook
	Incubation    Hook // in days

	PostImmunity float64 // susceptibility reduction granted after recovery

	// Mutate is called once per day an agent carries this virus; nil means
	// the virus never mutates. It may return a different *Virus to replace
	// the agent's current infection (e.g. antigenic drift).
	Mutate func(agent *Agent, virus *Virus, model *Model) *Virus

	// Post-action states: where an agent goes on infection, recovery, death.
	StateInfected  int
	StateRecovered int
	StateDead      int

	// InfectiousState is the state index in which this virus actually
	// transmits. Defaults to StateInfected for models with no
	// pre-infectious compartment (SIR/SIRCONN); SEIR-style presets set it
	// to the state reached after incubation, distinct from StateInfected
	// (the Exposed state set immediately on infection).
	InfectiousState int
}

// validate checks the virus's constant probability hooks lie in [0,1].
func (v *Virus) validate() error {
	checks := map[string]Hook{
		"prob_infecting": v.ProbInfecting,
		"prob_recovery":  v.ProbRecovery,
		"prob_death":     v.ProbDeath,
	}
	for name, h := range checks {
		if !h.inUnitInterval() {
			return newError(InvalidArgument, "virus %q %s %f outside [0,1]", v.Name, name, h.constant)
		}
	}
	return nil
}

// infectiousState returns InfectiousState, falling back to StateInfected
// when a preset never set it explicitly (the common no-incubation case).
func (v *Virus) infectiousState() int {
	if v.InfectiousState != 0 {
		return v.InfectiousState
	}
	return v.StateInfected
}

// VirusInstance is the live copy of a Virus attached to exactly one agent.
type VirusInstance struct {
	Virus       *Virus
	OwnerID     int
	SourceID    int // -1 if this is a day-0 seed, not a transmission
	ExposureDay int
}
