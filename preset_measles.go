package epiworld

// NewMeaslesLike builds a compact Measles-shaped model (Susceptible ->
// Exposed -> Infectious -> {Hospitalized, Recovered} -> Recovered), adding
// a hospitalisation compartment to the SEIR shape.
func NewMeaslesLike(graph *AdjList, vname string, prevalence, transmissionRate, incubationDays, hospitalizationRate, recoveryRate float64) (*Model, error) {
	m := NewModel("Measles-like (SEIHR)", graph.Size(), graph)

	m.AddState("Susceptible", DefaultUpdateSusceptible)
	eIdx := m.AddState("Exposed", updateExposed)
	infIdx := m.AddState("Infectious", updateInfectiousOrHospitalized)
	m.AddState("Hospitalized", updateHospitalized)
	recIdx := m.AddState("Recovered", nil)

	recRateIdx, err := m.AddParam("Recovery rate", recoveryRate)
	if err != nil {
		return nil, err
	}
	transIdx, err := m.AddParam("Transmission rate", transmissionRate)
	if err != nil {
		return nil, err
	}
	incIdx, err := m.AddParam("Incubation days", incubationDays)
	if err != nil {
		return nil, err
	}
	hospIdx, err := m.AddParam("Hospitalization rate", hospitalizationRate)
	if err != nil {
		return nil, err
	}

	v := &Virus{
		Name:            vname,
		ProbInfecting:   ParamHook(transIdx),
		ProbRecovery:    ParamHook(recRateIdx),
		ProbDeath:       ConstHook(0),
		Incubation:      ParamHook(incIdx),
		StateInfected:   eIdx,
		InfectiousState: infIdx,
		StateRecovered:  recIdx,
		StateDead:       recIdx,
	}
	m.hospitalizationRateIdx = hospIdx
	m.AddVirus(v, prevalence, true)

	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}

// updateInfectiousOrHospitalized runs the two-event conditional between
// "goes to hospital" and "recovers," reusing the virus's recovery
// probability and the model-wide hospitalization rate parameter as the two
// competing events.
func updateInfectiousOrHospitalized(agent *Agent, model *Model) {
	vi := agent.Virus
	if vi == nil {
		return
	}
	v := vi.Virus
	pRec := v.ProbRecovery.Eval(agent, v, model)
	pHosp := model.ParamValue(model.hospitalizationRateIdx)

	pRec = clamp01(pRec)
	pHosp = clamp01(pHosp)

	denom := 1 - pRec*pHosp
	if denom <= 0 {
		return
	}
	pHospCond := pHosp * (1 - pRec) / denom
	pRecCond := pRec * (1 - pHosp) / denom

	u := model.RNG.Uniform()
	switch {
	case u < pHospCond:
		model.Events.Enqueue(Event{Kind: EventSetState, AgentID: agent.ID, NewState: agent.State + 1})
	case u < pHospCond+pRecCond:
		model.Events.Enqueue(Event{Kind: EventRmVirus, AgentID: agent.ID, NewState: v.StateRecovered})
	default:
		model.Events.Enqueue(Event{Kind: EventSetState, AgentID: agent.ID, NewState: agent.State})
	}
}

// updateHospitalized runs the ordinary recovery/death draw. The infection
// stays attached, but a hospitalized agent no longer transmits: the kernels'
// infectious check requires the virus's designated InfectiousState, and
// Hospitalized is a different state, so hospitalization doubles as isolation.
func updateHospitalized(agent *Agent, model *Model) {
	DefaultUpdateInfectious(agent, model)
}
