package epiworld

// NewSEIR builds a Susceptible-Exposed-Infected-Recovered model, adding an
// incubation compartment between exposure and infectiousness: an Exposed
// agent is not yet transmitting and moves to Infected once its incubation
// period, drawn from virus.Incubation, elapses.
func NewSEIR(graph *AdjList, vname string, prevalence, transmissionRate, incubationDays, recoveryRate float64) (*Model, error) {
	m := NewModel("Susceptible-Exposed-Infected-Recovered (SEIR)", graph.Size(), graph)

	m.AddState("Susceptible", DefaultUpdateSusceptible)
	eIdx := m.AddState("Exposed", updateExposed)
	infIdx := m.AddState("Infected", DefaultUpdateInfectious)
	recIdxState := m.AddState("Recovered", nil)

	recIdx, err := m.AddParam("Recovery rate", recoveryRate)
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

	v := &Virus{
		Name:            vname,
		ProbInfecting:   ParamHook(transIdx),
		ProbRecovery:    ParamHook(recIdx),
		ProbDeath:       ConstHook(0),
		Incubation:      ParamHook(incIdx),
		StateInfected:   eIdx,
		InfectiousState: infIdx,
		StateRecovered:  recIdxState,
		StateDead:       recIdxState,
	}
	m.AddVirus(v, prevalence, true)

	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}

// updateExposed advances an Exposed agent to Infected once its exposure day
// plus the virus's incubation period has elapsed; otherwise it stays
// Exposed and non-transmitting (the transmission kernel only considers
// agents whose current state is virus.InfectiousState, so an Exposed agent
// is invisible to NetworkKernel/GroupMixingKernel until then).
func updateExposed(agent *Agent, model *Model) {
	vi := agent.Virus
	if vi == nil {
		return
	}
	incubation := vi.Virus.Incubation.Eval(agent, vi.Virus, model)
	if float64(model.Day-vi.ExposureDay) >= incubation {
		model.Events.Enqueue(Event{Kind: EventSetState, AgentID: agent.ID, NewState: agent.State + 1})
	}
}
