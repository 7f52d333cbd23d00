package epiworld

// NewSIR builds a Susceptible-Infected-Recovered model on a network
// population: three states, one virus with parameter-backed transmission and
// recovery rates and no death branch (death rate 0, so the two-event
// conditional degenerates to a plain recovery coin flip).
func NewSIR(graph *AdjList, vname string, prevalence, transmissionRate, recoveryRate float64) (*Model, error) {
	m := NewModel("Susceptible-Infected-Recovered (SIR)", graph.Size(), graph)

	m.AddState("Susceptible", DefaultUpdateSusceptible)
	m.AddState("Infected", DefaultUpdateInfectious)
	m.AddState("Recovered", nil)

	recIdx, err := m.AddParam("Recovery rate", recoveryRate)
	if err != nil {
		return nil, err
	}
	transIdx, err := m.AddParam("Transmission rate", transmissionRate)
	if err != nil {
		return nil, err
	}

	v := &Virus{
		Name:           vname,
		ProbInfecting:  ParamHook(transIdx),
		ProbRecovery:   ParamHook(recIdx),
		ProbDeath:      ConstHook(0),
		StateInfected:  1,
		StateRecovered: 2,
		StateDead:      2,
	}
	m.AddVirus(v, prevalence, true)

	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}
