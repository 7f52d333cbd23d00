package epiworld

// NewSIRConnected builds a group-mixing (entity/contact-matrix based) SIR
// model over a single fully-mixing entity: instead of a contact network,
// agents sample contacts via Binomial(I, rate/N), where I is the number of
// infectious agents and N the population, against a single-entity contact
// matrix (a 1x1 matrix of [1.0]).
func NewSIRConnected(n int, vname string, prevalence, transmissionRate, contactRate, recoveryRate float64) (*Model, error) {
	m := NewModel("Susceptible-Infected-Recovered Connected (SIRCONN)", n, nil)

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
	m.SetContactRate(contactRate)

	pop := NewEntity(0, "Population")
	pop.Distribute = func(model *Model) []int {
		ids := make([]int, len(model.Agents))
		for i := range ids {
			ids[i] = i
		}
		return ids
	}
	m.AddEntity(pop)
	kernel, err := NewGroupMixingKernel([][]float64{{1.0}}, false)
	if err != nil {
		return nil, err
	}
	m.Kernel = kernel

	// Group-mixing agents have no graph neighbours, so the active-queue's
	// neighbour-marking never reaches a susceptible agent outside the
	// infecting agent's own entity membership. Every agent runs every day
	// instead.
	m.QueuingOff = true
	m.Queue = NewActiveQueue(n, true)

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
