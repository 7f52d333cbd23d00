package epiworld

// NoStateChange marks Agent.NextState when no state transition is scheduled
// for the current day.
const NoStateChange = -1

// Agent is a discrete simulated individual: a stable id, a current state, at
// most one attached virus, a set of attached tools, its contact-network
// neighbours and entity memberships. Agents are never mutated directly by
// state-update functions; every change flows through the model's EventBus so
// a day's updates behave as a snapshot.
type Agent struct {
	ID        int
	State     int
	NextState int

	Virus *VirusInstance
	Tools []*ToolInstance

	Neighbors []int
	Entities  []int

	model *Model
}

// NewAgent creates an agent with no virus, tools, neighbours, or entities.
func NewAgent(id int, model *Model) *Agent {
	return &Agent{ID: id, State: 0, NextState: NoStateChange, model: model}
}

// HasVirus reports whether the agent currently carries an active infection.
func (a *Agent) HasVirus() bool { return a.Virus != nil }

// HasTool reports whether the agent has acquired a given tool id.
func (a *Agent) HasTool(toolID int) bool {
	for _, ti := range a.Tools {
		if ti.Tool.ID == toolID {
			return true
		}
	}
	return false
}

// IsInEntity reports membership in the given entity id.
func (a *Agent) IsInEntity(entityID int) bool {
	for _, id := range a.Entities {
		if id == entityID {
			return true
		}
	}
	return false
}

// PInfect returns this agent's effective probability of being infected by
// virus v: the virus's base infecting probability scaled by the agent's
// tool-mixed susceptibility reduction. Only the target side is folded in
// here; the source's transmission reduction is applied by the kernel.
func (a *Agent) PInfect(v *Virus, model *Model) float64 {
	base := v.ProbInfecting.Eval(a, v, model)
	reduction := susceptibilityReductionOf(a, v, model)
	return base * (1 - reduction)
}

// Copy deep-copies the agent's fields, including its virus and tool
// instances and its neighbour and entity id slices, for Model.Clone. The
// model backpointer is rebound by the caller once the new Model exists.
func (a *Agent) Copy() *Agent {
	n := &Agent{ID: a.ID, State: a.State, NextState: a.NextState}
	if a.Virus != nil {
		vi := *a.Virus
		n.Virus = &vi
	}
	if a.Tools != nil {
		n.Tools = make([]*ToolInstance, len(a.Tools))
		for i, ti := range a.Tools {
			cp := *ti
			n.Tools[i] = &cp
		}
	}
	n.Neighbors = append([]int(nil), a.Neighbors...)
	n.Entities = append([]int(nil), a.Entities...)
	return n
}
