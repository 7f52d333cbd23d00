package epiworld

import (
	"log"
	"sync"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

// Model is the composition root: it owns every agent, virus, tool, entity,
// the contact graph, the event/global-event buses, the statistics database,
// and a private RNG engine, and exposes Run/RunMultiple/Clone.
type Model struct {
	Name string

	States []StateEntry

	paramNames  map[string]int
	paramValues []float64

	Viruses  []*Virus
	Tools    []*Tool
	Entities []*Entity
	Agents   []*Agent

	Graph *AdjList

	Queue        *ActiveQueue
	Events       *EventBus
	GlobalEvents *GlobalEventBus
	DB           *Database
	RNG          *RNGEngine
	Kernel       TransmissionKernel
	Mixer        Mixer

	QueuingOff bool
	Day        int
	NDays      int

	// RunID is a collision-free correlation id for this replicate, used in
	// log lines. CSV/SQLite dumps are named by the numeric replicate index,
	// not by RunID.
	RunID string

	contactRate       float64
	agentContactRate  map[int]float64
	entityContactRate map[int]float64
	infectiousIndex   map[int][]int

	virusPrevalence            map[int]float64
	virusPrevalenceAsProportion map[int]bool
	toolPrevalence             map[int]float64
	toolPrevalenceAsProportion map[int]bool

	initialStatesFun func(model *Model)

	snapshot []*Agent // agent states at day 0, for reset between replicates

	// hospitalizationRateIdx is a preset-specific parameter index (only
	// meaningful for Measles-like models); zero value is harmless since
	// index 0 always resolves to whatever the first registered parameter
	// is in non-Measles presets, which never consult this field.
	hospitalizationRateIdx int
}

// NewModel allocates an empty model over n agents connected by graph (nil
// means agents start with no network neighbours, e.g. a pure group-mixing
// model).
func NewModel(name string, n int, graph *AdjList) *Model {
	m := &Model{
		Name:                        name,
		paramNames:                  make(map[string]int),
		Queue:                       NewActiveQueue(n, false),
		Events:                      NewEventBus(),
		GlobalEvents:                NewGlobalEventBus(),
		RNG:                         NewRNG(1),
		Kernel:                      NetworkKernel{},
		Mixer:                       IndependentActionMixer,
		Graph:                       graph,
		agentContactRate:            make(map[int]float64),
		entityContactRate:           make(map[int]float64),
		infectiousIndex:             make(map[int][]int),
		virusPrevalence:             make(map[int]float64),
		virusPrevalenceAsProportion: make(map[int]bool),
		toolPrevalence:              make(map[int]float64),
		toolPrevalenceAsProportion:  make(map[int]bool),
		RunID:                       ksuid.New().String(),
	}
	m.Agents = make([]*Agent, n)
	for i := 0; i < n; i++ {
		a := NewAgent(i, m)
		if graph != nil {
			a.Neighbors = append([]int(nil), graph.Neighbors(i)...)
		}
		m.Agents[i] = a
	}
	return m
}

// AddState registers a new state and returns its index.
func (m *Model) AddState(label string, update UpdateFunc) int {
	m.States = append(m.States, StateEntry{Label: label, Update: update})
	return len(m.States) - 1
}

// AddParam registers name -> value, returning a stable index (used to build
// ParamHook values). Invariant: names unique unless the caller calls SetParam
// to overwrite by index instead of calling AddParam twice.
func (m *Model) AddParam(name string, value float64) (int, error) {
	if _, exists := m.paramNames[name]; exists {
		return 0, newError(InvalidArgument, "parameter %q already exists", name)
	}
	m.paramValues = append(m.paramValues, value)
	idx := len(m.paramValues) - 1
	m.paramNames[name] = idx
	return idx, nil
}

// ParamIndex resolves a parameter name to its stable index.
func (m *Model) ParamIndex(name string) (int, error) {
	idx, ok := m.paramNames[name]
	if !ok {
		return 0, newError(OutOfRange, "parameter %q not found", name)
	}
	return idx, nil
}

// ParamValue reads the current value of parameter idx. Parameters are
// addressed by stable index rather than pointer so bound hooks survive
// Model.Clone.
func (m *Model) ParamValue(idx int) float64 { return m.paramValues[idx] }

// SetParam overwrites the value of parameter idx; every Hook built with
// ParamHook(idx) observes the change immediately, including when a
// GlobalEvent mutates the value mid-run.
func (m *Model) SetParam(idx int, value float64) { m.paramValues[idx] = value }

// AddVirus registers a virus template and its day-0 seeding prevalence.
// asProportion selects whether prevalence is a fraction of the population or
// an absolute agent count.
func (m *Model) AddVirus(v *Virus, prevalence float64, asProportion bool) int {
	v.ID = len(m.Viruses)
	m.Viruses = append(m.Viruses, v)
	m.virusPrevalence[v.ID] = prevalence
	m.virusPrevalenceAsProportion[v.ID] = asProportion
	return v.ID
}

// AddTool registers a tool template and its day-0 distribution prevalence,
// mirroring AddVirus's prevalence bookkeeping so tools can be seeded onto a
// subset of agents the same way viruses are.
func (m *Model) AddTool(t *Tool, prevalence float64, asProportion bool) int {
	t.ID = len(m.Tools)
	m.Tools = append(m.Tools, t)
	m.toolPrevalence[t.ID] = prevalence
	m.toolPrevalenceAsProportion[t.ID] = asProportion
	return t.ID
}

// AddEntity registers an entity.
func (m *Model) AddEntity(e *Entity) int {
	e.ID = len(m.Entities)
	m.Entities = append(m.Entities, e)
	return e.ID
}

// SetContactRate sets the model-wide scalar contact rate used by
// GroupMixingKernel when no per-agent or per-entity override exists.
func (m *Model) SetContactRate(rate float64) { m.contactRate = rate }

// SetAgentContactRate overrides the contact rate for one agent (highest
// precedence).
func (m *Model) SetAgentContactRate(agentID int, rate float64) { m.agentContactRate[agentID] = rate }

// SetEntityContactRate overrides the contact rate for every agent in one
// entity (second precedence).
func (m *Model) SetEntityContactRate(entityID int, rate float64) { m.entityContactRate[entityID] = rate }

// SetInitialStates lets a caller specify day-0 state proportions directly,
// supplementing per-virus prevalence. proportions must have one entry per state and
// sum to <= 1; entry[1] (the "infected" slot in a 3-state SIR-shaped table)
// must be zero since infection is seeded separately via AddVirus.
func (m *Model) SetInitialStates(proportions []float64) error {
	if len(proportions) != len(m.States) {
		return newError(InvalidArgument, "proportions length %d != %d states", len(proportions), len(m.States))
	}
	m.initialStatesFun = func(model *Model) {
		n := len(model.Agents)
		total := 0.0
		for _, p := range proportions {
			total += p
		}
		if total <= 0 {
			return
		}
		susceptible := make([]int, 0, n)
		for _, a := range model.Agents {
			if a.State == 0 {
				susceptible = append(susceptible, a.ID)
			}
		}
		model.RNG.Shuffle(susceptible)
		cursor := 0
		for state := 2; state < len(proportions); state++ {
			count := int(proportions[state] / total * float64(len(susceptible)))
			for i := 0; i < count && cursor < len(susceptible); i++ {
				model.Agents[susceptible[cursor]].State = state
				cursor++
			}
		}
	}
	return nil
}

// Build finalises population construction: assigns entity memberships (via
// each Entity.Distribute, if set) and seeds day-0 virus prevalence. Must run
// once before the first Run/RunMultiple call; running before construction is
// an InvalidState error.
func (m *Model) Build() error {
	if len(m.Agents) == 0 {
		return newError(InvalidState, "model has no agents; construct the population first")
	}
	if len(m.States) == 0 {
		return newError(InvalidState, "model has no states registered")
	}
	for _, v := range m.Viruses {
		if err := v.validate(); err != nil {
			return err
		}
	}
	for _, t := range m.Tools {
		if err := t.validate(); err != nil {
			return err
		}
	}

	m.DB = NewDatabase(m.labels())
	m.DB.Configure(len(m.Viruses), len(m.Tools))

	for _, e := range m.Entities {
		if e.Distribute == nil {
			continue
		}
		for _, id := range e.Distribute(m) {
			m.Events.Enqueue(Event{Kind: EventAddEntity, AgentID: id, EntityID: e.ID})
		}
	}
	m.Events.Flush(m)

	if m.initialStatesFun != nil {
		m.initialStatesFun(m)
	}

	for _, v := range m.Viruses {
		prevalence := m.virusPrevalence[v.ID]
		n := 0
		if m.virusPrevalenceAsProportion[v.ID] {
			n = int(prevalence * float64(len(m.Agents)))
		} else {
			n = int(prevalence)
		}
		susceptible := make([]int, 0, len(m.Agents))
		for _, a := range m.Agents {
			if a.State == 0 && !a.HasVirus() {
				susceptible = append(susceptible, a.ID)
			}
		}
		// Seeding goes through the event bus rather than mutating agent.Virus/
		// agent.State directly, so a day-0 seed gets the same
		// DB.RecordTransmission(day, -1, agent, virus, day) accounting as any
		// other EventAddVirus (apply()'s case below), and the transmission
		// artifact's seed rows aren't silently dropped. Flushed per-virus so
		// the next virus's susceptible scan doesn't re-offer an agent this
		// one just infected.
		seeds := m.RNG.SampleWithoutReplacement(len(susceptible), n)
		for _, idx := range seeds {
			agentID := susceptible[idx]
			m.Events.Enqueue(Event{
				Kind:     EventAddVirus,
				AgentID:  agentID,
				Virus:    v,
				SourceID: -1,
				NewState: v.StateInfected,
			})
		}
		m.Events.Flush(m)
	}

	// Tools are distributed through the same deferred event path a running
	// model uses for EventAddTool, rather than mutating agent.Tools directly,
	// so day-0 seeding exercises the same apply() logic a mid-run campaign
	// would (e.g. a GlobalEvent enqueuing EventAddTool for a vaccine rollout).
	for _, t := range m.Tools {
		prevalence := m.toolPrevalence[t.ID]
		n := 0
		if m.toolPrevalenceAsProportion[t.ID] {
			n = int(prevalence * float64(len(m.Agents)))
		} else {
			n = int(prevalence)
		}
		candidates := make([]int, 0, len(m.Agents))
		for _, a := range m.Agents {
			if !a.HasTool(t.ID) {
				candidates = append(candidates, a.ID)
			}
		}
		picks := m.RNG.SampleWithoutReplacement(len(candidates), n)
		for _, idx := range picks {
			m.Events.Enqueue(Event{Kind: EventAddTool, AgentID: candidates[idx], Tool: t})
		}
	}
	m.Events.Flush(m)

	m.updateInfectiousIndex()
	m.DB.RecordDay(0, m.Agents)
	m.snapshot = m.snapshotAgents()
	return nil
}

func (m *Model) labels() []string {
	labels := make([]string, len(m.States))
	for i, s := range m.States {
		labels[i] = s.Label
	}
	return labels
}

func (m *Model) snapshotAgents() []*Agent {
	snap := make([]*Agent, len(m.Agents))
	for i, a := range m.Agents {
		snap[i] = a.Copy()
	}
	return snap
}

// ResetToSnapshot restores every agent to its day-0 state, used between
// replicates when RunMultiple's reset flag is set.
func (m *Model) ResetToSnapshot() {
	for i, snap := range m.snapshot {
		restored := snap.Copy()
		restored.model = m
		m.Agents[i] = restored
	}
	m.Queue = NewActiveQueue(len(m.Agents), m.QueuingOff)
	m.Day = 0
	m.DB.Reset()
	m.updateInfectiousIndex()
}

func (m *Model) updateInfectiousIndex() {
	for k := range m.infectiousIndex {
		delete(m.infectiousIndex, k)
	}
	for _, a := range m.Agents {
		if !isInfectious(a) {
			continue
		}
		for _, eID := range a.Entities {
			m.infectiousIndex[eID] = append(m.infectiousIndex[eID], a.ID)
		}
	}
}

// apply performs one queued event's mutation against the live agent slice,
// and records the corresponding transition/transmission into the database.
func (m *Model) apply(e Event) {
	agent := m.Agents[e.AgentID]
	from := agent.State
	priorVirusID := -1
	if agent.Virus != nil {
		priorVirusID = agent.Virus.Virus.ID
	}

	switch e.Kind {
	case EventSetState:
		agent.State = e.NewState
	case EventAddVirus:
		if agent.Virus != nil {
			return // invariant: no double infection
		}
		agent.Virus = &VirusInstance{
			Virus:       e.Virus,
			OwnerID:     agent.ID,
			SourceID:    e.SourceID,
			ExposureDay: m.Day,
		}
		agent.State = e.NewState
		if m.DB != nil {
			if e.SourceID >= 0 {
				// The kernel stamps the source's exposure day into the event
				// at enqueue time: by flush time the source may already have
				// applied its own recovery and dropped the virus instance.
				m.DB.RecordTransmission(m.Day, e.SourceID, agent.ID, e.Virus.ID, e.SourceExposureDay)
			} else {
				m.DB.RecordTransmission(m.Day, -1, agent.ID, e.Virus.ID, m.Day)
			}
		}
		m.Queue.MarkActiveNext(agent.ID)
		for _, nbr := range agent.Neighbors {
			m.Queue.MarkActiveNext(nbr)
		}
	case EventRmVirus:
		if agent.Virus != nil {
			virus := agent.Virus.Virus
			if virus.PostImmunity > 0 && e.NewState == virus.StateRecovered {
				// Post-immunity is modelled as a susceptibility-reducing Tool
				// the agent acquires on recovery, composed through the same
				// mixer as any other tool (susceptibilityReductionOf).
				agent.Tools = append(agent.Tools, &ToolInstance{
					Tool:        &Tool{Name: virus.Name + " immunity", SusceptibilityReduction: ConstHook(virus.PostImmunity)},
					OwnerID:     agent.ID,
					AcquiredDay: m.Day,
				})
			}
		}
		agent.Virus = nil
		agent.State = e.NewState
	case EventAddTool:
		agent.Tools = append(agent.Tools, &ToolInstance{Tool: e.Tool, OwnerID: agent.ID, AcquiredDay: m.Day})
	case EventRmTool:
		for i, ti := range agent.Tools {
			if ti.Tool.ID == e.Tool.ID {
				agent.Tools = append(agent.Tools[:i], agent.Tools[i+1:]...)
				break
			}
		}
	case EventAddEntity:
		ent := m.Entities[e.EntityID]
		ent.addMember(agent.ID)
		if !agent.IsInEntity(e.EntityID) {
			agent.Entities = append(agent.Entities, e.EntityID)
		}
	case EventRmEntity:
		ent := m.Entities[e.EntityID]
		ent.removeMember(agent.ID)
		agent.Entities = removeInt(agent.Entities, e.EntityID)
	}

	if m.DB == nil {
		return
	}
	switch e.Kind {
	case EventSetState, EventAddVirus, EventRmVirus:
		// Self-loops (state N -> N) are recorded too, as "stayed". Tool and
		// entity events never touch the agent's state and record nothing.
		virusID := priorVirusID
		if agent.Virus != nil {
			virusID = agent.Virus.Virus.ID
		}
		m.DB.RecordTransition(m.Day, from, agent.State, virusID)
	}
}

// step runs one day: advance_day -> update_state -> flush_events ->
// run_global_events -> record_stats. The day counter is advanced first, so
// day 1 is the first post-initial step; day 0 is the initial population
// state Run records before any step.
func (m *Model) step() {
	m.Day++
	for _, a := range m.Agents {
		if !m.Queue.IsActive(a.ID) {
			continue
		}
		if a.Virus != nil && a.Virus.Virus.Mutate != nil {
			// The mutation hook may swap the agent's infection for a different
			// virus template (e.g. antigenic drift). Applied in place rather
			// than via the event bus: it changes which pathogen the agent
			// carries, not the agent's compartment.
			if nv := a.Virus.Virus.Mutate(a, a.Virus.Virus, m); nv != nil {
				a.Virus.Virus = nv
			}
		}
		entry := m.States[a.State]
		if entry.Update != nil {
			entry.Update(a, m)
		}
	}
	m.Events.Flush(m)
	m.GlobalEvents.Run(m.Day, m)
	// A global event may itself enqueue events (outbreak seeding, a vaccine
	// campaign); flush again so they land today, before the day advances.
	m.Events.Flush(m)
	m.updateInfectiousIndex()

	// Re-mark every virus-carrying agent whose current state still has an
	// update function (and its graph neighbours) active for tomorrow.
	// apply()'s EventAddVirus case only marks active the day an agent is
	// infected; without this pass an agent that stays in its compartment on
	// that one checked day drops out of the active set and never runs its
	// update function again. The carrier test must not be isInfectious:
	// Exposed agents mid-incubation and Hospitalized agents awaiting
	// recovery carry a virus in a non-infectious state and still need their
	// daily update.
	for _, a := range m.Agents {
		if a.Virus == nil || m.States[a.State].Update == nil {
			continue
		}
		m.Queue.MarkActiveNext(a.ID)
		for _, nbr := range a.Neighbors {
			m.Queue.MarkActiveNext(nbr)
		}
	}

	m.DB.RecordDay(m.Day, m.Agents)
	m.Queue.Swap()
}

// Run advances the model ndays days from its current state, reseeding RNG
// with seed first. On failure before any step, the model is left untouched;
// Build() must already have run. A fresh (or reset) model first records its
// day-0 state, so the history spans days 0..ndays with day 1 the first
// post-initial step.
func (m *Model) Run(ndays int, seed int64) error {
	if m.DB == nil {
		return newError(InvalidState, "model not built; call Build() first")
	}
	m.RNG.Reseed(seed)
	m.NDays = ndays
	log.Printf("epiworld: replicate %s starting run: %d days, seed %d", m.RunID, ndays, seed)
	if m.Day == 0 {
		m.DB.RecordDay(0, m.Agents)
	}
	for d := 1; d <= ndays; d++ {
		m.step()
	}
	log.Printf("epiworld: replicate %s finished run", m.RunID)
	return nil
}

// RunMultiple runs nreps independent replicates across nthreads goroutines,
// saving each via saver(repIndex, model). Each replicate's RNG is seeded
// seed+repIndex regardless of which thread executes it, which is what makes
// the whole run thread-count-invariant.
func (m *Model) RunMultiple(ndays, nreps int, seed int64, saver func(repIndex int, model *Model), reset bool, verbose bool, nthreads int) error {
	if nthreads < 1 {
		nthreads = 1
	}
	if m.DB == nil {
		return newError(InvalidState, "model not built; call Build() first")
	}

	var wg sync.WaitGroup
	var saverMu sync.Mutex
	sem := make(chan struct{}, nthreads)
	errCh := make(chan error, nreps)

	for rep := 0; rep < nreps; rep++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(rep int) {
			defer wg.Done()
			defer func() { <-sem }()

			clone := m.Clone()
			if reset {
				clone.ResetToSnapshot()
			}
			if err := clone.Run(ndays, seed+int64(rep)); err != nil {
				errCh <- errors.Wrapf(err, "replicate %d", rep)
				return
			}
			if verbose {
				log.Printf("epiworld: replicate %d/%d complete", rep+1, nreps)
			}
			if saver != nil {
				saverMu.Lock()
				saver(rep, clone)
				saverMu.Unlock()
			}
		}(rep)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone deep-copies every owned structure so the returned Model shares no
// mutable state with the receiver, recreating reference integrity by id.
func (m *Model) Clone() *Model {
	n := &Model{
		Name:                        m.Name,
		States:                      append([]StateEntry(nil), m.States...),
		paramNames:                  make(map[string]int, len(m.paramNames)),
		paramValues:                 append([]float64(nil), m.paramValues...),
		Viruses:                     append([]*Virus(nil), m.Viruses...),
		Tools:                       append([]*Tool(nil), m.Tools...),
		QueuingOff:                  m.QueuingOff,
		Day:                         m.Day,
		NDays:                       m.NDays,
		RunID:                       ksuid.New().String(),
		contactRate:                 m.contactRate,
		agentContactRate:            make(map[int]float64, len(m.agentContactRate)),
		entityContactRate:           make(map[int]float64, len(m.entityContactRate)),
		infectiousIndex:             make(map[int][]int, len(m.infectiousIndex)),
		virusPrevalence:             make(map[int]float64, len(m.virusPrevalence)),
		virusPrevalenceAsProportion: make(map[int]bool, len(m.virusPrevalenceAsProportion)),
		toolPrevalence:              make(map[int]float64, len(m.toolPrevalence)),
		toolPrevalenceAsProportion:  make(map[int]bool, len(m.toolPrevalenceAsProportion)),
		initialStatesFun:            m.initialStatesFun,
		Kernel:                      m.Kernel,
		Mixer:                       m.Mixer,
		Graph:                       m.Graph,
		hospitalizationRateIdx:      m.hospitalizationRateIdx,
	}
	for k, v := range m.paramNames {
		n.paramNames[k] = v
	}
	for k, v := range m.agentContactRate {
		n.agentContactRate[k] = v
	}
	for k, v := range m.entityContactRate {
		n.entityContactRate[k] = v
	}
	for k, v := range m.virusPrevalence {
		n.virusPrevalence[k] = v
	}
	for k, v := range m.virusPrevalenceAsProportion {
		n.virusPrevalenceAsProportion[k] = v
	}
	for k, v := range m.toolPrevalence {
		n.toolPrevalence[k] = v
	}
	for k, v := range m.toolPrevalenceAsProportion {
		n.toolPrevalenceAsProportion[k] = v
	}

	n.Entities = make([]*Entity, len(m.Entities))
	for i, e := range m.Entities {
		n.Entities[i] = e.Copy()
	}

	n.Agents = make([]*Agent, len(m.Agents))
	for i, a := range m.Agents {
		cp := a.Copy()
		cp.model = n
		n.Agents[i] = cp
	}

	n.Events = NewEventBus()
	n.GlobalEvents = m.GlobalEvents.Copy()
	n.Queue = m.Queue.Copy()
	n.RNG = NewRNG(m.RNG.Seed())
	if m.DB != nil {
		n.DB = m.DB.Copy()
	}
	if m.snapshot != nil {
		n.snapshot = make([]*Agent, len(m.snapshot))
		for i, a := range m.snapshot {
			n.snapshot[i] = a.Copy()
		}
	}
	return n
}

// VirusInfo is one row of the virus_info output artifact.
type VirusInfo struct {
	ID                int
	Name              string
	InitialPrevalence float64
	AsProportion      bool
}

// VirusInfos reports every registered virus's day-0 seeding configuration.
func (m *Model) VirusInfos() []VirusInfo {
	out := make([]VirusInfo, len(m.Viruses))
	for i, v := range m.Viruses {
		out[i] = VirusInfo{
			ID:                v.ID,
			Name:              v.Name,
			InitialPrevalence: m.virusPrevalence[v.ID],
			AsProportion:      m.virusPrevalenceAsProportion[v.ID],
		}
	}
	return out
}

// ToolInfo is one row of the tool_info output artifact, added alongside
// virus_info for the same reason: Tool is a first-class registered
// component and deserves the same name/prevalence accounting.
type ToolInfo struct {
	ID                int
	Name              string
	InitialPrevalence float64
	AsProportion      bool
}

// ToolInfos reports every registered tool's day-0 distribution configuration.
func (m *Model) ToolInfos() []ToolInfo {
	out := make([]ToolInfo, len(m.Tools))
	for i, t := range m.Tools {
		out[i] = ToolInfo{
			ID:                t.ID,
			Name:              t.Name,
			InitialPrevalence: m.toolPrevalence[t.ID],
			AsProportion:      m.toolPrevalenceAsProportion[t.ID],
		}
	}
	return out
}
