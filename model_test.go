package epiworld

import "testing"

func buildSIRModel(n int, seed int64) *Model {
	graph := WattsStrogatz(n, 4, 0.1, false, NewRNG(seed))
	m, err := NewSIR(graph, "flu", 0.1, 0.3, 0.1)
	if err != nil {
		panic(err)
	}
	m.RNG.Reseed(seed)
	return m
}

func totalPopulation(m *Model) int {
	// m.Day is the last recorded day (0 on a model that never ran).
	total := m.DB.TotalHistory()[m.Day]
	sum := 0
	for _, c := range total {
		sum += c
	}
	return sum
}

func TestModel_Run_PreservesPopulationSize(t *testing.T) {
	m := buildSIRModel(100, 42)
	if err := m.Run(30, 42); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running the model", err)
	}
	if got := totalPopulation(m); got != 100 {
		t.Errorf(UnequalIntParameterError, "population size across all states", 100, got)
	}
}

func TestModel_Run_BeforeBuild_IsInvalidState(t *testing.T) {
	m := NewModel("unbuilt", 5, nil)
	if err := m.Run(1, 1); err == nil {
		t.Errorf(ExpectedErrorWhileError, "running a model before Build()")
	}
}

func TestModel_QueuingOnOffEquivalence(t *testing.T) {
	n := 80
	makeModel := func(queuingOff bool) *Model {
		m := buildSIRModel(n, 10)
		m.QueuingOff = queuingOff
		m.Queue = NewActiveQueue(n, queuingOff)
		return m
	}

	queued := makeModel(false)
	unqueued := makeModel(true)

	if err := queued.Run(20, 10); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running queued model", err)
	}
	if err := unqueued.Run(20, 10); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running unqueued model", err)
	}

	qHist := queued.DB.TotalHistory()
	uHist := unqueued.DB.TotalHistory()
	for day, qCounts := range qHist {
		uCounts, ok := uHist[day]
		if !ok {
			t.Fatalf("unqueued run missing day %d present in queued run", day)
		}
		for i := range qCounts {
			if qCounts[i] != uCounts[i] {
				t.Errorf("day %d state %d: queued=%d unqueued=%d, expected identical results", day, i, qCounts[i], uCounts[i])
			}
		}
	}
}

func TestModel_Clone_Independence(t *testing.T) {
	m := buildSIRModel(50, 5)
	clone := m.Clone()

	originalState := m.Agents[0].State
	clone.Agents[0].State = originalState + 1
	if m.Agents[0].State != originalState {
		t.Error("mutating a clone's agent should not affect the original model's agent")
	}

	clone.SetParam(0, 999)
	if m.ParamValue(0) == 999 {
		t.Error("mutating a clone's parameter should not affect the original model")
	}

	if clone.RunID == m.RunID {
		t.Error("expected a clone to get its own RunID")
	}
}

func TestModel_Build_DistributesToolsThroughEventBus(t *testing.T) {
	m := NewModel("tool-seeding", 20, nil)
	m.AddState("Susceptible", DefaultUpdateSusceptible)
	m.AddState("Infected", DefaultUpdateInfectious)
	m.AddState("Recovered", nil)
	v := &Virus{ProbInfecting: ConstHook(0), ProbRecovery: ConstHook(0), ProbDeath: ConstHook(0), StateInfected: 1, StateRecovered: 2, StateDead: 2}
	m.AddVirus(v, 0, false)
	mask := &Tool{Name: "mask", SusceptibilityReduction: ConstHook(0.4)}
	m.AddTool(mask, 1.0, true)

	if err := m.Build(); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "building model with a fully-distributed tool", err)
	}

	for _, a := range m.Agents {
		if !a.HasTool(mask.ID) {
			t.Errorf("agent %d expected to carry the fully-distributed tool after Build()", a.ID)
		}
	}
}

func TestModel_EventRmVirus_PostImmunityGrantsProtectiveTool(t *testing.T) {
	m := NewModel("post-immunity", 1, nil)
	m.AddState("Susceptible", DefaultUpdateSusceptible)
	m.AddState("Infected", DefaultUpdateInfectious)
	m.AddState("Recovered", nil)
	v := &Virus{Name: "flu", ProbDeath: ConstHook(0), ProbRecovery: ConstHook(1), StateInfected: 1, StateRecovered: 2, StateDead: 2, PostImmunity: 0.6}
	m.AddVirus(v, 0, false)
	if err := m.Build(); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "building model", err)
	}

	agent := m.Agents[0]
	agent.State = 1
	agent.Virus = &VirusInstance{Virus: v, OwnerID: agent.ID, SourceID: -1}

	m.Events.Enqueue(Event{Kind: EventRmVirus, AgentID: agent.ID, NewState: v.StateRecovered})
	m.Events.Flush(m)

	if len(agent.Tools) != 1 {
		t.Fatalf(UnequalIntParameterError, "tools granted on recovery", 1, len(agent.Tools))
	}
	if got := agent.Tools[0].Tool.SusceptibilityReduction.Eval(agent, v, m); got != 0.6 {
		t.Errorf(UnequalFloatParameterError, "post-immunity susceptibility reduction", 0.6, got)
	}
}

func TestModel_RunMultiple_ThreadCountInvariant(t *testing.T) {
	// RunMultiple serializes every saver call behind its own mutex, so the
	// plain map write below is safe without an additional lock here.
	collect := func(nthreads int) map[int][]int {
		base := buildSIRModel(60, 77)
		results := make(map[int][]int)
		err := base.RunMultiple(15, 4, 1000, func(rep int, m *Model) {
			hist := m.DB.TotalHistory()
			last := hist[len(hist)-1]
			results[rep] = append([]int(nil), last...)
		}, true, false, nthreads)
		if err != nil {
			t.Fatalf(UnexpectedErrorWhileError, "running multiple replicates", err)
		}
		return results
	}

	oneThread := collect(1)
	fourThreads := collect(4)

	for rep, a := range oneThread {
		b, ok := fourThreads[rep]
		if !ok {
			t.Fatalf("replicate %d missing from 4-thread run", rep)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("replicate %d state %d: 1-thread=%d 4-thread=%d, expected thread-count invariance", rep, i, a[i], b[i])
			}
		}
	}
}

func TestModel_Build_RecordsSeedInfectionsAsTransmissions(t *testing.T) {
	m := NewModel("seed-recording", 30, nil)
	m.AddState("Susceptible", DefaultUpdateSusceptible)
	m.AddState("Infected", DefaultUpdateInfectious)
	m.AddState("Recovered", nil)
	v := &Virus{Name: "flu", ProbInfecting: ConstHook(0), ProbRecovery: ConstHook(0), ProbDeath: ConstHook(0), StateInfected: 1, StateRecovered: 2, StateDead: 2}
	m.AddVirus(v, 5, false)

	if err := m.Build(); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "building model with day-0 seeding", err)
	}

	seeds := 0
	for _, row := range m.DB.Transmissions() {
		if row.Source == -1 {
			seeds++
		}
	}
	if seeds != 5 {
		t.Errorf(UnequalIntParameterError, "recorded seed transmissions", 5, seeds)
	}
	if got := m.DB.OutbreakSize(0, 0); got != 5 {
		t.Errorf(UnequalIntParameterError, "outbreak size including seeds", 5, got)
	}
}

func TestModel_ExposedAgentProgressesWithoutInfectiousNeighbors(t *testing.T) {
	// An agent mid-incubation carries a virus but is not yet infectious; the
	// active queue must keep running its update function even when no
	// infectious agent is anywhere near it, or it freezes in Exposed.
	m, err := NewSEIR(EmptyAdjList(1, false), "flu", 1, 0.5, 3.0, 0)
	if err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "constructing SEIR model", err)
	}
	if err := m.Run(10, 1); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running SEIR model", err)
	}
	agent := m.Agents[0]
	if agent.Virus == nil {
		t.Fatal("expected the seeded agent to still carry its virus")
	}
	if agent.State != agent.Virus.Virus.InfectiousState {
		t.Errorf(UnequalIntParameterError, "agent state after incubation elapsed", agent.Virus.Virus.InfectiousState, agent.State)
	}
}

func TestModel_QueuingOnOffEquivalence_SEIR(t *testing.T) {
	n := 80
	makeModel := func(queuingOff bool) *Model {
		graph := WattsStrogatz(n, 4, 0.1, false, NewRNG(21))
		m, err := NewSEIR(graph, "flu", 0.1, 0.4, 4.0, 0.1)
		if err != nil {
			t.Fatalf(UnexpectedErrorWhileError, "constructing SEIR model", err)
		}
		m.QueuingOff = queuingOff
		m.Queue = NewActiveQueue(n, queuingOff)
		return m
	}

	queued := makeModel(false)
	unqueued := makeModel(true)

	if err := queued.Run(25, 21); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running queued SEIR model", err)
	}
	if err := unqueued.Run(25, 21); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running unqueued SEIR model", err)
	}

	qHist := queued.DB.TotalHistory()
	uHist := unqueued.DB.TotalHistory()
	for day, qCounts := range qHist {
		uCounts, ok := uHist[day]
		if !ok {
			t.Fatalf("unqueued run missing day %d present in queued run", day)
		}
		for i := range qCounts {
			if qCounts[i] != uCounts[i] {
				t.Errorf("day %d state %d: queued=%d unqueued=%d, expected identical results", day, i, qCounts[i], uCounts[i])
			}
		}
	}
}

func TestModel_Run_RecordsDayZeroBaseline(t *testing.T) {
	m := buildSIRModel(50, 8)
	if err := m.Run(10, 8); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running the model", err)
	}
	hist := m.DB.TotalHistory()
	if _, ok := hist[0]; !ok {
		t.Fatal("expected the initial population state to be recorded as day 0")
	}
	if len(hist) != 11 {
		t.Errorf(UnequalIntParameterError, "recorded days (0..ndays)", 11, len(hist))
	}
	if m.Day != 10 {
		t.Errorf(UnequalIntParameterError, "day counter after 10 steps", 10, m.Day)
	}
}

func TestModel_GlobalEventTiming(t *testing.T) {
	m := buildSIRModel(20, 3)
	var scheduled []int
	everyDay := 0
	m.GlobalEvents.Add(&GlobalEvent{Name: "audit", Day: 4, Fn: func(model *Model) {
		scheduled = append(scheduled, model.Day)
	}})
	m.GlobalEvents.Add(&GlobalEvent{Name: "tick", Day: EveryDay, Fn: func(model *Model) {
		everyDay++
	}})
	if err := m.Run(6, 3); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running the model", err)
	}
	if len(scheduled) != 1 || scheduled[0] != 4 {
		t.Errorf("expected the scheduled event to fire exactly once on day 4, fired=%v", scheduled)
	}
	if everyDay != 6 {
		t.Errorf(UnequalIntParameterError, "every-day event firings over days 1..6", 6, everyDay)
	}
}

func TestModel_Step_InvokesMutationHook(t *testing.T) {
	m := NewModel("mutation", 1, nil)
	m.AddState("Susceptible", DefaultUpdateSusceptible)
	m.AddState("Infected", DefaultUpdateInfectious)
	m.AddState("Recovered", nil)

	variant := &Virus{Name: "variant", ProbInfecting: ConstHook(0.5), ProbRecovery: ConstHook(0), ProbDeath: ConstHook(0), StateInfected: 1, StateRecovered: 2, StateDead: 2}
	wild := &Virus{Name: "wild", ProbInfecting: ConstHook(0.5), ProbRecovery: ConstHook(0), ProbDeath: ConstHook(0), StateInfected: 1, StateRecovered: 2, StateDead: 2}
	wild.Mutate = func(agent *Agent, virus *Virus, model *Model) *Virus { return variant }

	m.AddVirus(wild, 1, false)
	m.AddVirus(variant, 0, false)
	if err := m.Build(); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "building model", err)
	}
	if err := m.Run(1, 1); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running model", err)
	}

	vi := m.Agents[0].Virus
	if vi == nil {
		t.Fatal("expected the seeded agent to still carry a virus")
	}
	if vi.Virus.Name != "variant" {
		t.Errorf(UnequalStringParameterError, "virus after mutation hook", "variant", vi.Virus.Name)
	}
}

func TestModel_Build_RejectsOutOfRangeProbability(t *testing.T) {
	m := NewModel("bad-prob", 5, nil)
	m.AddState("Susceptible", DefaultUpdateSusceptible)
	m.AddState("Infected", DefaultUpdateInfectious)
	m.AddState("Recovered", nil)
	v := &Virus{Name: "flu", ProbInfecting: ConstHook(-0.2), ProbRecovery: ConstHook(0.1), ProbDeath: ConstHook(0), StateInfected: 1, StateRecovered: 2, StateDead: 2}
	m.AddVirus(v, 1, false)
	if err := m.Build(); err == nil {
		t.Errorf(ExpectedErrorWhileError, "building a model with a negative probability")
	}
}

func TestModel_InfectiousAgentStaysActiveAcrossMultipleDays(t *testing.T) {
	// An agent that neither recovers nor dies on the day it's checked must
	// keep running its update function every subsequent day it remains
	// infectious, whether or not the queue is enabled.
	run := func(queuingOff bool) int {
		graph := AdjListFromEdgeList(2, [][2]int{{0, 1}}, false)
		m := NewModel("stays-infectious", 2, graph)
		m.QueuingOff = queuingOff
		m.Queue = NewActiveQueue(2, queuingOff)
		m.AddState("Susceptible", DefaultUpdateSusceptible)
		m.AddState("Infected", DefaultUpdateInfectious)
		m.AddState("Recovered", nil)
		v := &Virus{Name: "flu", ProbInfecting: ConstHook(1), ProbRecovery: ConstHook(0), ProbDeath: ConstHook(0), StateInfected: 1, StateRecovered: 2, StateDead: 2}
		m.AddVirus(v, 1, false)
		if err := m.Build(); err != nil {
			t.Fatalf(UnexpectedErrorWhileError, "building model", err)
		}
		if err := m.Run(5, 1); err != nil {
			t.Fatalf(UnexpectedErrorWhileError, "running model", err)
		}
		infected := 0
		for _, a := range m.Agents {
			if a.State == 1 {
				infected++
			}
		}
		return infected
	}

	if got := run(false); got != 2 {
		t.Errorf(UnequalIntParameterError, "agents still infected after 5 days (queued)", 2, got)
	}
	if got := run(true); got != 2 {
		t.Errorf(UnequalIntParameterError, "agents still infected after 5 days (unqueued)", 2, got)
	}
}
