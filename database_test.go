package epiworld

import "testing"

func newTestAgents(states []int) []*Agent {
	agents := make([]*Agent, len(states))
	for i, s := range states {
		agents[i] = &Agent{ID: i, State: s}
	}
	return agents
}

func TestDatabase_RecordDay_TotalsSumToPopulation(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Infected", "Recovered"})
	agents := newTestAgents([]int{0, 0, 1, 2, 0})
	db.RecordDay(0, agents)

	total := db.TotalHistory()[0]
	sum := 0
	for _, c := range total {
		sum += c
	}
	if sum != len(agents) {
		t.Errorf(UnequalIntParameterError, "summed state counts", len(agents), sum)
	}
	if total[0] != 3 {
		t.Errorf(UnequalIntParameterError, "susceptible count", 3, total[0])
	}
}

func TestDatabase_RecordTransition_HospitalizationFlag(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Infectious", "Hospitalized", "Recovered"})
	db.RecordTransition(3, 1, 2, 0)
	if got := db.Hospitalizations(3); got != 1 {
		t.Errorf(UnequalIntParameterError, "hospitalizations on day 3", 1, got)
	}
	if got := db.HospitalizationsByVirus(3, 0); got != 1 {
		t.Errorf(UnequalIntParameterError, "hospitalizations on day 3 for virus 0", 1, got)
	}
	db.RecordTransition(3, 2, 3, 0)
	if got := db.Hospitalizations(3); got != 1 {
		t.Errorf(UnequalIntParameterError, "hospitalizations on day 3 after recovery", 1, got)
	}
}

func TestDatabase_RecordDay_VirusHistSurvivesExtinction(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Infected", "Recovered"})
	db.Configure(1, 0)

	carrier := &Agent{ID: 0, State: 1, Virus: &VirusInstance{Virus: &Virus{ID: 0}, OwnerID: 0}}
	db.RecordDay(0, []*Agent{carrier, {ID: 1, State: 0}})

	extinct := &Agent{ID: 0, State: 2}
	db.RecordDay(1, []*Agent{extinct, {ID: 1, State: 0}})

	hist, ok := db.VirusHistory()[1][0]
	if !ok {
		t.Fatal("expected virus 0 to still have a virus_hist entry on day 1 after its last carrier recovered")
	}
	sum := 0
	for _, c := range hist {
		sum += c
	}
	if sum != 0 {
		t.Errorf(UnequalIntParameterError, "virus 0 live-carrier count on day 1", 0, sum)
	}
}

func TestDatabase_OutbreakSize_EqualsTransmissionCount(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Infected", "Recovered"})
	db.RecordTransmission(0, -1, 0, 0, 0)
	db.RecordTransmission(1, 0, 1, 0, 0)
	db.RecordTransmission(2, 1, 2, 0, 1)
	db.RecordDay(2, newTestAgents([]int{1, 1, 1}))

	if got := db.OutbreakSize(0, 2); got != 3 {
		t.Errorf(UnequalIntParameterError, "outbreak size", 3, got)
	}
	if got := len(db.Transmissions()); got != 3 {
		t.Errorf(UnequalIntParameterError, "transmission count", 3, got)
	}
}

func TestDatabase_ReproductiveNumbers_CountsSecondaryCases(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Infected", "Recovered"})
	db.RecordTransmission(0, -1, 0, 0, 0)
	db.RecordTransmission(1, 0, 1, 0, 0)
	db.RecordTransmission(2, 0, 2, 0, 0)

	rows := db.ReproductiveNumbers()
	if len(rows) != 1 {
		t.Fatalf(UnequalIntParameterError, "reproductive-number rows", 1, len(rows))
	}
	if rows[0][3] != 2 {
		t.Errorf(UnequalIntParameterError, "secondary cases for source 0", 2, rows[0][3])
	}
}

func TestDatabase_DumpTransition_RowOrderDeterministic(t *testing.T) {
	// Two databases fed the same transitions in different insertion orders
	// must emit byte-identical rows, sorted by (from, to), never in map
	// iteration order.
	build := func(pairs [][2]int) *Database {
		db := NewDatabase([]string{"Susceptible", "Infected", "Recovered"})
		db.RecordDay(0, newTestAgents([]int{0, 1, 2}))
		for _, p := range pairs {
			db.RecordTransition(0, p[0], p[1], 0)
		}
		return db
	}
	a := build([][2]int{{0, 1}, {1, 2}, {2, 2}, {0, 0}})
	b := build([][2]int{{2, 2}, {0, 0}, {1, 2}, {0, 1}})

	out1 := string(a.dumpTransition()())
	out2 := string(b.dumpTransition()())
	if out1 != out2 {
		t.Errorf("expected identical transition dumps regardless of insertion order:\n%s\nvs\n%s", out1, out2)
	}
}

func TestDatabase_DumpVirusHist_CoversEveryRegisteredVirus(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Infected", "Recovered"})
	db.Configure(2, 0)
	carrier := &Agent{ID: 0, State: 1, Virus: &VirusInstance{Virus: &Virus{ID: 1}, OwnerID: 0}}
	db.RecordDay(0, []*Agent{carrier, {ID: 1, State: 0}})

	out := string(db.dumpVirusHist([]string{"Susceptible", "Infected", "Recovered"})())
	want := "date,virus_id,state,count\n" +
		"0,0,\"Susceptible\",0\n0,0,\"Infected\",0\n0,0,\"Recovered\",0\n" +
		"0,1,\"Susceptible\",0\n0,1,\"Infected\",1\n0,1,\"Recovered\",0\n"
	if out != want {
		t.Errorf(UnequalStringParameterError, "virus_hist dump", want, out)
	}
}

func TestDatabase_Reset_PreservesConfig(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Hospitalized", "Recovered"})
	db.RecordDay(0, newTestAgents([]int{0, 1, 2}))
	db.RecordTransition(0, 0, 1, -1)

	db.Reset()

	if db.nStates != 3 {
		t.Errorf(UnequalIntParameterError, "nStates after reset", 3, db.nStates)
	}
	if !db.hospitalizedStates[1] {
		t.Error("expected hospitalized-state flag to survive Reset")
	}
	if len(db.TotalHistory()) != 0 {
		t.Error("expected history to be cleared by Reset")
	}
}

func TestDatabase_Copy_Independent(t *testing.T) {
	db := NewDatabase([]string{"Susceptible", "Infected", "Recovered"})
	db.RecordDay(0, newTestAgents([]int{0, 1, 2}))
	cp := db.Copy()
	cp.RecordDay(1, newTestAgents([]int{1, 1, 1}))

	if _, ok := db.TotalHistory()[1]; ok {
		t.Error("mutating a copy should not affect the original database")
	}
	if _, ok := cp.TotalHistory()[1]; !ok {
		t.Error("expected the copy to observe its own RecordDay call")
	}
}
