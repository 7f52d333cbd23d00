package epiworld

import "testing"

func TestGlobalEventBus_ScheduledDayOnly(t *testing.T) {
	b := NewGlobalEventBus()
	var fired []int
	b.Add(&GlobalEvent{Name: "bump", Day: 5, Fn: func(m *Model) { fired = append(fired, m.Day) }})

	for day := 0; day < 10; day++ {
		m := &Model{Day: day}
		b.Run(day, m)
	}
	if len(fired) != 1 || fired[0] != 5 {
		t.Errorf("expected the scheduled event to fire exactly once on day 5, fired=%v", fired)
	}
}

func TestGlobalEventBus_EveryDay(t *testing.T) {
	b := NewGlobalEventBus()
	count := 0
	b.Add(&GlobalEvent{Name: "tick", Day: EveryDay, Fn: func(m *Model) { count++ }})

	for day := 0; day < 7; day++ {
		b.Run(day, &Model{Day: day})
	}
	if count != 7 {
		t.Errorf(UnequalIntParameterError, "every-day event fire count", 7, count)
	}
}

func TestGlobalEventBus_Remove(t *testing.T) {
	b := NewGlobalEventBus()
	fired := false
	b.Add(&GlobalEvent{Name: "once", Day: EveryDay, Fn: func(m *Model) { fired = true }})
	b.Remove("once")
	b.Run(0, &Model{})
	if fired {
		t.Error("expected a removed event to never fire")
	}
}

func TestGlobalEvent_ParamMutation(t *testing.T) {
	m := NewModel("param-mutation", 1, nil)
	idx, err := m.AddParam("Transmission rate", 0.1)
	if err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "registering parameter", err)
	}
	m.GlobalEvents.Add(&GlobalEvent{
		Name: "lockdown",
		Day:  3,
		Fn:   func(model *Model) { model.SetParam(idx, 0.01) },
	})

	for day := 0; day < 5; day++ {
		m.GlobalEvents.Run(day, m)
	}
	if got := m.ParamValue(idx); got != 0.01 {
		t.Errorf(UnequalFloatParameterError, "transmission rate after scheduled mutation", 0.01, got)
	}
}
