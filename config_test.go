package epiworld

import "testing"

func TestModelConfig_Validate_RejectsEmptyStates(t *testing.T) {
	c := &ModelConfig{Population: PopulationConfig{Type: "empty", N: 10}, NDays: 5, Viruses: []VirusConfig{{Name: "v"}}}
	if err := c.Validate(); err == nil {
		t.Errorf(ExpectedErrorWhileError, "validating a config with no states")
	}
}

func TestModelConfig_Validate_RejectsUnknownPopulationType(t *testing.T) {
	c := &ModelConfig{Population: PopulationConfig{Type: "galaxy", N: 10}, States: []string{"Susceptible"}, NDays: 5, Viruses: []VirusConfig{{Name: "v"}}}
	if err := c.Validate(); err == nil {
		t.Error("expected an error for an unrecognized population type")
	}
}

func TestNewModelFromConfig_BuildsRunnableModel(t *testing.T) {
	c := &ModelConfig{
		Name:       "configured-sir",
		Population: PopulationConfig{Type: "small-world", N: 60, K: 4, P: 0.1},
		States:     []string{"Susceptible", "Infected", "Recovered"},
		Params:     map[string]float64{},
		Viruses: []VirusConfig{{
			Name:             "flu",
			Prevalence:       0.1,
			AsProportion:     true,
			TransmissionRate: 0.3,
			RecoveryRate:     0.1,
		}},
		NDays: 15,
		Seed:  11,
	}
	if err := c.Validate(); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "validating config", err)
	}

	m, err := NewModelFromConfig(c)
	if err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "building model from config", err)
	}
	if err := m.Run(c.NDays, c.Seed); err != nil {
		t.Fatalf(UnexpectedErrorWhileError, "running configured model", err)
	}
	if got := totalPopulation(m); got != 60 {
		t.Errorf(UnequalIntParameterError, "population size", 60, got)
	}
}
