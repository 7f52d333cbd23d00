package epiworld

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// PopulationConfig selects one of the three supported population
// constructors.
type PopulationConfig struct {
	Type        string  `toml:"type"` // "small-world", "adjlist", "empty"
	N           int     `toml:"n"`
	K           int     `toml:"k"`
	P           float64 `toml:"p"`
	Directed    bool    `toml:"directed"`
	AdjListPath string  `toml:"adjlist_path"`
}

// VirusConfig is the on-disk shape of one virus, resolved against the
// model's parameter table at load time (every rate here becomes a
// ParamHook, not a bare constant, so a GlobalEvent can mutate it later).
type VirusConfig struct {
	Name             string  `toml:"name"`
	Prevalence       float64 `toml:"prevalence"`
	AsProportion     bool    `toml:"as_proportion"`
	TransmissionRate float64 `toml:"transmission_rate"`
	RecoveryRate     float64 `toml:"recovery_rate"`
	DeathRate        float64 `toml:"death_rate"`
	PostImmunity     float64 `toml:"post_immunity"`
}

// ToolConfig is the on-disk shape of one tool.
type ToolConfig struct {
	Name                    string  `toml:"name"`
	Prevalence              float64 `toml:"prevalence"`
	AsProportion            bool    `toml:"as_proportion"`
	SusceptibilityReduction float64 `toml:"susceptibility_reduction"`
	TransmissionReduction   float64 `toml:"transmission_reduction"`
	RecoveryEnhancer        float64 `toml:"recovery_enhancer"`
	DeathReduction          float64 `toml:"death_reduction"`
}

// ModelConfig is the TOML-decoded shape of a complete run.
type ModelConfig struct {
	Name       string           `toml:"name"`
	Population PopulationConfig `toml:"population"`
	States     []string         `toml:"states"`
	Params     map[string]float64 `toml:"params"`
	Viruses    []VirusConfig    `toml:"virus"`
	Tools      []ToolConfig     `toml:"tool"`

	NDays      int   `toml:"ndays"`
	NReps      int   `toml:"nreps"`
	Seed       int64 `toml:"seed"`
	Threads    int   `toml:"threads"`
	QueuingOff bool  `toml:"queuing_off"`

	ContactRate float64 `toml:"contact_rate"` // only used by group-mixing kernel

	validated bool
}

// LoadModelConfig decodes a TOML file into a ModelConfig and validates it.
func LoadModelConfig(path string) (*ModelConfig, error) {
	c := new(ModelConfig)
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Wrapf(err, "decoding config %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the configuration names a supported population type
// and carries at least one state and virus.
func (c *ModelConfig) Validate() error {
	switch strings.ToLower(c.Population.Type) {
	case "small-world", "adjlist", "empty":
	default:
		return newError(InvalidArgument, "unrecognized population.type %q", c.Population.Type)
	}
	if len(c.States) == 0 {
		return newError(InvalidArgument, "config declares no states")
	}
	if len(c.Viruses) == 0 {
		return newError(InvalidArgument, "config declares no viruses")
	}
	if c.NDays <= 0 {
		return newError(InvalidArgument, "ndays must be positive, got %d", c.NDays)
	}
	c.validated = true
	return nil
}

// buildPopulationGraph realizes the population.type selection into an
// AdjList.
func (c *ModelConfig) buildPopulationGraph(rng *RNGEngine) (*AdjList, error) {
	switch strings.ToLower(c.Population.Type) {
	case "small-world":
		return WattsStrogatz(c.Population.N, c.Population.K, c.Population.P, c.Population.Directed, rng), nil
	case "empty":
		return EmptyAdjList(c.Population.N, c.Population.Directed), nil
	case "adjlist":
		pairs, n, err := LoadEdgeList(c.Population.AdjListPath)
		if err != nil {
			return nil, err
		}
		return AdjListFromEdgeList(n, pairs, c.Population.Directed), nil
	default:
		return nil, newError(InvalidArgument, "unrecognized population.type %q", c.Population.Type)
	}
}

// stateUpdateFor chooses a default update function by the state's semantic
// role, inferred from its label: a label containing "usceptible" gets the
// transmission-kernel hook, one containing "nfect" gets the two-event
// recovery/death conditional, everything else (Recovered, Dead, ...) is
// terminal and has no update function. Presets that need bespoke behaviour
// register their own states directly instead of going through config.go.
func stateUpdateFor(label string) UpdateFunc {
	switch {
	case strings.Contains(label, "usceptible"):
		return DefaultUpdateSusceptible
	case strings.Contains(label, "nfect"):
		return DefaultUpdateInfectious
	default:
		return nil
	}
}

// NewModelFromConfig builds a fully generic Model from a validated
// ModelConfig: population graph, state table (with inferred update
// functions), parameter table, viruses and tools, all parameter-backed so a
// GlobalEvent can later mutate any rate. Returns a built (Build() already
// called) model ready for Run/RunMultiple.
func NewModelFromConfig(c *ModelConfig) (*Model, error) {
	if !c.validated {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	rng := NewRNG(c.Seed)
	graph, err := c.buildPopulationGraph(rng)
	if err != nil {
		return nil, err
	}

	m := NewModel(c.Name, graph.Size(), graph)
	m.QueuingOff = c.QueuingOff
	m.SetContactRate(c.ContactRate)
	m.NDays = c.NDays

	for _, label := range c.States {
		m.AddState(label, stateUpdateFor(label))
	}

	// Register in sorted-name order so parameter indices are stable across
	// loads of the same config.
	paramNames := make([]string, 0, len(c.Params))
	for name := range c.Params {
		paramNames = append(paramNames, name)
	}
	sort.Strings(paramNames)
	for _, name := range paramNames {
		if _, err := m.AddParam(name, c.Params[name]); err != nil {
			return nil, err
		}
	}

	for _, vc := range c.Viruses {
		v := &Virus{Name: vc.Name, PostImmunity: vc.PostImmunity}
		v.ProbInfecting = paramOrConst(m, vc.Name+" transmission rate", vc.TransmissionRate)
		v.ProbRecovery = paramOrConst(m, vc.Name+" recovery rate", vc.RecoveryRate)
		v.ProbDeath = paramOrConst(m, vc.Name+" death rate", vc.DeathRate)
		v.StateInfected = stateIndexContaining(c.States, "nfect")
		v.StateRecovered = stateIndexContaining(c.States, "ecovered")
		v.StateDead = stateIndexContaining(c.States, "ead")
		m.AddVirus(v, vc.Prevalence, vc.AsProportion)
	}

	for _, tc := range c.Tools {
		t := &Tool{Name: tc.Name}
		t.SusceptibilityReduction = paramOrConst(m, tc.Name+" susceptibility reduction", tc.SusceptibilityReduction)
		t.TransmissionReduction = paramOrConst(m, tc.Name+" transmission reduction", tc.TransmissionReduction)
		t.RecoveryEnhancer = paramOrConst(m, tc.Name+" recovery enhancer", tc.RecoveryEnhancer)
		t.DeathReduction = paramOrConst(m, tc.Name+" death reduction", tc.DeathReduction)
		m.AddTool(t, tc.Prevalence, tc.AsProportion)
	}

	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}

// paramOrConst registers value under name as a model parameter and returns a
// ParamHook bound to it, so every rate loaded from config is mutable via
// SetParam/a GlobalEvent rather than baked in as a constant.
func paramOrConst(m *Model, name string, value float64) Hook {
	idx, err := m.AddParam(name, value)
	if err != nil {
		idx, _ = m.ParamIndex(name)
	}
	return ParamHook(idx)
}

func stateIndexContaining(states []string, substr string) int {
	for i, s := range states {
		if strings.Contains(s, substr) {
			return i
		}
	}
	return len(states) - 1
}
