package epiworld

import (
	"sort"
	"strings"
)

// TransmissionRecord is one row of the transmission artifact: who infected
// whom, with which virus, and on which day the source itself was exposed.
type TransmissionRecord struct {
	Day               int
	Source            int
	Target            int
	VirusID           int
	SourceExposureDay int
}

// transitionKey identifies a (from,to) state pair within a single day.
type transitionKey struct{ From, To int }

// Database accumulates every per-day statistic: state counts, transitions,
// transmissions, reproductive numbers, generation intervals, outbreak sizes
// and hospitalisations. It is intentionally a plain accumulator with no
// persistence logic of its own; CSV and SQLite emission live in
// database_csv.go / database_sqlite.go.
type Database struct {
	nStates int

	// numViruses/numTools are the model's registered component counts, set
	// via Configure once at Build() time. RecordDay uses them to pre-seed a
	// zero-count row for every component on every day, so a virus that goes
	// extinct still has an entry instead of silently dropping out of
	// virus_hist.
	numViruses int
	numTools   int

	totalHist map[int][]int         // day -> state -> count
	virusHist map[int]map[int][]int // day -> virusID -> state -> count
	toolHist  map[int]map[int][]int // day -> toolID -> state -> count

	transitions map[int]map[transitionKey]int // day -> (from,to) -> count

	transmissions []TransmissionRecord

	everInfected map[int]map[int]bool // virusID -> set of agent ids ever carrying it
	outbreakSize map[int]map[int]int  // virusID -> day -> cumulative distinct count

	secondaryCases map[int]int // source agent id -> count of transmissions it caused

	hospitalizations map[int]map[int]int // day -> virusID -> count of transitions into a hospitalised state

	hospitalizedStates map[int]bool
}

// NewDatabase allocates an empty database for a model with nStates states,
// flagging any state whose label contains "ospitalized" (case-sensitive
// substring, so both "Hospitalized" and "hospitalized" match) as
// contributing to the hospitalisations artifact.
func NewDatabase(stateLabels []string) *Database {
	d := &Database{
		nStates:            len(stateLabels),
		totalHist:          make(map[int][]int),
		virusHist:          make(map[int]map[int][]int),
		toolHist:           make(map[int]map[int][]int),
		transitions:        make(map[int]map[transitionKey]int),
		everInfected:       make(map[int]map[int]bool),
		outbreakSize:       make(map[int]map[int]int),
		secondaryCases:     make(map[int]int),
		hospitalizations:   make(map[int]map[int]int),
		hospitalizedStates: make(map[int]bool),
	}
	for i, label := range stateLabels {
		if strings.Contains(label, "ospitalized") {
			d.hospitalizedStates[i] = true
		}
	}
	return d
}

// Configure records how many viruses and tools the owning model has
// registered. Must be called once after NewDatabase (Model.Build() does
// this) so RecordDay can seed every registered component's zero-count row on
// every day, not only days on which it still has a carrier.
func (d *Database) Configure(numViruses, numTools int) {
	d.numViruses = numViruses
	d.numTools = numTools
}

// RecordDay tallies the current state of every agent, and of every active
// virus/tool instance, into the per-day histories. Called once per day after
// the event bus is flushed.
func (d *Database) RecordDay(day int, agents []*Agent) {
	total := make([]int, d.nStates)
	vHist := make(map[int][]int, d.numViruses)
	tHist := make(map[int][]int, d.numTools)
	for vID := 0; vID < d.numViruses; vID++ {
		vHist[vID] = make([]int, d.nStates)
	}
	for tID := 0; tID < d.numTools; tID++ {
		tHist[tID] = make([]int, d.nStates)
	}

	for _, a := range agents {
		total[a.State]++

		if a.Virus != nil {
			vID := a.Virus.Virus.ID
			if vHist[vID] == nil {
				vHist[vID] = make([]int, d.nStates)
			}
			vHist[vID][a.State]++

			if d.everInfected[vID] == nil {
				d.everInfected[vID] = make(map[int]bool)
			}
			d.everInfected[vID][a.ID] = true
		}
		for _, ti := range a.Tools {
			tID := ti.Tool.ID
			if tHist[tID] == nil {
				tHist[tID] = make([]int, d.nStates)
			}
			tHist[tID][a.State]++
		}
	}

	d.totalHist[day] = total
	d.virusHist[day] = vHist
	d.toolHist[day] = tHist

	// Union registered virus ids with any seen only via RecordTransmission
	// (e.g. a database used standalone, without Configure), so outbreak size
	// is always seeded for every virus known by either source.
	seen := make(map[int]bool, d.numViruses+len(d.everInfected))
	for vID := 0; vID < d.numViruses; vID++ {
		seen[vID] = true
	}
	for vID := range d.everInfected {
		seen[vID] = true
	}
	for vID := range seen {
		if d.outbreakSize[vID] == nil {
			d.outbreakSize[vID] = make(map[int]int)
		}
		d.outbreakSize[vID][day] = len(d.everInfected[vID])
	}
}

// RecordTransition increments the (from,to) counter for the given day, and
// the per-virus hospitalisation counter if to is a hospitalised state.
// virusID is the virus the transitioning agent carries (-1 if none), so
// hospitalizations can be reported per (date, virus_id).
func (d *Database) RecordTransition(day, from, to, virusID int) {
	if d.transitions[day] == nil {
		d.transitions[day] = make(map[transitionKey]int)
	}
	d.transitions[day][transitionKey{from, to}]++
	if d.hospitalizedStates[to] {
		if d.hospitalizations[day] == nil {
			d.hospitalizations[day] = make(map[int]int)
		}
		d.hospitalizations[day][virusID]++
	}
}

// RecordTransmission appends a transmission row and updates the secondary
// case counter used by ReproductiveNumbers, and marks target as ever
// infected by virusID so OutbreakSize reflects cumulative infections even on
// a day where the target has already recovered or died. sourceExposureDay ==
// day for a day-0 seed infection (source == -1 is recorded as its own seed
// row with no secondary-case attribution).
func (d *Database) RecordTransmission(day, source, target, virusID, sourceExposureDay int) {
	d.transmissions = append(d.transmissions, TransmissionRecord{
		Day: day, Source: source, Target: target, VirusID: virusID, SourceExposureDay: sourceExposureDay,
	})
	if source >= 0 {
		d.secondaryCases[source]++
	}
	if d.everInfected[virusID] == nil {
		d.everInfected[virusID] = make(map[int]bool)
	}
	d.everInfected[virusID][target] = true
}

// TotalHistory returns the day->per-state-count total history.
func (d *Database) TotalHistory() map[int][]int { return d.totalHist }

// VirusHistory returns the day->virusID->per-state-count history.
func (d *Database) VirusHistory() map[int]map[int][]int { return d.virusHist }

// ToolHistory returns the day->toolID->per-state-count history.
func (d *Database) ToolHistory() map[int]map[int][]int { return d.toolHist }

// Transitions returns, for a given day, the database's own from->to count
// map (not a copy; nil if nothing was recorded that day).
func (d *Database) Transitions(day int) map[transitionKey]int { return d.transitions[day] }

// Transmissions returns every recorded transmission row.
func (d *Database) Transmissions() []TransmissionRecord { return d.transmissions }

// OutbreakSize returns the cumulative distinct-ever-infected count for virus
// vID as of day.
func (d *Database) OutbreakSize(vID, day int) int {
	if m, ok := d.outbreakSize[vID]; ok {
		return m[day]
	}
	return 0
}

// ActiveCases returns the number of agents currently carrying virus vID on
// day (the sum across states of virusHist[day][vID]).
func (d *Database) ActiveCases(vID, day int) int {
	hist, ok := d.virusHist[day]
	if !ok {
		return 0
	}
	counts, ok := hist[vID]
	if !ok {
		return 0
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return sum
}

// ReproductiveNumbers returns one row per agent that ever caused a
// transmission: (sourceExposureDay, source, virusID, secondaryCases). Since
// an agent carries at most one virus, sourceExposureDay/virusID are read
// back from the first transmission row that names that source. Rows are
// ordered by (sourceExposureDay, source) so dumps are reproducible.
func (d *Database) ReproductiveNumbers() [][4]int {
	firstSeen := make(map[int][2]int) // source -> (exposureDay, virusID)
	for _, t := range d.transmissions {
		if t.Source < 0 {
			continue
		}
		if _, ok := firstSeen[t.Source]; !ok {
			firstSeen[t.Source] = [2]int{t.SourceExposureDay, t.VirusID}
		}
	}
	out := make([][4]int, 0, len(d.secondaryCases))
	for source, n := range d.secondaryCases {
		info := firstSeen[source]
		out = append(out, [4]int{info[0], source, info[1], n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// GenerationIntervals returns one row per transmission: (source, virusID,
// transmissionDay, generationInterval) where generationInterval is
// day - sourceExposureDay.
func (d *Database) GenerationIntervals() [][4]int {
	out := make([][4]int, 0, len(d.transmissions))
	for _, t := range d.transmissions {
		out = append(out, [4]int{t.Source, t.VirusID, t.Day, t.Day - t.SourceExposureDay})
	}
	return out
}

// Hospitalizations returns the total count of transitions into a
// hospitalised state on the given day, summed across every virus.
func (d *Database) Hospitalizations(day int) int {
	sum := 0
	for _, c := range d.hospitalizations[day] {
		sum += c
	}
	return sum
}

// HospitalizationsByVirus returns the count of transitions into a
// hospitalised state on the given day attributed to virusID.
func (d *Database) HospitalizationsByVirus(day, virusID int) int {
	return d.hospitalizations[day][virusID]
}

// Reset clears all accumulated statistics in place, preserving the state
// table/hospitalisation configuration, used between replicates when the
// caller wants a clean Database rather than a freshly constructed one.
func (d *Database) Reset() {
	nStates := d.nStates
	hospitalized := d.hospitalizedStates
	numViruses := d.numViruses
	numTools := d.numTools
	*d = *NewDatabase(nil)
	d.nStates = nStates
	d.hospitalizedStates = hospitalized
	d.numViruses = numViruses
	d.numTools = numTools
}

// Copy deep-copies every accumulated statistic, used by Model.Clone so
// replicate clones start from independent (usually empty) databases.
func (d *Database) Copy() *Database {
	n := &Database{
		nStates:            d.nStates,
		numViruses:         d.numViruses,
		numTools:           d.numTools,
		totalHist:          make(map[int][]int, len(d.totalHist)),
		virusHist:          make(map[int]map[int][]int, len(d.virusHist)),
		toolHist:           make(map[int]map[int][]int, len(d.toolHist)),
		transitions:        make(map[int]map[transitionKey]int, len(d.transitions)),
		everInfected:       make(map[int]map[int]bool, len(d.everInfected)),
		outbreakSize:       make(map[int]map[int]int, len(d.outbreakSize)),
		secondaryCases:     make(map[int]int, len(d.secondaryCases)),
		hospitalizations:   make(map[int]map[int]int, len(d.hospitalizations)),
		hospitalizedStates: make(map[int]bool, len(d.hospitalizedStates)),
	}
	for day, counts := range d.totalHist {
		n.totalHist[day] = append([]int(nil), counts...)
	}
	for day, byVirus := range d.virusHist {
		m := make(map[int][]int, len(byVirus))
		for vID, counts := range byVirus {
			m[vID] = append([]int(nil), counts...)
		}
		n.virusHist[day] = m
	}
	for day, byTool := range d.toolHist {
		m := make(map[int][]int, len(byTool))
		for tID, counts := range byTool {
			m[tID] = append([]int(nil), counts...)
		}
		n.toolHist[day] = m
	}
	for day, counts := range d.transitions {
		m := make(map[transitionKey]int, len(counts))
		for k, v := range counts {
			m[k] = v
		}
		n.transitions[day] = m
	}
	n.transmissions = append([]TransmissionRecord(nil), d.transmissions...)
	for vID, set := range d.everInfected {
		m := make(map[int]bool, len(set))
		for id := range set {
			m[id] = true
		}
		n.everInfected[vID] = m
	}
	for vID, byDay := range d.outbreakSize {
		m := make(map[int]int, len(byDay))
		for day, c := range byDay {
			m[day] = c
		}
		n.outbreakSize[vID] = m
	}
	for id, c := range d.secondaryCases {
		n.secondaryCases[id] = c
	}
	for day, byVirus := range d.hospitalizations {
		m := make(map[int]int, len(byVirus))
		for vID, c := range byVirus {
			m[vID] = c
		}
		n.hospitalizations[day] = m
	}
	for id := range d.hospitalizedStates {
		n.hospitalizedStates[id] = true
	}
	return n
}
