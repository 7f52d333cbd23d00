package epiworld

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// DumpCSV writes every output artifact as comma-delimited files named
// "<basepath>.<i>.<suffix>.csv". Quoted string fields are used for
// virus/tool/state names. viruses/tools supply the virus_info/tool_info
// name and prevalence columns, which live on Model rather than Database.
func (d *Database) DumpCSV(basepath string, repIndex int, stateLabels []string, viruses []VirusInfo, tools []ToolInfo) error {
	writers := []struct {
		suffix string
		write  func() []byte
	}{
		{"virus_info", d.dumpVirusInfo(viruses)},
		{"tool_info", d.dumpToolInfo(tools)},
		{"virus_hist", d.dumpVirusHist(stateLabels)},
		{"tool_hist", d.dumpToolHist(stateLabels)},
		{"total_hist", d.dumpTotalHist(stateLabels)},
		{"transmission", d.dumpTransmission()},
		{"transition", d.dumpTransition()},
		{"reproductive", d.dumpReproductive()},
		{"generation", d.dumpGeneration()},
		{"active_cases", d.dumpActiveCases()},
		{"outbreak_size", d.dumpOutbreakSize()},
		{"hospitalizations", d.dumpHospitalizations()},
	}
	for _, w := range writers {
		path := fmt.Sprintf("%s.%03d.%s.csv", basepath, repIndex, w.suffix)
		if err := writeFile(path, w.write()); err != nil {
			return errors.Wrapf(err, "writing %s", w.suffix)
		}
	}
	return nil
}

func (d *Database) dumpVirusInfo(viruses []VirusInfo) func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("virus_id,name,initial_prevalence\n")
		for _, v := range viruses {
			fmt.Fprintf(&b, "%d,%q,%g\n", v.ID, v.Name, v.InitialPrevalence)
		}
		return b.Bytes()
	}
}

func (d *Database) dumpToolInfo(tools []ToolInfo) func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("tool_id,name,initial_prevalence\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "%d,%q,%g\n", t.ID, t.Name, t.InitialPrevalence)
		}
		return b.Bytes()
	}
}

// dumpActiveCases emits (date, virus_id, count) for every (day, virus) pair,
// including zero-count rows, mirroring virus_hist's completeness guarantee.
func (d *Database) dumpActiveCases() func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,virus_id,count\n")
		for _, day := range sortedDays(d.totalHist) {
			for vID := 0; vID < d.numViruses; vID++ {
				fmt.Fprintf(&b, "%d,%d,%d\n", day, vID, d.ActiveCases(vID, day))
			}
		}
		return b.Bytes()
	}
}

// dumpOutbreakSize emits (date, virus_id, count) for every (day, virus)
// pair, including zero-count rows.
func (d *Database) dumpOutbreakSize() func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,virus_id,count\n")
		for _, day := range sortedDays(d.totalHist) {
			for vID := 0; vID < d.numViruses; vID++ {
				fmt.Fprintf(&b, "%d,%d,%d\n", day, vID, d.OutbreakSize(vID, day))
			}
		}
		return b.Bytes()
	}
}

// dumpHospitalizations emits (date, virus_id, count) for every (day, virus)
// pair, including zero-count rows.
func (d *Database) dumpHospitalizations() func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,virus_id,count\n")
		for _, day := range sortedDays(d.totalHist) {
			for vID := 0; vID < d.numViruses; vID++ {
				fmt.Fprintf(&b, "%d,%d,%d\n", day, vID, d.HospitalizationsByVirus(day, vID))
			}
		}
		return b.Bytes()
	}
}

func writeFile(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}

func sortedDays(m map[int][]int) []int {
	days := make([]int, 0, len(m))
	for d := range m {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// dumpVirusHist emits (date, virus_id, state, count) for every (day, state)
// pair on every day recorded, not just day 0. Rows are ordered by
// (day, virus_id, state) so repeated dumps of the same replicate are
// byte-identical, never in map-iteration order.
func (d *Database) dumpVirusHist(labels []string) func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,virus_id,state,count\n")
		for _, day := range sortedDays(d.totalHist) {
			byVirus := d.virusHist[day]
			for vID := 0; vID < d.numViruses; vID++ {
				for s, c := range byVirus[vID] {
					fmt.Fprintf(&b, "%d,%d,%q,%d\n", day, vID, labels[s], c)
				}
			}
		}
		return b.Bytes()
	}
}

func (d *Database) dumpToolHist(labels []string) func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,tool_id,state,count\n")
		for _, day := range sortedDays(d.totalHist) {
			byTool := d.toolHist[day]
			for tID := 0; tID < d.numTools; tID++ {
				for s, c := range byTool[tID] {
					fmt.Fprintf(&b, "%d,%d,%q,%d\n", day, tID, labels[s], c)
				}
			}
		}
		return b.Bytes()
	}
}

func (d *Database) dumpTotalHist(labels []string) func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,state,count\n")
		for _, day := range sortedDays(d.totalHist) {
			for s, c := range d.totalHist[day] {
				fmt.Fprintf(&b, "%d,%q,%d\n", day, labels[s], c)
			}
		}
		return b.Bytes()
	}
}

func (d *Database) dumpTransmission() func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,source,target,virus_id,source_exposure_day\n")
		for _, t := range d.transmissions {
			fmt.Fprintf(&b, "%d,%d,%d,%d,%d\n", t.Day, t.Source, t.Target, t.VirusID, t.SourceExposureDay)
		}
		return b.Bytes()
	}
}

func (d *Database) dumpTransition() func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("date,from_state,to_state,count\n")
		for _, day := range sortedDays(d.totalHist) {
			byPair := d.transitions[day]
			keys := make([]transitionKey, 0, len(byPair))
			for k := range byPair {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				if keys[i].From != keys[j].From {
					return keys[i].From < keys[j].From
				}
				return keys[i].To < keys[j].To
			})
			for _, k := range keys {
				fmt.Fprintf(&b, "%d,%d,%d,%d\n", day, k.From, k.To, byPair[k])
			}
		}
		return b.Bytes()
	}
}

func (d *Database) dumpReproductive() func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("source_exposure_day,source,virus_id,secondary_cases\n")
		for _, row := range d.ReproductiveNumbers() {
			fmt.Fprintf(&b, "%d,%d,%d,%d\n", row[0], row[1], row[2], row[3])
		}
		return b.Bytes()
	}
}

func (d *Database) dumpGeneration() func() []byte {
	return func() []byte {
		var b bytes.Buffer
		b.WriteString("source,virus_id,transmission_day,generation_interval\n")
		for _, row := range d.GenerationIntervals() {
			fmt.Fprintf(&b, "%d,%d,%d,%d\n", row[0], row[1], row[2], row[3])
		}
		return b.Bytes()
	}
}
