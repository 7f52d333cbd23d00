package epiworld

import (
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// OpenSQLiteDB opens (creating if needed) a SQLite database at path with
// WAL journaling and EXCLUSIVE locking, so per-replicate writers don't trip
// over each other.
func OpenSQLiteDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA locking_mode=EXCLUSIVE;`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting pragmas")
	}
	return db, nil
}

// DumpSQLite writes every artifact into one table per artifact per replicate
// (table names suffixed "%03d" with the replicate index) in a single
// database file at path. viruses/tools supply the VirusInfo/ToolInfo tables'
// name and prevalence columns, which live on Model rather than Database.
func (d *Database) DumpSQLite(path string, repIndex int, stateLabels []string, viruses []VirusInfo, tools []ToolInfo) error {
	db, err := OpenSQLiteDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	suffix := fmt.Sprintf("%03d", repIndex)

	schemas := map[string]string{
		"VirusInfo" + suffix:        "(id integer not null primary key, virus_id int, name text, initial_prevalence real)",
		"ToolInfo" + suffix:         "(id integer not null primary key, tool_id int, name text, initial_prevalence real)",
		"TotalHist" + suffix:        "(id integer not null primary key, date int, state text, count int)",
		"VirusHist" + suffix:        "(id integer not null primary key, date int, virus_id int, state text, count int)",
		"ToolHist" + suffix:         "(id integer not null primary key, date int, tool_id int, state text, count int)",
		"Transmission" + suffix:     "(id integer not null primary key, date int, source int, target int, virus_id int, source_exposure_day int)",
		"Transition" + suffix:       "(id integer not null primary key, date int, from_state int, to_state int, count int)",
		"Reproductive" + suffix:     "(id integer not null primary key, source_exposure_day int, source int, virus_id int, secondary_cases int)",
		"Generation" + suffix:       "(id integer not null primary key, source int, virus_id int, transmission_day int, generation_interval int)",
		"ActiveCases" + suffix:      "(id integer not null primary key, date int, virus_id int, count int)",
		"OutbreakSize" + suffix:     "(id integer not null primary key, date int, virus_id int, count int)",
		"Hospitalizations" + suffix: "(id integer not null primary key, date int, virus_id int, count int)",
	}
	for name, cols := range schemas {
		if _, err := db.Exec(fmt.Sprintf("drop table if exists %s; create table %s %s;", name, name, cols)); err != nil {
			return errors.Wrapf(err, "creating table %s", name)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	for _, v := range viruses {
		if _, err := tx.Exec(fmt.Sprintf("insert into %s(virus_id,name,initial_prevalence) values(?,?,?)", "VirusInfo"+suffix), v.ID, v.Name, v.InitialPrevalence); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "inserting virus info row")
		}
	}
	for _, t := range tools {
		if _, err := tx.Exec(fmt.Sprintf("insert into %s(tool_id,name,initial_prevalence) values(?,?,?)", "ToolInfo"+suffix), t.ID, t.Name, t.InitialPrevalence); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "inserting tool info row")
		}
	}

	for _, day := range sortedDays(d.totalHist) {
		for s, c := range d.totalHist[day] {
			if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,state,count) values(?,?,?)", "TotalHist"+suffix), day, stateLabels[s], c); err != nil {
				tx.Rollback()
				return errors.Wrap(err, "inserting total hist row")
			}
		}
		for vID := 0; vID < d.numViruses; vID++ {
			for s, c := range d.virusHist[day][vID] {
				if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,virus_id,state,count) values(?,?,?,?)", "VirusHist"+suffix), day, vID, stateLabels[s], c); err != nil {
					tx.Rollback()
					return errors.Wrap(err, "inserting virus hist row")
				}
			}
		}
		for tID := 0; tID < d.numTools; tID++ {
			for s, c := range d.toolHist[day][tID] {
				if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,tool_id,state,count) values(?,?,?,?)", "ToolHist"+suffix), day, tID, stateLabels[s], c); err != nil {
					tx.Rollback()
					return errors.Wrap(err, "inserting tool hist row")
				}
			}
		}
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
			if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,from_state,to_state,count) values(?,?,?,?)", "Transition"+suffix), day, k.From, k.To, byPair[k]); err != nil {
				tx.Rollback()
				return errors.Wrap(err, "inserting transition row")
			}
		}
		for vID := 0; vID < d.numViruses; vID++ {
			if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,virus_id,count) values(?,?,?)", "ActiveCases"+suffix), day, vID, d.ActiveCases(vID, day)); err != nil {
				tx.Rollback()
				return errors.Wrap(err, "inserting active cases row")
			}
			if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,virus_id,count) values(?,?,?)", "OutbreakSize"+suffix), day, vID, d.OutbreakSize(vID, day)); err != nil {
				tx.Rollback()
				return errors.Wrap(err, "inserting outbreak size row")
			}
			if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,virus_id,count) values(?,?,?)", "Hospitalizations"+suffix), day, vID, d.HospitalizationsByVirus(day, vID)); err != nil {
				tx.Rollback()
				return errors.Wrap(err, "inserting hospitalizations row")
			}
		}
	}
	for _, t := range d.transmissions {
		if _, err := tx.Exec(fmt.Sprintf("insert into %s(date,source,target,virus_id,source_exposure_day) values(?,?,?,?,?)", "Transmission"+suffix),
			t.Day, t.Source, t.Target, t.VirusID, t.SourceExposureDay); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "inserting transmission row")
		}
	}
	for _, row := range d.ReproductiveNumbers() {
		if _, err := tx.Exec(fmt.Sprintf("insert into %s(source_exposure_day,source,virus_id,secondary_cases) values(?,?,?,?)", "Reproductive"+suffix),
			row[0], row[1], row[2], row[3]); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "inserting reproductive row")
		}
	}
	for _, row := range d.GenerationIntervals() {
		if _, err := tx.Exec(fmt.Sprintf("insert into %s(source,virus_id,transmission_day,generation_interval) values(?,?,?,?)", "Generation"+suffix),
			row[0], row[1], row[2], row[3]); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "inserting generation row")
		}
	}

	return tx.Commit()
}
