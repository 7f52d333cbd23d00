package main

import (
	"flag"
	"log"
	"runtime"
	"time"

	"github.com/kentwait/epiworld"
)

func main() {
	numCPUPtr := flag.Int("threads", runtime.NumCPU(), "number of CPU threads")
	loggerType := flag.String("logger", "csv", "data logger type (csv|sqlite)")
	outPath := flag.String("out", "run", "output basepath for the chosen logger")
	seedNum := flag.Int64("seed", time.Now().UTC().UnixNano(), "random seed. Uses Unix time in nanoseconds as default")
	flag.Parse()

	runtime.GOMAXPROCS(*numCPUPtr)

	configPath := flag.Arg(0)
	if configPath == "" {
		log.Fatal("usage: epiworld [flags] <config.toml>")
	}

	conf, err := epiworld.LoadModelConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if conf.Seed == 0 {
		conf.Seed = *seedNum
	}
	if conf.Threads == 0 {
		conf.Threads = *numCPUPtr
	}

	model, err := epiworld.NewModelFromConfig(conf)
	if err != nil {
		log.Fatalf("error building model from configuration: %s", err)
	}

	stateLabels := make([]string, len(model.States))
	for i, s := range model.States {
		stateLabels[i] = s.Label
	}

	var saver func(repIndex int, m *epiworld.Model)
	switch *loggerType {
	case "csv":
		saver = func(repIndex int, m *epiworld.Model) {
			if err := m.DB.DumpCSV(*outPath, repIndex, stateLabels, m.VirusInfos(), m.ToolInfos()); err != nil {
				log.Printf("replicate %d: csv dump failed: %s", repIndex, err)
			}
		}
	case "sqlite":
		saver = func(repIndex int, m *epiworld.Model) {
			if err := m.DB.DumpSQLite(*outPath+".db", repIndex, stateLabels, m.VirusInfos(), m.ToolInfos()); err != nil {
				log.Printf("replicate %d: sqlite dump failed: %s", repIndex, err)
			}
		}
	default:
		log.Fatalf("%s is not a valid logger type (csv|sqlite)", *loggerType)
	}

	firstStart := time.Now()
	nreps := conf.NReps
	if nreps <= 0 {
		nreps = 1
	}
	err = model.RunMultiple(conf.NDays, nreps, conf.Seed, saver, true, true, conf.Threads)
	if err != nil {
		log.Fatalf("error running simulation: %s", err)
	}
	log.Printf("completed %d replicate(s) in %s.", nreps, time.Since(firstStart))
}
