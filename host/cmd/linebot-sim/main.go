package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"linebot/config"
	"linebot/host/sim"
)

var (
	verbose = flag.Bool("v", false, "Print periodic status reports")
	quiet   = flag.Bool("q", false, "Print only the summary")
	robot   = flag.String("config", "", "JSON robot configuration used instead of each scenario's robot section")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: linebot-sim [-v] [-q] [-config robot.json] scenario.yaml...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg *config.RobotConfig
	if *robot != "" {
		var err error
		if cfg, err = config.LoadConfigFile(*robot); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	failed := 0
	for _, path := range flag.Args() {
		sc, err := sim.Load(path)
		if err != nil {
			log.Fatalf("scenario: %v", err)
		}
		if cfg != nil {
			sc.Robot = cfg
		}

		var out io.Writer = os.Stdout
		if *quiet {
			out = nil
		}
		s, err := sim.New(sc, out, *verbose)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}

		fmt.Printf("== %s (%dms)\n", sc.Name, sc.DurationMS)
		res := s.Run()
		fmt.Printf("end %s at %dms: faults=%v sleeps=%d turn_arounds=%d rounds=%d enc=%d/%d\n",
			res.State, res.EndMS, res.Faults, res.Sleeps, res.TurnArounds, res.Rounds, res.EncoderA, res.EncoderB)

		if err := res.Check(sc.Expect); err != nil {
			fmt.Println("FAIL:", err)
			failed++
		} else if sc.Expect != nil {
			fmt.Println("ok")
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
