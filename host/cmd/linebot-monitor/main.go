package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"linebot/host/monitor"
)

var (
	device   = flag.String("device", "/dev/ttyACM0", "Serial device path")
	interval = flag.Duration("poll", 0, "Query status at this interval (0 = rely on periodic reports)")
	debug    = flag.Bool("debug", false, "Enable robot debug output")
)

func main() {
	flag.Parse()

	m := monitor.New(64)
	log.Printf("connecting to %s", *device)
	if err := m.Connect(*device); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer m.Close()

	if err := m.RetrieveDictionary(); err != nil {
		log.Fatalf("dictionary: %v", err)
	}
	log.Printf("dictionary: %d messages", len(m.Dictionary().Names))

	if *debug {
		if err := m.SetDebug(true); err != nil {
			log.Printf("set_debug: %v", err)
		}
	}

	go printEvents(m)
	if *interval > 0 {
		go poll(m, *interval)
	}

	fmt.Println("Commands: status, debug on|off, dict, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "quit", "exit", "q":
			return

		case "status", "s":
			if err := m.QueryStatus(); err != nil {
				log.Printf("query_status: %v", err)
			}

		case "debug":
			on := len(parts) > 1 && parts[1] == "on"
			if err := m.SetDebug(on); err != nil {
				log.Printf("set_debug: %v", err)
			}

		case "dict":
			fmt.Print(m.DictionaryText())

		default:
			fmt.Printf("Unknown command: %s\n", parts[0])
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("stdin: %v", err)
	}
}

func printEvents(m *monitor.Monitor) {
	for {
		select {
		case ev := <-m.Events():
			fmt.Println(ev)
		case err := <-m.Errors():
			log.Printf("decode: %v", err)
		}
	}
}

func poll(m *monitor.Monitor, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for range t.C {
		if err := m.QueryStatus(); err != nil {
			log.Printf("query_status: %v", err)
		}
	}
}
