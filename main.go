// Command ikbd emulates the Atari ST's intelligent keyboard controller
// (an HD6301 behind a serial link) from the host's point of view.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	log.SetPrefix("ikbd: ")
	log.SetFlags(0)

	var (
		cliFlag    = flag.Bool("cli", false, "disable the monitor UI, log controller output to stderr")
		scriptFlag = flag.String("script", "", "feed command bytes from hex `file`, re-running it on change")
		ttyFlag    = flag.String("tty", "", "bridge the controller to serial `device`")
		baudFlag   = flag.Uint("baud", 7812, "serial line rate for -tty (the real link runs at 7812.5)")
		traceFlag  = flag.Bool("trace", false, "log every emitted byte")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-script file] [-tty device [-baud rate]]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -cli <-script file | -tty device>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
	}

	if err := run(!*cliFlag, *scriptFlag, *ttyFlag, *baudFlag, *traceFlag); err != nil {
		log.Fatal(err)
	}
}

func run(gui bool, script, tty string, baud uint, trace bool) error {
	r := newRunner()
	if trace {
		r.eng.Logf = log.Printf
	}

	if tty != "" {
		if err := r.bridgeSerial(tty, baud); err != nil {
			return err
		}
	}
	if script != "" {
		go func() {
			if err := watchScript(r, script); err != nil {
				log.Fatalf("script: %v", err)
			}
		}()
	}

	if gui {
		return runMonitor(r)
	}

	if script == "" && tty == "" {
		return errors.New("-cli needs a byte source: -script or -tty")
	}
	r.addSink(func(b byte) { log.Printf("-> %02x", b) })
	r.run()
	return nil
}
