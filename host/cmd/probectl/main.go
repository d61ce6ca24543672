// Command probectl drives the probe's target power, reset, voltage and SPI
// subsystems, either on real hardware or on the in-process simulator.
//
//	probectl -device /dev/ttyACM0 power on
//	probectl -sim            # interactive
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/shlex"

	"probeplat/board"
	"probeplat/host/probe"
	"probeplat/host/serial"
	"probeplat/host/simport"
)

var (
	device    = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud      = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	simulate  = flag.Bool("sim", false, "Run against the in-process simulated probe")
	boardFile = flag.String("board", "", "Board description JSON for -sim (default: built-in)")
	verbose   = flag.Bool("verbose", false, "Print firmware debug output (-sim only)")
)

func main() {
	flag.Parse()

	sh, closeFn, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	if flag.NArg() > 0 {
		if err := sh.exec(flag.Args()); err != nil && !errors.Is(err, errQuit) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			closeFn()
			os.Exit(1)
		}
		return
	}
	if err := repl(sh, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

func connect() (*shell, func(), error) {
	sh := &shell{out: os.Stdout}
	if !*simulate {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		c, err := probe.Dial(cfg)
		if err != nil {
			return nil, nil, err
		}
		sh.c = c
		return sh, func() { c.Close() }, nil
	}

	var cfg *board.Config
	if *boardFile != "" {
		var err error
		if cfg, err = board.LoadFile(*boardFile); err != nil {
			return nil, nil, fmt.Errorf("board %s: %w", *boardFile, err)
		}
	}
	opts := simport.Options{}
	if *verbose {
		opts.Log = os.Stderr
	}
	port, err := simport.Open(cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	c := probe.New(port)
	if err := c.Connect(); err != nil {
		c.Close()
		return nil, nil, err
	}
	sh.c, sh.vbus = c, port
	return sh, func() { c.Close() }, nil
}

// repl reads commands until EOF or quit. Errors from a command are printed
// and the loop continues.
func repl(sh *shell, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
			continue
		}
		if err := sh.exec(args); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(sh.out, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}
