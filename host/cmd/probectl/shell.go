package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"probeplat/board"
	"probeplat/core"
	"probeplat/host/probe"
)

var errQuit = errors.New("quit")

// vbusSetter is implemented by the simulated port.
type vbusSetter interface {
	SetVbus(level bool) error
}

// shell runs probectl commands against one client.
type shell struct {
	c    *probe.Client
	out  io.Writer
	vbus vbusSetter
}

type shellCmd struct {
	usage string
	run   func(s *shell, args []string) error
}

var shellCmds map[string]shellCmd

func init() {
	shellCmds = map[string]shellCmd{
		"help":    {"help", (*shell).help},
		"quit":    {"quit", func(*shell, []string) error { return errQuit }},
		"dict":    {"dict", (*shell).dict},
		"power":   {"power [on|off]", (*shell).power},
		"reset":   {"reset assert|release", (*shell).reset},
		"sense":   {"sense", (*shell).sense},
		"voltage": {"voltage", (*shell).voltage},
		"spi":     {"spi init|deinit BUS | select DEVICE on|off | code N | xfer BUS HEX", (*shell).spi},
		"vbus":    {"vbus 0|1 (simulator only)", (*shell).setVbus},
		"events":  {"events", (*shell).events},
		"status":  {"status", (*shell).status},
		"estop":   {"estop", (*shell).estop},
		"reboot":  {"reboot", (*shell).reboot},
		"call":    {"call NAME [ARG...]", (*shell).call},
	}
}

// exec runs one tokenized command line.
func (s *shell) exec(args []string) error {
	if len(args) == 0 {
		return nil
	}
	name := args[0]
	switch name {
	case "exit", "q":
		name = "quit"
	case "?":
		name = "help"
	}
	cmd, ok := shellCmds[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", args[0])
	}
	return cmd.run(s, args[1:])
}

func (s *shell) help([]string) error {
	names := make([]string, 0, len(shellCmds))
	for n := range shellCmds {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(s.out, "  %s\n", shellCmds[n].usage)
	}
	return nil
}

func (s *shell) dict([]string) error {
	d := s.c.Dictionary()
	fmt.Fprintf(s.out, "version %s (%s)\n", d.Version, d.BuildVersions)
	keys := make([]string, 0, len(d.Config))
	for k := range d.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(s.out, "  %s = %s\n", k, d.Config[k])
	}
	fmt.Fprintf(s.out, "%d commands, %d responses\n", len(d.Commands), len(d.Responses))
	return nil
}

func parseOnOff(arg string) (bool, error) {
	switch arg {
	case "on", "1", "assert", "true":
		return true, nil
	case "off", "0", "release", "false":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", arg)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (s *shell) power(args []string) error {
	var on bool
	var err error
	switch len(args) {
	case 0:
		on, err = s.c.Power()
	case 1:
		if on, err = parseOnOff(args[0]); err != nil {
			return err
		}
		on, err = s.c.SetPower(on)
	default:
		return errors.New("usage: power [on|off]")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "target power %s\n", onOff(on))
	return nil
}

func (s *shell) reset(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reset assert|release")
	}
	assert, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	sense, err := s.c.AssertReset(assert)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "nRST sense %d\n", boolDigit(sense))
	return nil
}

func (s *shell) sense([]string) error {
	sense, err := s.c.ResetSense()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "nRST sense %d\n", boolDigit(sense))
	return nil
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *shell) voltage([]string) error {
	v, err := s.c.Voltage()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "target %s (raw %d)\n", v.Text, v.Raw)
	return nil
}

func parseBus(arg string) (board.BusID, error) {
	if n, err := strconv.ParseUint(arg, 0, 8); err == nil {
		return board.BusID(n), nil
	}
	var bus board.BusID
	if err := bus.UnmarshalText([]byte(arg)); err != nil {
		return 0, err
	}
	return bus, nil
}

func (s *shell) spi(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: " + shellCmds["spi"].usage)
	}
	switch args[0] {
	case "init", "deinit":
		bus, err := parseBus(args[1])
		if err != nil {
			return err
		}
		var on bool
		if args[0] == "init" {
			on, err = s.c.SPIInit(bus)
		} else {
			on, err = s.c.SPIDeinit(bus)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "spi %s %s\n", bus, onOff(on))
	case "select":
		if len(args) != 3 {
			return errors.New("usage: spi select DEVICE on|off")
		}
		var dev board.DeviceID
		if err := dev.UnmarshalText([]byte(args[1])); err != nil {
			return err
		}
		assert, err := parseOnOff(args[2])
		if err != nil {
			return err
		}
		if err := s.c.ChipSelect(dev, assert); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s select %s\n", dev, onOff(assert))
	case "code":
		n, err := strconv.ParseUint(args[1], 0, 8)
		if err != nil {
			return err
		}
		if err := s.c.SelectCode(uint8(n)); err != nil {
			return err
		}
		cs := core.DecodeChipSelect(uint8(n))
		fmt.Fprintf(s.out, "%s select %s\n", cs.Device, onOff(cs.Assert))
	case "xfer":
		if len(args) != 3 {
			return errors.New("usage: spi xfer BUS HEX")
		}
		bus, err := parseBus(args[1])
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(strings.TrimPrefix(args[2], "0x"))
		if err != nil {
			return err
		}
		in, err := s.c.Transfer(bus, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%x\n", in)
	default:
		return fmt.Errorf("unknown spi subcommand %q", args[0])
	}
	return nil
}

func (s *shell) setVbus(args []string) error {
	if s.vbus == nil {
		return errors.New("vbus needs the simulator (-sim)")
	}
	if len(args) != 1 {
		return errors.New("usage: vbus 0|1")
	}
	level, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return s.vbus.SetVbus(level)
}

func (s *shell) events([]string) error {
	events, err := s.c.Events()
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(s.out, "%10d %-16s %d %d\n", e.Clock, core.EventName(e.Type), e.Value1, e.Value2)
	}
	return nil
}

func (s *shell) status([]string) error {
	up, err := s.c.Uptime()
	if err != nil {
		return err
	}
	cfg, err := s.c.Config()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "uptime %d ticks, hw %d, shutdown %v\n", up, cfg.HWVersion, cfg.Shutdown)
	return nil
}

func (s *shell) estop([]string) error {
	if err := s.c.EmergencyStop(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "shutdown")
	return nil
}

func (s *shell) reboot([]string) error {
	return s.c.Reset()
}

// call sends any dictionary command. Numeric arguments are integers, the
// rest are sent as bytes.
func (s *shell) call(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: call NAME [ARG...]")
	}
	vals := make([]interface{}, 0, len(args)-1)
	for _, a := range args[1:] {
		if n, err := strconv.ParseUint(a, 0, 32); err == nil {
			vals = append(vals, uint32(n))
		} else {
			vals = append(vals, a)
		}
	}
	resps, err := s.c.Call(args[0], vals...)
	for _, r := range resps {
		fmt.Fprintln(s.out, s.c.Describe(r))
	}
	return err
}
