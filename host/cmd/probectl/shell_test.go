package main

import (
	"strings"
	"testing"

	"probeplat/host/probe"
	"probeplat/host/simport"
)

func newSimShell(t *testing.T) (*shell, *strings.Builder) {
	t.Helper()
	port, err := simport.Open(nil, simport.Options{})
	if err != nil {
		t.Fatal(err)
	}
	c := probe.New(port)
	t.Cleanup(func() { c.Close() })
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	out := &strings.Builder{}
	return &shell{c: c, out: out, vbus: port}, out
}

func TestREPLSession(t *testing.T) {
	sh, out := newSimShell(t)
	script := strings.Join([]string{
		"# bring the target up",
		"power on",
		"voltage",
		"spi init external",
		"spi select ext_flash on",
		"spi xfer external 9f0000",
		"spi select ext_flash off",
		`call spi_chip_select 0x81`,
		"vbus 1",
		"events",
		"bogus",
		"quit",
		"power off",
	}, "\n")
	if err := repl(sh, strings.NewReader(script)); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{
		"target power on",
		"target 3.3V (raw 2731)",
		"spi external on",
		"ext_flash select on",
		"9f0000\n",
		"spi_chip_select_state code=129",
		"VBUS_CONNECT",
		`unknown command "bogus"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "target power off") {
		t.Error("commands after quit were run")
	}
}

func TestShellErrors(t *testing.T) {
	sh, _ := newSimShell(t)
	tests := []struct {
		line string
		want string
	}{
		{"power maybe", "want on or off"},
		{"spi init nowhere", "unknown bus"},
		{"spi code 0x89", "configuration"},
		{"spi xfer external zz", "invalid byte"},
		{"reset", "usage"},
	}
	for _, tt := range tests {
		err := sh.exec(strings.Fields(tt.line))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want %q", tt.line, err, tt.want)
		}
	}
}

func TestVbusNeedsSimulator(t *testing.T) {
	sh := &shell{}
	if err := sh.exec([]string{"vbus", "1"}); err == nil {
		t.Error("vbus accepted without a simulator")
	}
}
