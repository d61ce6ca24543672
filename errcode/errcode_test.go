package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", Timeout, Timeout},
		{"wrapper", New(Configuration, "spi_select", "device 9"), Configuration},
		{"fmt wrapped", fmt.Errorf("ramp: %w", New(Timeout, "set_power", "")), Timeout},
		{"foreign", errors.New("boom"), Error},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Of(tc.err); got != tc.want {
				t.Errorf("Of(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorsIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("power: %w", Wrap(Timeout, "set_power", errors.New("no update flag")))
	if !errors.Is(err, Timeout) {
		t.Errorf("errors.Is(%v, Timeout) = false", err)
	}
	if errors.Is(err, InvalidArgument) {
		t.Errorf("errors.Is(%v, InvalidArgument) = true", err)
	}
}

func TestErrorString(t *testing.T) {
	e := New(InvalidArgument, "spi_init", "bus 7")
	if got, want := e.Error(), "spi_init: invalid_argument: bus 7"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
