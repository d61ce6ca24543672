package probe

import (
	"testing"

	"probeplat/protocol"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		sig    string
		name   string
		fields []field
		bad    bool
	}{
		{sig: "get_events", name: "get_events"},
		{sig: "spi_xfer bus=%c data=%*s", name: "spi_xfer", fields: []field{{"bus", false}, {"data", true}}},
		{sig: "uptime high=%u clock=%u", name: "uptime", fields: []field{{"high", false}, {"clock", false}}},
		{sig: "bad x=%f", bad: true},
		{sig: "bad x", bad: true},
	}
	for _, tt := range tests {
		m, err := parseFormat(tt.sig, 3)
		if tt.bad {
			if err == nil {
				t.Errorf("parseFormat(%q) accepted", tt.sig)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFormat(%q): %v", tt.sig, err)
			continue
		}
		if m.Name != tt.name || m.ID != 3 || len(m.Fields) != len(tt.fields) {
			t.Errorf("parseFormat(%q) = %+v", tt.sig, m)
			continue
		}
		for i := range tt.fields {
			if m.Fields[i] != tt.fields[i] {
				t.Errorf("parseFormat(%q) field %d = %+v", tt.sig, i, m.Fields[i])
			}
		}
	}
}

func TestFormatEncodeDecode(t *testing.T) {
	m, err := parseFormat("target_voltage raw=%u decivolts=%u text=%*s", 9)
	if err != nil {
		t.Fatal(err)
	}
	out := protocol.NewScratchOutput()
	if err := m.encode(out, []interface{}{uint32(2731), 33, "3.3V"}); err != nil {
		t.Fatal(err)
	}
	r, err := m.decode(out.Result())
	if err != nil {
		t.Fatal(err)
	}
	if r.Uint("raw") != 2731 || r.Uint("decivolts") != 33 || r.String("text") != "3.3V" {
		t.Errorf("decoded %+v", r)
	}
	if got, want := m.describe(r), `target_voltage raw=2731 decivolts=33 text="3.3V"`; got != want {
		t.Errorf("describe = %s, want %s", got, want)
	}
	if _, err := m.decode([]byte{0x05}); err == nil {
		t.Error("truncated payload decoded")
	}
}
