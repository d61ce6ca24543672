package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDictionaryJSON(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)

	dict.AddConstant("TEST_CONST", uint32(42))
	dict.AddConstant("TEST_STR", "hello")
	dict.AddEnumeration("spi_bus", []string{"external", "internal"})
	reg.Register("identify_response", "offset=%u data=%*s", nil)
	reg.Register("test_cmd", "arg=%u", func(data *[]byte) error { return nil })

	output := dict.Generate()
	t.Logf("Generated dictionary: %s", output)

	var parsed struct {
		Version      string                    `json:"version"`
		Config       map[string]string         `json:"config"`
		Commands     map[string]int            `json:"commands"`
		Responses    map[string]int            `json:"responses"`
		Enumerations map[string]map[string]int `json:"enumerations"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		t.Fatalf("Dictionary is not valid JSON: %v", err)
	}
	if parsed.Version != "probeplat-0.1.0" {
		t.Errorf("version = %q", parsed.Version)
	}
	if parsed.Config["TEST_CONST"] != "42" || parsed.Config["TEST_STR"] != "hello" {
		t.Errorf("config = %v", parsed.Config)
	}
	if parsed.Commands["test_cmd arg=%u"] != 1 {
		t.Errorf("commands = %v", parsed.Commands)
	}
	if id, ok := parsed.Responses["identify_response offset=%u data=%*s"]; !ok || id != 0 {
		t.Errorf("responses = %v", parsed.Responses)
	}
	if parsed.Enumerations["spi_bus"]["internal"] != 1 {
		t.Errorf("enumerations = %v", parsed.Enumerations)
	}
}

func TestDictionaryRebuildsAfterChange(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.BuildDictionary()
	before := string(dict.Generate())

	dict.AddConstant("HW_VERSION", uint8(2))
	after := string(dict.Generate())
	if before == after || !strings.Contains(after, `"HW_VERSION":"2"`) {
		t.Errorf("Constant not picked up: %s", after)
	}
}

func TestDictionaryEscapesStrings(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("BOARD", `probe "rev b"`)
	var parsed struct {
		Config map[string]string `json:"config"`
	}
	if err := json.Unmarshal(dict.Generate(), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Config["BOARD"] != `probe "rev b"` {
		t.Errorf("BOARD = %q", parsed.Config["BOARD"])
	}
}

func TestDictionaryChunks(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("TEST", uint32(123))
	full := dict.Generate()

	chunk := dict.GetChunk(0, 10)
	if string(chunk) != string(full[:10]) {
		t.Errorf("First chunk = %q", chunk)
	}
	tail := dict.GetChunk(uint32(len(full)-3), 10)
	if len(tail) != 3 {
		t.Errorf("Tail chunk has %d bytes", len(tail))
	}
	if n := len(dict.GetChunk(uint32(len(full)), 10)); n != 0 {
		t.Errorf("Chunk at end has %d bytes", n)
	}
	if n := len(dict.GetChunk(uint32(len(full)+100), 10)); n != 0 {
		t.Errorf("Chunk past end has %d bytes", n)
	}
}
