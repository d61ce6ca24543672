package core

import (
	"testing"

	"probeplat/protocol"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	id := registry.Register("test_command", "arg=%u", func(data *[]byte) error {
		called = true
		return nil
	})
	if id != 0 {
		t.Errorf("Expected first command to have ID 0, got %d", id)
	}

	cmd, ok := registry.GetCommand(id)
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Signature() != "test_command arg=%u" {
		t.Errorf("Unexpected signature %q", cmd.Signature())
	}

	var data []byte
	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("Command handler was not called")
	}

	if err := registry.Dispatch(999, &data); err == nil {
		t.Error("Expected error for unknown command ID")
	}
}

func TestCommandRegistrySequentialIDs(t *testing.T) {
	registry := NewCommandRegistry()

	id1 := registry.Register("command1", "arg1=%u", func(data *[]byte) error { return nil })
	id2 := registry.Register("command2", "", nil)
	id3 := registry.Register("command3", "arg3=%u", func(data *[]byte) error { return nil })
	again := registry.Register("command1", "other=%c", nil)

	if id1 != 0 || id2 != 1 || id3 != 2 {
		t.Errorf("Command IDs not sequential: %d, %d, %d", id1, id2, id3)
	}
	if again != id1 || registry.Count() != 3 {
		t.Errorf("Re-registration changed the table: id=%d count=%d", again, registry.Count())
	}
	cmd, _ := registry.GetCommandByName("command1")
	if cmd.Format != "arg1=%u" || cmd.Handler == nil {
		t.Error("Re-registration replaced the first entry")
	}
}

func TestDispatchResponseFails(t *testing.T) {
	registry := NewCommandRegistry()
	id := registry.Register("some_state", "value=%u", nil)
	var data []byte
	if err := registry.Dispatch(id, &data); err == nil {
		t.Error("Dispatching a response should fail")
	}
}

func TestCommandsAndResponsesSplit(t *testing.T) {
	registry := NewCommandRegistry()
	registry.Register("identify_response", "offset=%u data=%*s", nil)
	registry.Register("identify", "offset=%u count=%c", func(data *[]byte) error { return nil })
	registry.Register("get_clock", "", func(data *[]byte) error { return nil })

	commands, responses := registry.GetCommandsAndResponses()
	if commands["identify offset=%u count=%c"] != 1 || commands["get_clock"] != 2 {
		t.Errorf("Unexpected commands %v", commands)
	}
	if id, ok := responses["identify_response offset=%u data=%*s"]; !ok || id != 0 {
		t.Errorf("Unexpected responses %v", responses)
	}
}

func TestCommandWithArguments(t *testing.T) {
	registry := NewCommandRegistry()

	var bus, n uint32
	id := registry.Register("test_args", "bus=%c value=%u", func(data *[]byte) error {
		var err error
		if bus, err = protocol.DecodeVLQUint(data); err != nil {
			return err
		}
		n, err = protocol.DecodeVLQUint(data)
		return err
	})

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 1)
	protocol.EncodeVLQUint(output, 12345)
	data := output.Result()

	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if bus != 1 || n != 12345 {
		t.Errorf("Expected 1/12345, got %d/%d", bus, n)
	}
	if len(data) != 0 {
		t.Errorf("Handler left %d bytes", len(data))
	}
}
