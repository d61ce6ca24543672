// Package probe is the host-side client for the probe firmware. It fetches
// the firmware's dictionary and offers a typed call for every command.
package probe

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"probeplat/board"
	"probeplat/core"
	"probeplat/errcode"
	"probeplat/host/serial"
	"probeplat/protocol"
)

// Message ids fixed before the dictionary is known.
const (
	identifyResponseID = 0
	identifyID         = 1
	identifyChunk      = 40
)

// transferChunk keeps spi_xfer and its response inside one block.
const transferChunk = 48

var ErrNoDictionary = errors.New("probe: dictionary not loaded")

// Dictionary is the parsed identify data.
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// PlatformError is a platform_error response: the command reached the
// firmware but the subsystem refused it.
type PlatformError struct {
	Op   string
	Code errcode.Code
}

func (e *PlatformError) Error() string {
	return "probe: " + e.Op + ": " + string(e.Code)
}

// Is matches errcode codes, so errors.Is(err, errcode.Timeout) works.
func (e *PlatformError) Is(target error) bool {
	c, ok := target.(errcode.Code)
	return ok && c == e.Code
}

// Client talks to one probe.
type Client struct {
	port serial.Port
	tr   *protocol.HostTransport

	// Timeout bounds each command's ack.
	Timeout time.Duration

	dict      *Dictionary
	raw       []byte
	commands  map[string]*messageFormat
	responses map[uint16]*messageFormat
}

// New starts a client on an open port. Call Connect before anything else.
func New(port serial.Port) *Client {
	return &Client{
		port:    port,
		tr:      protocol.NewHostTransport(port),
		Timeout: 2 * time.Second,
	}
}

// Dial opens cfg.Device, drops stale input and connects.
func Dial(cfg *serial.Config) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", cfg.Device, err)
	}
	c := New(port)
	if err := c.Connect(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error { return c.tr.Close() }

// Connect fetches and parses the dictionary.
func (c *Client) Connect() error {
	raw, err := c.fetchDictionary()
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	if data, err := inflate(raw); err == nil {
		raw = data
	}
	dict := &Dictionary{}
	if err := json.Unmarshal(raw, dict); err != nil {
		return fmt.Errorf("parse dictionary: %w", err)
	}
	commands := make(map[string]*messageFormat, len(dict.Commands))
	for sig, id := range dict.Commands {
		m, err := parseFormat(sig, id)
		if err != nil {
			return err
		}
		commands[m.Name] = m
	}
	responses := make(map[uint16]*messageFormat, len(dict.Responses))
	for sig, id := range dict.Responses {
		m, err := parseFormat(sig, id)
		if err != nil {
			return err
		}
		responses[m.ID] = m
	}
	c.raw, c.dict, c.commands, c.responses = raw, dict, commands, responses
	return nil
}

func (c *Client) fetchDictionary() ([]byte, error) {
	var buf bytes.Buffer
	for {
		offset := uint32(buf.Len())
		err := c.tr.SendCommandWithTimeout(identifyID, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, offset)
			protocol.EncodeVLQUint(out, identifyChunk)
		}, c.Timeout)
		if err != nil {
			return nil, err
		}
		msg, err := c.tr.ReceiveResponse(c.Timeout)
		if err != nil {
			return nil, err
		}
		p := msg.Payload
		id, err := protocol.DecodeVLQUint(&p)
		if err != nil {
			return nil, err
		}
		if id != identifyResponseID {
			return nil, fmt.Errorf("unexpected message %d during identify", id)
		}
		got, err := protocol.DecodeVLQUint(&p)
		if err != nil {
			return nil, err
		}
		if got != offset {
			return nil, fmt.Errorf("chunk offset %d, want %d", got, offset)
		}
		chunk, err := protocol.DecodeVLQBytes(&p)
		if err != nil {
			return nil, err
		}
		buf.Write(chunk)
		if len(chunk) < identifyChunk {
			return buf.Bytes(), nil
		}
	}
}

// inflate undoes zlib compression; firmware may send either form.
func inflate(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x78 {
		return nil, errors.New("not zlib")
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Dictionary returns the parsed dictionary, nil before Connect.
func (c *Client) Dictionary() *Dictionary { return c.dict }

// RawDictionary returns the dictionary JSON.
func (c *Client) RawDictionary() []byte { return c.raw }

// Constant returns a dictionary config value.
func (c *Client) Constant(name string) (string, bool) {
	if c.dict == nil {
		return "", false
	}
	v, ok := c.dict.Config[name]
	return v, ok
}

// Call sends a command by name and returns the responses it produced. A
// platform_error among them is returned as a *PlatformError.
func (c *Client) Call(name string, args ...interface{}) ([]*Response, error) {
	if c.commands == nil {
		return nil, ErrNoDictionary
	}
	m, ok := c.commands[name]
	if !ok {
		return nil, fmt.Errorf("probe: unknown command %q", name)
	}
	scratch := protocol.NewScratchOutput()
	if err := m.encode(scratch, args); err != nil {
		return nil, err
	}
	encoded := scratch.Result()

	// anything still queued belongs to an earlier command
	for {
		if _, ok := c.tr.TryReceive(); !ok {
			break
		}
	}
	err := c.tr.SendCommandWithTimeout(m.ID, func(out protocol.OutputBuffer) { out.Output(encoded) }, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var out []*Response
	var perr *PlatformError
	for {
		msg, ok := c.tr.TryReceive()
		if !ok {
			break
		}
		r, err := c.decode(msg)
		if err != nil {
			return out, err
		}
		if r.Name == "platform_error" && perr == nil {
			perr = &PlatformError{Op: r.String("op"), Code: errcode.Code(r.String("code"))}
		}
		out = append(out, r)
	}
	if perr != nil {
		return out, perr
	}
	return out, nil
}

func (c *Client) decode(msg *protocol.Message) (*Response, error) {
	p := msg.Payload
	id, err := protocol.DecodeVLQUint(&p)
	if err != nil {
		return nil, err
	}
	m, ok := c.responses[uint16(id)]
	if !ok {
		return nil, fmt.Errorf("probe: unknown response id %d", id)
	}
	return m.decode(p)
}

// Describe renders a response in dictionary form.
func (c *Client) Describe(r *Response) string {
	for _, m := range c.responses {
		if m.Name == r.Name {
			return m.describe(r)
		}
	}
	return r.Name
}

// expect calls name and returns its first response called want.
func (c *Client) expect(want, name string, args ...interface{}) (*Response, error) {
	resps, err := c.Call(name, args...)
	if err != nil {
		return nil, err
	}
	for _, r := range resps {
		if r.Name == want {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s: no %s response", name, want)
}

// SetPower switches the target rail and returns the resulting state.
func (c *Client) SetPower(on bool) (bool, error) {
	r, err := c.expect("target_power_state", "target_power_set", on)
	if err != nil {
		return false, err
	}
	return r.Bool("on"), nil
}

func (c *Client) Power() (bool, error) {
	r, err := c.expect("target_power_state", "target_power_query")
	if err != nil {
		return false, err
	}
	return r.Bool("on"), nil
}

// AssertReset drives nRST and returns the sensed reset line.
func (c *Client) AssertReset(assert bool) (bool, error) {
	r, err := c.expect("target_reset_state", "target_reset_set", assert)
	if err != nil {
		return false, err
	}
	return r.Bool("sense"), nil
}

func (c *Client) ResetSense() (bool, error) {
	r, err := c.expect("target_reset_state", "target_reset_query")
	if err != nil {
		return false, err
	}
	return r.Bool("sense"), nil
}

// Voltage is one target voltage reading.
type Voltage struct {
	Raw       uint32
	Decivolts uint32
	Text      string
}

func (c *Client) Voltage() (Voltage, error) {
	r, err := c.expect("target_voltage", "target_voltage_query")
	if err != nil {
		return Voltage{}, err
	}
	return Voltage{Raw: r.Uint("raw"), Decivolts: r.Uint("decivolts"), Text: r.String("text")}, nil
}

// SPIInit enables a bus and returns whether it reports enabled.
func (c *Client) SPIInit(bus board.BusID) (bool, error) {
	r, err := c.expect("spi_bus_state", "spi_bus_init", uint8(bus))
	if err != nil {
		return false, err
	}
	return r.Bool("enabled"), nil
}

func (c *Client) SPIDeinit(bus board.BusID) (bool, error) {
	r, err := c.expect("spi_bus_state", "spi_bus_deinit", uint8(bus))
	if err != nil {
		return false, err
	}
	return r.Bool("enabled"), nil
}

// ChipSelect asserts or releases one device's chip select.
func (c *Client) ChipSelect(dev board.DeviceID, assert bool) error {
	return c.SelectCode(core.ChipSelect{Device: dev, Assert: assert}.Code())
}

// SelectCode sends a packed chip-select code unchanged.
func (c *Client) SelectCode(code uint8) error {
	_, err := c.expect("spi_chip_select_state", "spi_chip_select", code)
	return err
}

// Transfer clocks data through bus and returns the bytes read back. Long
// buffers are split across several commands.
func (c *Client) Transfer(bus board.BusID, data []byte) ([]byte, error) {
	in := make([]byte, 0, len(data))
	for len(data) > 0 {
		n := len(data)
		if n > transferChunk {
			n = transferChunk
		}
		r, err := c.expect("spi_xfer_response", "spi_xfer", uint8(bus), data[:n])
		if err != nil {
			return in, err
		}
		in = append(in, r.Bytes("data")...)
		data = data[n:]
	}
	return in, nil
}

// Events returns the newest firmware events, oldest first.
func (c *Client) Events() ([]core.Event, error) {
	resps, err := c.Call("get_events")
	if err != nil {
		return nil, err
	}
	var events []core.Event
	for _, r := range resps {
		if r.Name != "event" {
			continue
		}
		events = append(events, core.Event{
			Type:   uint8(r.Uint("type")),
			Clock:  r.Uint("clock"),
			Value1: r.Uint("value1"),
			Value2: r.Uint("value2"),
		})
	}
	return events, nil
}

// Uptime returns firmware clock ticks since boot.
func (c *Client) Uptime() (uint64, error) {
	r, err := c.expect("uptime", "get_uptime")
	if err != nil {
		return 0, err
	}
	return uint64(r.Uint("high"))<<32 | uint64(r.Uint("clock")), nil
}

func (c *Client) Clock() (uint32, error) {
	r, err := c.expect("clock", "get_clock")
	if err != nil {
		return 0, err
	}
	return r.Uint("clock"), nil
}

// FirmwareConfig is the get_config reply.
type FirmwareConfig struct {
	Shutdown  bool
	HWVersion uint8
}

func (c *Client) Config() (FirmwareConfig, error) {
	r, err := c.expect("config", "get_config")
	if err != nil {
		return FirmwareConfig{}, err
	}
	return FirmwareConfig{Shutdown: r.Bool("is_shutdown"), HWVersion: uint8(r.Uint("hw_version"))}, nil
}

// EmergencyStop powers the target off and latches the firmware shutdown.
func (c *Client) EmergencyStop() error {
	_, err := c.Call("emergency_stop")
	return err
}

// Reset reboots the firmware. The link restarts at the first sequence.
func (c *Client) Reset() error {
	if _, err := c.Call("reset"); err != nil {
		return err
	}
	c.tr.Reset()
	return nil
}
