package board

import (
	"encoding/json"
	"os"

	"probeplat/errcode"
)

// fileConfig is the on-disk JSON shape of a Config. Chip selects are keyed
// by device name so a board file only lists what it changes.
type fileConfig struct {
	Name        string                  `json:"name"`
	HWVersion   uint8                   `json:"hw_version"`
	PowerPin    string                  `json:"power_pin"`
	Reset       Reset                   `json:"reset"`
	Voltage     Voltage                 `json:"voltage"`
	Vbus        Vbus                    `json:"vbus"`
	Buses       []SPIBus                `json:"buses"`
	ChipSelects map[DeviceID]ChipSelect `json:"chip_selects"`
	Timing      Timing                  `json:"timing"`
}

// Load parses a JSON board description. Anything the file leaves out keeps
// the value from Default, and the result is validated.
func Load(jsonData []byte) (*Config, error) {
	base := Default()
	file := toFile(base)

	if err := json.Unmarshal(jsonData, &file); err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "board", err)
	}

	config, err := fromFile(&file, base)
	if err != nil {
		return nil, err
	}
	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile reads and parses a board description from disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Marshal renders c in the board file format.
func Marshal(c *Config) ([]byte, error) {
	return json.MarshalIndent(toFile(c), "", "  ")
}

func toFile(c *Config) fileConfig {
	power, _ := c.PowerPin.MarshalText()
	f := fileConfig{
		Name:        c.Name,
		HWVersion:   c.HWVersion,
		PowerPin:    string(power),
		Reset:       c.Reset,
		Voltage:     c.Voltage,
		Vbus:        c.Vbus,
		Buses:       append([]SPIBus(nil), c.Buses[:]...),
		ChipSelects: make(map[DeviceID]ChipSelect, NumDevices),
		Timing:      c.Timing,
	}
	for i, cs := range c.ChipSelects {
		f.ChipSelects[DeviceID(i)] = cs
	}
	return f
}

func fromFile(f *fileConfig, base *Config) (*Config, error) {
	c := *base
	c.Name = f.Name
	c.HWVersion = f.HWVersion
	if err := c.PowerPin.UnmarshalText([]byte(f.PowerPin)); err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "board", err)
	}
	c.Reset = f.Reset
	c.Voltage = f.Voltage
	c.Vbus = f.Vbus
	c.Timing = f.Timing

	if len(f.Buses) != int(NumBuses) {
		return nil, errcode.New(errcode.InvalidParams, "board", "exactly two buses required")
	}
	copy(c.Buses[:], f.Buses)

	for dev, cs := range f.ChipSelects {
		if dev >= NumDevices {
			return nil, errcode.New(errcode.InvalidParams, "board", "unknown device "+dev.String())
		}
		c.ChipSelects[dev] = cs
	}
	return &c, nil
}

// applyDefaults fills zero-valued settings that have no meaningful zero.
func applyDefaults(c *Config) {
	if c.Name == "" {
		c.Name = "custom"
	}
	if c.Timing.ResetSettle == 0 {
		c.Timing.ResetSettle = 10000
	}
	for i := range c.Buses {
		if c.Buses[i].Name == "" {
			c.Buses[i].Name = BusID(i).String()
		}
		if c.Buses[i].Frequency == 0 {
			c.Buses[i].Frequency = 4000000
		}
	}
}
