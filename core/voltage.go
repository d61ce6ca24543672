package core

import (
	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
)

// Divider calibration: decivolts = raw * VoltageScaleNum / VoltageScaleDen.
// The denominator is not the ADC full scale.
const (
	VoltageScaleNum = 99
	VoltageScaleDen = 8191
)

// VoltageSensor samples the target rail through the board's divider.
// Samples are taken on demand and never cached.
type VoltageSensor struct {
	adc   hal.ADC
	wait  Waiter
	cfg   board.Voltage
	limit uint32
}

func NewVoltageSensor(adc hal.ADC, wait Waiter, cfg board.Voltage, limit uint32) *VoltageSensor {
	return &VoltageSensor{adc: adc, wait: wait, cfg: cfg, limit: limit}
}

// ReadRaw runs one conversion and returns the 12-bit result.
func (v *VoltageSensor) ReadRaw() (uint32, error) {
	v.adc.SelectChannel(v.cfg.Channel)
	v.adc.StartConversion()
	if err := v.wait.Await(v.limit, v.adc.ConversionDone); err != nil {
		return 0, &errcode.E{C: errcode.Of(err), Op: "voltage", Msg: "conversion did not finish", Err: err}
	}
	raw := uint32(v.adc.Result())
	if v.cfg.ManualEOCClear {
		v.adc.ClearDone()
	}
	return raw, nil
}

// ReadDecivolts returns the rail voltage in tenths of a volt.
func (v *VoltageSensor) ReadDecivolts() (uint32, error) {
	raw, err := v.ReadRaw()
	if err != nil {
		return 0, err
	}
	dv := Decivolts(raw)
	RecordEvent(EvtVoltage, raw, dv)
	return dv, nil
}

// ReadString returns the rail voltage as "D.DV".
func (v *VoltageSensor) ReadString() (string, error) {
	dv, err := v.ReadDecivolts()
	if err != nil {
		return "", err
	}
	return FormatDecivolts(dv), nil
}

// Decivolts scales a raw conversion result.
func Decivolts(raw uint32) uint32 {
	return raw * VoltageScaleNum / VoltageScaleDen
}

// FormatDecivolts renders one integer digit, a point, one fractional digit
// and a 'V'. Values of 100 or more do not fit the leading digit and come
// out as whatever byte '0'+dv/10 lands on.
func FormatDecivolts(dv uint32) string {
	buf := [4]byte{'0' + byte(dv/10), '.', '0' + byte(dv%10), 'V'}
	return string(buf[:])
}
