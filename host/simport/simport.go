// Package simport runs the probe firmware in-process on the simulated HAL
// and exposes its USB link as a serial.Port, so host tools can be driven
// without hardware.
package simport

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"probeplat/board"
	"probeplat/core"
	"probeplat/protocol"
	"probeplat/sim"
)

// ErrClosed is returned by I/O on a closed port.
var ErrClosed = errors.New("simport: port closed")

// The firmware core keeps its registry, platform and transport in package
// globals, so only one simulated probe can run per process.
var active atomic.Bool

// Options tune the simulated board.
type Options struct {
	// Log receives firmware debug lines; nil keeps them off.
	Log io.Writer
	// Decivolts sets the initial target voltage; 0 means 3.3V.
	Decivolts uint32
	// Vbus is the initial VBUS level.
	Vbus bool
}

// Port is a running simulated probe.
type Port struct {
	board *sim.Board
	plat  *core.Platform
	tr    *protocol.Transport
	out   *protocol.ScratchOutput
	in    *protocol.FifoBuffer
	start time.Time

	toFirmware chan []byte
	calls      chan func()
	stop       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once

	mu     sync.Mutex
	cond   *sync.Cond
	rx     []byte
	closed bool
}

// Open boots the firmware for cfg (board.Default when nil).
func Open(cfg *board.Config, opts Options) (*Port, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, errors.New("simport: a simulated probe is already running")
	}
	if cfg == nil {
		cfg = board.Default()
	}
	p, err := boot(cfg, opts)
	if err != nil {
		active.Store(false)
		return nil, err
	}
	go p.run()
	return p, nil
}

func boot(cfg *board.Config, opts Options) (*Port, error) {
	if opts.Log != nil {
		w := opts.Log
		core.SetDebugWriter(func(s string) { io.WriteString(w, s+"\n") })
		core.SetDebugEnabled(true)
	} else {
		core.SetDebugWriter(func(string) {})
		core.SetDebugEnabled(false)
	}
	core.SetTime(0)
	core.TimerInit()
	core.ClearEvents()

	b := sim.NewBoard(cfg)
	dv := opts.Decivolts
	if dv == 0 {
		dv = 33
	}
	b.ADC.SetRaw(RawForDecivolts(dv))
	b.SetResetSense(true)
	b.GPIO.SetInput(cfg.Vbus.SensePin, opts.Vbus)

	plat, err := core.NewPlatform(cfg, core.Drivers{
		GPIO:  b.GPIO,
		Timer: b.Timer,
		ADC:   b.ADC,
		SPI:   b.Buses(),
		VBUS:  b.Vbus,
	})
	if err != nil {
		return nil, err
	}
	if err := plat.Init(); err != nil {
		return nil, err
	}

	core.InitCoreCommands()
	core.InitProbeCommands(cfg)
	core.RegisterConstant("MCU", "sim")
	core.GetGlobalDictionary().BuildDictionary()
	core.ResetFirmwareState()
	core.SetPlatform(plat)

	p := &Port{
		board:      b,
		plat:       plat,
		out:        protocol.NewScratchOutput(),
		in:         protocol.NewFifoBuffer(1024),
		start:      time.Now(),
		toFirmware: make(chan []byte, 16),
		calls:      make(chan func()),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.tr = protocol.NewTransport(p.out, core.DispatchCommand)
	core.SetGlobalTransport(p.tr)
	core.SetResetHandler(p.reboot)
	return p, nil
}

// RawForDecivolts returns a converter reading that displays as dv.
func RawForDecivolts(dv uint32) uint16 {
	raw := (dv*core.VoltageScaleDen + core.VoltageScaleNum - 1) / core.VoltageScaleNum
	if raw > 0x0fff {
		raw = 0x0fff
	}
	return uint16(raw)
}

// run is the firmware main loop. Everything touching core state happens
// here.
func (p *Port) run() {
	defer close(p.done)
	for {
		select {
		case data := <-p.toFirmware:
			core.SetTime(p.clock())
			p.in.Write(data)
			p.tr.Receive(p.in)
			p.flush()
			core.CheckPendingReset()
		case fn := <-p.calls:
			core.SetTime(p.clock())
			fn()
		case <-p.stop:
			return
		}
		p.flush()
	}
}

func (p *Port) clock() uint32 {
	return uint32(time.Since(p.start) / time.Microsecond)
}

func (p *Port) flush() {
	res := p.out.Result()
	if len(res) == 0 {
		return
	}
	p.mu.Lock()
	p.rx = append(p.rx, res...)
	p.cond.Broadcast()
	p.mu.Unlock()
	p.out.Reset()
}

// reboot mimics the watchdog reset: the link and the platform start over.
func (p *Port) reboot() {
	p.tr.Reset()
	core.ResetFirmwareState()
	core.ClearEvents()
	core.TimerInit()
	if err := p.plat.Init(); err != nil {
		core.DebugPrintln("[SIM] reinit: " + err.Error())
	}
}

// Do runs fn on the firmware goroutine with the simulated board, as an
// interrupt would.
func (p *Port) Do(fn func(b *sim.Board)) error {
	finished := make(chan struct{})
	select {
	case p.calls <- func() { fn(p.board); close(finished) }:
	case <-p.stop:
		return ErrClosed
	}
	<-finished
	return nil
}

// SetVbus drives the VBUS sense pin and fires its edge interrupt.
func (p *Port) SetVbus(level bool) error {
	return p.Do(func(b *sim.Board) { b.VbusEdge(level) })
}

// SetDecivolts changes the voltage the next conversion reports.
func (p *Port) SetDecivolts(dv uint32) error {
	return p.Do(func(b *sim.Board) { b.ADC.SetRaw(RawForDecivolts(dv)) })
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.rx) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return 0, ErrClosed
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

func (p *Port) Write(b []byte) (int, error) {
	data := append([]byte(nil), b...)
	select {
	case <-p.stop:
		return 0, ErrClosed
	default:
	}
	select {
	case p.toFirmware <- data:
		return len(b), nil
	case <-p.stop:
		return 0, ErrClosed
	}
}

// Flush drops bytes the host has not read yet.
func (p *Port) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = nil
	return nil
}

// Close stops the firmware and releases the core globals.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.cond.Broadcast()
		p.mu.Unlock()

		close(p.stop)
		<-p.done

		core.SetGlobalTransport(nil)
		core.SetPlatform(nil)
		core.SetResetHandler(nil)
		active.Store(false)
	})
	return nil
}
