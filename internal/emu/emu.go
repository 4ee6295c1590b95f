// Package emu wires the cartridge, bus and CPU into a runnable machine and
// seeds the I/O registers with DMG post-boot defaults so ROMs can start at
// 0x0100 without a boot ROM.
package emu

import (
	"io"

	"github.com/golang/glog"

	"github.com/jmallinger/gbcore/internal/bus"
	"github.com/jmallinger/gbcore/internal/cart"
	"github.com/jmallinger/gbcore/internal/cpu"
)

// Machine owns the emulator session: the bus (which owns the cartridge and
// memory regions) and the CPU.
type Machine struct {
	bus     *bus.Bus
	cpu     *cpu.CPU
	romPath string
}

// New creates an empty machine; load a cartridge before running.
func New() *Machine {
	return &Machine{}
}

// LoadCartridge wires a loaded cartridge into a fresh bus and CPU and
// applies the DMG post-boot state.
func (m *Machine) LoadCartridge(c *cart.Cartridge) {
	c.LogSummary()
	if c.Status != cart.BootOk {
		glog.Warningf("cartridge failed validation (%s); running anyway", c.Status)
	}
	m.bus = bus.New(c)
	m.cpu = cpu.New(m.bus)
	m.applyPostBootIO()
}

// LoadROMFromFile loads a ROM image from disk and wires it in.
func (m *Machine) LoadROMFromFile(path string) error {
	c, err := cart.New(path)
	if err != nil {
		return err
	}
	m.LoadCartridge(c)
	m.romPath = path
	return nil
}

// ROMPath returns the currently loaded ROM file path, if any.
func (m *Machine) ROMPath() string { return m.romPath }

// CPU exposes the CPU for tracing and external collaborators.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Bus exposes the bus for external collaborators (PPU, debugger).
func (m *Machine) Bus() *bus.Bus { return m.bus }

// SetSerialWriter forwards serial port output to w.
func (m *Machine) SetSerialWriter(w io.Writer) { m.bus.SetSerialWriter(w) }

// Run steps the CPU until maxSteps instructions have executed. It returns
// the instructions and M-cycles consumed and the first fatal error, if any.
func (m *Machine) Run(maxSteps int) (steps, cycles int, err error) {
	for steps = 0; steps < maxSteps; steps++ {
		n, err := m.cpu.Step()
		cycles += n
		if err != nil {
			return steps, cycles, err
		}
	}
	return steps, cycles, nil
}

// SaveBattery returns a copy of external cartridge RAM when the cartridge
// is battery-backed. The caller owns file IO.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.bus == nil {
		return nil, false
	}
	c := m.bus.Cart()
	if !c.Header().Type.Battery {
		return nil, false
	}
	data := c.SaveRAM()
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

// LoadBattery restores external RAM bytes into a battery-backed cartridge.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.bus == nil || len(data) == 0 {
		return false
	}
	c := m.bus.Cart()
	if !c.Header().Type.Battery {
		return false
	}
	c.LoadRAM(data)
	return true
}

// applyPostBootIO sets the I/O registers a DMG boot ROM leaves behind, so
// execution can start at 0x0100 with the LCD enabled and timers off.
func (m *Machine) applyPostBootIO() {
	b := m.bus
	b.Write(0xFF00, 0xCF) // joypad: no group selected
	b.Write(0xFF05, 0x00) // TIMA
	b.Write(0xFF06, 0x00) // TMA
	b.Write(0xFF07, 0x00) // TAC (disabled)
	b.Write(0xFF40, 0x91) // LCDC: LCD on, BG on, tile data 8000, sprites 8x8
	b.Write(0xFF42, 0x00) // SCY
	b.Write(0xFF43, 0x00) // SCX
	b.Write(0xFF45, 0x00) // LYC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF4A, 0x00) // WY
	b.Write(0xFF4B, 0x00) // WX
	b.Write(0xFFFF, 0x00) // IE
}
