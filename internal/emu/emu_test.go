package emu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/jmallinger/gbcore/internal/cart"
	"github.com/jmallinger/gbcore/internal/cpu"
)

// buildROM produces a minimal bootable image with valid checksums and the
// given program at the 0x0100 entry point.
func buildROM(t *testing.T, cartType, ramSizeCode byte, program []byte) []byte {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x0100:], program)
	rom[0x0147] = cartType
	rom[0x0149] = ramSizeCode

	var hsum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[0x014D] = hsum
	var gsum uint16
	for i := range rom {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(rom[i])
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], gsum)
	return rom
}

func newMachine(t *testing.T, rom []byte) *Machine {
	t.Helper()
	c, err := cart.NewFromBytes(rom)
	if err != nil {
		t.Fatalf("NewFromBytes error: %v", err)
	}
	m := New()
	m.LoadCartridge(c)
	return m
}

func TestPostBootIODefaults(t *testing.T) {
	m := newMachine(t, buildROM(t, 0x00, 0x00, []byte{0x00}))
	checks := map[uint16]byte{
		0xFF00: 0xCF, // joypad
		0xFF07: 0x00, // TAC
		0xFF40: 0x91, // LCDC
		0xFF47: 0xFC, // BGP
		0xFFFF: 0x00, // IE
	}
	for addr, want := range checks {
		if got := m.Bus().Read(addr); got != want {
			t.Errorf("IO %#04x got %#02x want %#02x", addr, got, want)
		}
	}
	if m.CPU().PC != 0x0100 {
		t.Fatalf("PC got %#04x want 0x0100", m.CPU().PC)
	}
}

func TestRun_CountsStepsAndCycles(t *testing.T) {
	// NOP; NOP; JR -4 loops forever
	m := newMachine(t, buildROM(t, 0x00, 0x00, []byte{0x00, 0x00, 0x18, 0xFC}))
	steps, cycles, err := m.Run(6)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if steps != 6 {
		t.Fatalf("steps got %d want 6", steps)
	}
	// two rounds of NOP(1) NOP(1) JR(3)
	if cycles != 10 {
		t.Fatalf("cycles got %d want 10", cycles)
	}
}

func TestRun_SurfacesInvalidOpcode(t *testing.T) {
	m := newMachine(t, buildROM(t, 0x00, 0x00, []byte{0x00, 0xD3}))
	steps, _, err := m.Run(100)
	var inv *cpu.InvalidOpcodeError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidOpcodeError, got %v", err)
	}
	if steps != 1 {
		t.Fatalf("steps before fault got %d want 1", steps)
	}
	if inv.PC != 0x0101 || inv.Opcode != 0xD3 {
		t.Fatalf("error got PC=%#04x opcode=%#02x", inv.PC, inv.Opcode)
	}
}

func TestSerialPassthrough(t *testing.T) {
	// LD A,'O'; LDH [SB],A; LD A,0x81; LDH [SC],A
	m := newMachine(t, buildROM(t, 0x00, 0x00, []byte{
		0x3E, 'O',
		0xE0, 0x01,
		0x3E, 0x81,
		0xE0, 0x02,
	}))
	var out bytes.Buffer
	m.SetSerialWriter(&out)
	if _, _, err := m.Run(4); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.String() != "O" {
		t.Fatalf("serial got %q want %q", out.String(), "O")
	}
}

func TestBattery_RoundTrip(t *testing.T) {
	// MBC1+RAM+BATTERY with 8KiB RAM; the program enables RAM and stores
	// a byte: LD A,0x0A; LD [0x0000],A; LD A,0x5A; LD [0xA000],A
	m := newMachine(t, buildROM(t, 0x03, 0x02, []byte{
		0x3E, 0x0A,
		0xEA, 0x00, 0x00,
		0x3E, 0x5A,
		0xEA, 0x00, 0xA0,
	}))
	if _, _, err := m.Run(4); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	data, ok := m.SaveBattery()
	if !ok || len(data) != 8*1024 || data[0] != 0x5A {
		t.Fatalf("SaveBattery got ok=%t len=%d", ok, len(data))
	}

	m2 := newMachine(t, buildROM(t, 0x03, 0x02, []byte{0x00}))
	if !m2.LoadBattery(data) {
		t.Fatalf("LoadBattery failed")
	}
}

func TestBattery_NoBatteryCart(t *testing.T) {
	m := newMachine(t, buildROM(t, 0x00, 0x00, []byte{0x00}))
	if _, ok := m.SaveBattery(); ok {
		t.Fatalf("SaveBattery reported data for a battery-less cart")
	}
	if m.LoadBattery([]byte{1, 2, 3}) {
		t.Fatalf("LoadBattery accepted data for a battery-less cart")
	}
}
