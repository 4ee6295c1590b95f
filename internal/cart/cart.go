package cart

import (
	"fmt"
	"os"

	"github.com/golang/glog"
)

// BootStatus records the first header-validation failure found at load time.
// A failing cartridge is still usable; the boot ROM is what refuses it.
type BootStatus int

const (
	BootOk BootStatus = iota
	BootLogoMismatch
	BootHeaderChecksumBad
	BootGlobalChecksumBad
)

func (s BootStatus) String() string {
	switch s {
	case BootOk:
		return "ok"
	case BootLogoMismatch:
		return "logo mismatch"
	case BootHeaderChecksumBad:
		return "header checksum bad"
	case BootGlobalChecksumBad:
		return "global checksum bad"
	default:
		return "unknown"
	}
}

// Cartridge owns the ROM image and optional external RAM and hides the
// mapper-specific bank remapping behind Read/Write keyed by CPU address.
// The header record is derived once at construction and never mutated.
type Cartridge struct {
	rom    []byte
	ram    []byte
	header *Header

	Status BootStatus

	// 1-based bank indices, per the banking registers below.
	romBank int
	ramBank int

	// MBC1 register file
	ramEnabled bool
	bankLow5   byte
	bankHigh2  byte
	bankMode   byte // 0: ROM banking, 1: RAM banking
}

// New loads a cartridge image from disk.
func New(path string) (*Cartridge, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ROM: %w", err)
	}
	return NewFromBytes(rom)
}

// NewFromBytes constructs a cartridge from an in-memory image. Validation
// failures are recorded in Status but do not abort construction.
func NewFromBytes(rom []byte) (*Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	c := &Cartridge{
		rom:     rom,
		header:  h,
		romBank: 1,
		ramBank: 1,
	}
	if h.RAMSizeBytes > 0 {
		c.ram = make([]byte, h.RAMSizeBytes)
	}
	// RAM on a mapper-less cart has no enable register.
	c.ramEnabled = h.Type.Mapper == MapperNone && h.Type.RAM

	// Record the first failure only.
	switch {
	case !LogoOK(rom):
		c.Status = BootLogoMismatch
	case !HeaderChecksumOK(rom):
		c.Status = BootHeaderChecksumBad
	case !GlobalChecksumOK(rom):
		c.Status = BootGlobalChecksumBad
	}

	return c, nil
}

// Header returns the parsed header metadata.
func (c *Cartridge) Header() *Header { return c.header }

// ROMBank returns the current switchable ROM bank index (1-based).
func (c *Cartridge) ROMBank() int { return c.romBank }

// RAMBank returns the current external RAM bank index (1-based).
func (c *Cartridge) RAMBank() int { return c.ramBank }

// Read returns a byte for ROM (0x0000–0x7FFF) and external RAM
// (0xA000–0xBFFF). Out-of-range banked accesses read as 0xFF, the open-bus
// value, with a diagnostic; non-cartridge addresses are the Bus's problem
// and also read 0xFF.
func (c *Cartridge) Read(addr uint16) byte {
	switch {
	case addr <= 0x3FFF:
		if int(addr) < len(c.rom) {
			return c.rom[addr]
		}
		return 0xFF
	case addr <= 0x7FFF:
		off := int(addr) + (c.romBank-1)*0x4000
		if off >= len(c.rom) {
			glog.V(1).Infof("out-of-range ROM bank read: addr=%#04x bank=%d effective=%#x", addr, c.romBank, off)
			return 0xFF
		}
		return c.rom[off]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !c.ramEnabled || len(c.ram) == 0 {
			return 0xFF
		}
		off := int(addr-0xA000) + (c.ramBank-1)*0x2000
		if off >= len(c.ram) {
			glog.V(1).Infof("out-of-range RAM bank read: addr=%#04x bank=%d effective=%#x", addr, c.ramBank, off)
			return 0xFF
		}
		return c.ram[off]
	default:
		return 0xFF
	}
}

// Write handles mapper control writes (0x0000–0x7FFF) and external RAM
// writes (0xA000–0xBFFF). MBC1 semantics are implemented; other mappers are
// classified by the header but their control registers are no-ops for now.
func (c *Cartridge) Write(addr uint16, value byte) {
	switch {
	case addr <= 0x7FFF:
		if c.header.Type.Mapper == MapperMBC1 {
			c.writeMBC1(addr, value)
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !c.ramEnabled || len(c.ram) == 0 {
			return
		}
		off := int(addr-0xA000) + (c.ramBank-1)*0x2000
		if off < len(c.ram) {
			c.ram[off] = value
		}
	}
}

func (c *Cartridge) writeMBC1(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		// RAM enable: low nibble must be 0x0A
		c.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		// ROM bank low 5 bits, 0 remapped to 1
		c.bankLow5 = value & 0x1F
		if c.bankLow5 == 0 {
			c.bankLow5 = 1
		}
	case addr < 0x6000:
		c.bankHigh2 = value & 0x03
	default:
		c.bankMode = value & 0x01
	}
	c.applyBanks()
}

// applyBanks folds the MBC1 register file into the 1-based bank indices.
// The ROM bank is masked to the bank count, as the hardware wires it.
func (c *Cartridge) applyBanks() {
	bank := int(c.bankHigh2)<<5 | int(c.bankLow5)
	if c.header.ROMBanks > 0 {
		bank &= c.header.ROMBanks - 1
	}
	if bank < 1 {
		bank = 1
	}
	c.romBank = bank

	if c.bankMode == 1 && c.header.RAMBanks > 1 {
		c.ramBank = int(c.bankHigh2)%c.header.RAMBanks + 1
	} else {
		c.ramBank = 1
	}
}

// SaveRAM returns a copy of external RAM for battery persistence, or nil
// when the cartridge has none.
func (c *Cartridge) SaveRAM() []byte {
	if len(c.ram) == 0 {
		return nil
	}
	out := make([]byte, len(c.ram))
	copy(out, c.ram)
	return out
}

// LoadRAM restores battery-backed RAM contents.
func (c *Cartridge) LoadRAM(data []byte) {
	copy(c.ram, data)
}

// LogSummary writes the parsed header to the log, one shot at load time.
func (c *Cartridge) LogSummary() {
	h := c.header
	glog.Infof("cartridge: title=%q licensee=%q mapper=%s ram=%t battery=%t timer=%t rumble=%t sensor=%t",
		h.Title, h.Licensee, h.Type.Mapper, h.Type.RAM, h.Type.Battery, h.Type.Timer, h.Type.Rumble, h.Type.Sensor)
	glog.Infof("cartridge: rom=%d bytes (%d banks) ram=%d bytes (%d banks) dest=%s version=%d cgb=%t validation=%s",
		h.ROMSizeBytes, h.ROMBanks, h.RAMSizeBytes, h.RAMBanks, h.DestinationString(), h.Version, h.CGBSupport, c.Status)
}
