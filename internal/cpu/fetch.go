package cpu

// fetchOperand resolves an instruction's address mode into the scratch
// operand: value (8- or 16-bit), memLoc and isMemTarget when the operation
// writes to memory. This is the single place operand decoding happens; the
// handlers never read operand bytes from PC themselves. The one byte read
// from PC in execute is the second opcode byte of a CB-prefixed
// instruction, fetched by the prefix dispatch.
//
// An 8-bit register used as a memory operand addresses the 0xFF00 page
// (the `LD A,[C]` family).
func (c *CPU) fetchOperand(inst *instruction) {
	c.isMemTarget = false
	switch inst.mode {
	case modeImpl:

	case modeReg, modeRegToReg:
		c.value = c.regRead(inst.src)

	case modeBit8, modeBit8ToReg:
		c.value = uint16(c.fetch8())

	case modeBit16, modeBit16ToReg:
		c.value = c.fetch16()

	case modeMemReg, modeMemRegToReg:
		loc := c.regRead(inst.src)
		if !inst.src.is16() {
			loc |= 0xFF00
		}
		c.value = uint16(c.read8(loc))
		if inst.dest.is16() {
			c.value |= uint16(c.read8(loc+1)) << 8
		}

	case modeMemRegToMemReg:
		// read-modify-write through a register-held address (INC/DEC [HL])
		loc := c.regRead(inst.src)
		c.value = uint16(c.read8(loc))
		c.memLoc = c.regRead(inst.dest)
		c.isMemTarget = true

	case modeRegToMemReg:
		c.value = c.regRead(inst.src)
		c.memLoc = c.regRead(inst.dest)
		if !inst.dest.is16() {
			c.memLoc |= 0xFF00
		}
		c.isMemTarget = true

	case modeRegToMemRegInc:
		c.value = c.regRead(inst.src)
		c.memLoc = c.regRead(inst.dest)
		c.isMemTarget = true
		c.regWrite(inst.dest, c.memLoc+1)

	case modeRegToMemRegDec:
		c.value = c.regRead(inst.src)
		c.memLoc = c.regRead(inst.dest)
		c.isMemTarget = true
		c.regWrite(inst.dest, c.memLoc-1)

	case modeMemRegIncToReg:
		loc := c.regRead(inst.src)
		c.value = uint16(c.read8(loc))
		c.regWrite(inst.src, loc+1)

	case modeMemRegDecToReg:
		loc := c.regRead(inst.src)
		c.value = uint16(c.read8(loc))
		c.regWrite(inst.src, loc-1)

	case modeBit8ToMemReg:
		c.value = uint16(c.fetch8())
		c.memLoc = c.regRead(inst.dest)
		c.isMemTarget = true

	case modeMemBit8ToReg:
		loc := 0xFF00 | uint16(c.fetch8())
		c.value = uint16(c.read8(loc))

	case modeRegToMemBit8:
		c.value = c.regRead(inst.src)
		c.memLoc = 0xFF00 | uint16(c.fetch8())
		c.isMemTarget = true

	case modeMemBit16ToReg:
		loc := c.fetch16()
		c.value = uint16(c.read8(loc))
		if inst.dest.is16() {
			c.value |= uint16(c.read8(loc+1)) << 8
		}

	case modeRegToMemBit16:
		c.value = c.regRead(inst.src)
		c.memLoc = c.fetch16()
		c.isMemTarget = true
	}
}
