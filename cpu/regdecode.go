package cpu

// Standard LR35902/Z80-style 3-bit and 2-bit register field decodings, shared
// by every opcode-group handler that reads its operand(s) out of the opcode
// byte itself rather than an immediate.

// readR reads the 8-bit register (or (HL)) selected by a 3-bit field: 0=B,
// 1=C, 2=D, 3=E, 4=H, 5=L, 6=(HL), 7=A.
func (c *CPU) readR(idx byte) byte {
	switch idx & 0x7 {
	case 0:
		return c.Regs.B
	case 1:
		return c.Regs.C
	case 2:
		return c.Regs.D
	case 3:
		return c.Regs.E
	case 4:
		return c.Regs.H
	case 5:
		return c.Regs.L
	case 6:
		return c.read8(c.Regs.HL())
	default: // 7
		return c.Regs.A
	}
}

func (c *CPU) writeR(idx byte, v byte) {
	switch idx & 0x7 {
	case 0:
		c.Regs.B = v
	case 1:
		c.Regs.C = v
	case 2:
		c.Regs.D = v
	case 3:
		c.Regs.E = v
	case 4:
		c.Regs.H = v
	case 5:
		c.Regs.L = v
	case 6:
		c.write8(c.Regs.HL(), v)
	default: // 7
		c.Regs.A = v
	}
}

// readRP reads the 16-bit register pair selected by a 2-bit field: 0=BC,
// 1=DE, 2=HL, 3=SP.
func (c *CPU) readRP(idx byte) uint16 {
	switch idx & 0x3 {
	case 0:
		return c.Regs.BC()
	case 1:
		return c.Regs.DE()
	case 2:
		return c.Regs.HL()
	default: // 3
		return c.Regs.SP
	}
}

func (c *CPU) writeRP(idx byte, v uint16) {
	switch idx & 0x3 {
	case 0:
		c.Regs.SetBC(v)
	case 1:
		c.Regs.SetDE(v)
	case 2:
		c.Regs.SetHL(v)
	default: // 3
		c.Regs.SP = v
	}
}

// readRP2/writeRP2 select BC/DE/HL/AF, used by PUSH/POP.
func (c *CPU) readRP2(idx byte) uint16 {
	if idx&0x3 == 3 {
		return c.Regs.AF()
	}
	return c.readRP(idx)
}

func (c *CPU) writeRP2(idx byte, v uint16) {
	if idx&0x3 == 3 {
		c.Regs.SetAF(v)
		return
	}
	c.writeRP(idx, v)
}

// condition evaluates the 2-bit condition field: 0=NZ, 1=Z, 2=NC, 3=C.
func (c *CPU) condition(idx byte) bool {
	switch idx & 0x3 {
	case 0:
		return !c.Regs.FlagZ()
	case 1:
		return c.Regs.FlagZ()
	case 2:
		return !c.Regs.FlagC()
	default: // 3
		return c.Regs.FlagC()
	}
}

// read8/write8/read16/write16 wrap the bus, routing failures to the CPU's
// fatal handler: bus failures during ordinary execution are not an expected
// recoverable condition the way speculative debug reads are.
func (c *CPU) read8(addr uint16) byte {
	v, err := c.Bus.Read8(addr)
	if err != nil {
		c.fatal(err)
	}
	return v
}

func (c *CPU) write8(addr uint16, v byte) {
	if err := c.Bus.Write8(addr, v); err != nil {
		c.fatal(err)
	}
}

func (c *CPU) read16(addr uint16) uint16 {
	v, err := c.Bus.Read16(addr)
	if err != nil {
		c.fatal(err)
	}
	return v
}

func (c *CPU) write16(addr uint16, v uint16) {
	if err := c.Bus.Write16(addr, v); err != nil {
		c.fatal(err)
	}
}

// fetchImm8 reads the byte at PC and advances PC by 1.
func (c *CPU) fetchImm8() byte {
	v := c.read8(c.Regs.PC)
	c.Regs.PC++
	return v
}

// fetchImm16 reads the little-endian word at PC and advances PC by 2.
func (c *CPU) fetchImm16() uint16 {
	v := c.read16(c.Regs.PC)
	c.Regs.PC += 2
	return v
}
