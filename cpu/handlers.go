package cpu

// Opcode-group handlers. Each receives the already-fetched opcode byte (PC
// has already been advanced past it, per the engine's fetch step) and
// returns the instruction's T-state cost, including the 4 states already
// spent fetching the opcode itself.

func opNOP(c *CPU, op byte) int { return 4 }

func opLDnnSP(c *CPU, op byte) int {
	addr := c.fetchImm16()
	c.write16(addr, c.Regs.SP)
	return 20
}

func opLDrr(c *CPU, op byte) int {
	dst := (op >> 3) & 0x7
	src := op & 0x7
	c.writeR(dst, c.readR(src))
	if dst == 6 || src == 6 {
		return 8
	}
	return 4
}

func opHALT(c *CPU, op byte) int {
	c.Asleep = true
	// The halt bug: entering HALT with IME off and an interrupt already
	// pending arms a fetch anomaly under which the first byte fetched after
	// wake-up is executed twice. The counter starts at 2 because the
	// interrupt-client step that wakes the CPU consumes one count before any
	// fetch happens.
	if !c.IME && c.IO.InterruptMask() != 0 {
		c.HaltBugSkip = 2
	}
	return 4
}

func opLDrrnn(c *CPU, op byte) int {
	v := c.fetchImm16()
	c.writeRP((op>>4)&0x3, v)
	return 12
}

func opLDIndA(c *CPU, op byte) int {
	rp := (op >> 4) & 0x1 // 0=BC, 1=DE
	var addr uint16
	if rp == 0 {
		addr = c.Regs.BC()
	} else {
		addr = c.Regs.DE()
	}
	if op&0x08 == 0 {
		c.write8(addr, c.Regs.A)
	} else {
		c.Regs.A = c.read8(addr)
	}
	return 8
}

func opADDHLrr(c *CPU, op byte) int {
	idx := (op >> 4) & 0x3
	c.Regs.SetHL(c.addHL16(c.Regs.HL(), c.readRP(idx)))
	return 8
}

func opIncDecRR(c *CPU, op byte) int {
	idx := (op >> 4) & 0x3
	v := c.readRP(idx)
	if op&0x08 == 0 {
		c.writeRP(idx, v+1)
	} else {
		c.writeRP(idx, v-1)
	}
	return 8
}

func opIncDecR(c *CPU, op byte) int {
	idx := (op >> 3) & 0x7
	v := c.readR(idx)
	if op&0x01 == 0 {
		c.writeR(idx, c.inc8(v))
	} else {
		c.writeR(idx, c.dec8(v))
	}
	if idx == 6 {
		return 12
	}
	return 4
}

func opRotateA(c *CPU, op byte) int {
	switch (op >> 3) & 0x3 {
	case 0:
		c.Regs.A = c.rlc8(c.Regs.A)
	case 1:
		c.Regs.A = c.rrc8(c.Regs.A)
	case 2:
		c.Regs.A = c.rl8(c.Regs.A)
	default:
		c.Regs.A = c.rr8(c.Regs.A)
	}
	// The accumulator forms always clear Z, unlike their CB-prefixed
	// register counterparts.
	c.Regs.SetFlagZ(false)
	return 4
}

func opSTOP(c *CPU, op byte) int {
	c.fetchImm8() // STOP's mandatory (and conventionally ignored) operand byte
	c.Asleep = true
	c.Stopped = true
	if c.OnStop != nil {
		c.OnStop()
	}
	return 4
}

func opJR(c *CPU, op byte) int {
	e := int8(c.fetchImm8())
	if op == 0x18 || c.condition((op>>3)&0x3) {
		c.Regs.PC = uint16(int32(c.Regs.PC) + int32(e))
		return 12
	}
	return 8
}

func opLDrn(c *CPU, op byte) int {
	idx := (op >> 3) & 0x7
	v := c.fetchImm8()
	c.writeR(idx, v)
	if idx == 6 {
		return 12
	}
	return 8
}

func opLDIorDHLA(c *CPU, op byte) int {
	hl := c.Regs.HL()
	toMem := op&0x08 == 0
	if toMem {
		c.write8(hl, c.Regs.A)
	} else {
		c.Regs.A = c.read8(hl)
	}
	if op&0x10 == 0 {
		c.Regs.SetHL(hl + 1)
	} else {
		c.Regs.SetHL(hl - 1)
	}
	return 8
}

func opDAA(c *CPU, op byte) int { c.daa(); return 4 }

func opCPL(c *CPU, op byte) int {
	c.Regs.A = ^c.Regs.A
	c.Regs.SetFlagN(true)
	c.Regs.SetFlagH(true)
	return 4
}

func opSCForCCF(c *CPU, op byte) int {
	c.Regs.SetFlagN(false)
	c.Regs.SetFlagH(false)
	if op == 0x37 {
		c.Regs.SetFlagC(true)
	} else {
		c.Regs.SetFlagC(!c.Regs.FlagC())
	}
	return 4
}

func opALU(c *CPU, op byte) int {
	var operand byte
	var extra int
	if op&0xC0 == 0x80 {
		idx := op & 0x7
		operand = c.readR(idx)
		if idx == 6 {
			extra = 4
		}
	} else {
		operand = c.fetchImm8()
		extra = 4
	}
	switch (op >> 3) & 0x7 {
	case 0:
		c.Regs.A = c.add8(c.Regs.A, operand)
	case 1:
		c.Regs.A = c.adc8(c.Regs.A, operand)
	case 2:
		c.Regs.A = c.sub8(c.Regs.A, operand)
	case 3:
		c.Regs.A = c.sbc8(c.Regs.A, operand)
	case 4:
		c.Regs.A = c.and8(c.Regs.A, operand)
	case 5:
		c.Regs.A = c.xor8(c.Regs.A, operand)
	case 6:
		c.Regs.A = c.or8(c.Regs.A, operand)
	default:
		c.cp8(c.Regs.A, operand)
	}
	return 4 + extra
}

func opPushPop(c *CPU, op byte) int {
	idx := (op >> 4) & 0x3
	if op&0x04 != 0 { // PUSH
		c.Regs.SP -= 2
		c.write16(c.Regs.SP, c.readRP2(idx))
		return 16
	}
	c.writeRP2(idx, c.read16(c.Regs.SP))
	c.Regs.SP += 2
	return 12
}

func opRET(c *CPU, op byte) int {
	if op == 0xC9 || op == 0xD9 {
		c.Regs.PC = c.read16(c.Regs.SP)
		c.Regs.SP += 2
		if op == 0xD9 {
			c.IME = true
		}
		return 16
	}
	if c.condition((op >> 3) & 0x3) {
		c.Regs.PC = c.read16(c.Regs.SP)
		c.Regs.SP += 2
		return 20
	}
	return 8
}

func opRST(c *CPU, op byte) int {
	vector := uint16(op & 0x38)
	c.Regs.SP -= 2
	c.write16(c.Regs.SP, c.Regs.PC)
	c.Regs.PC = vector
	return 16
}

func opJP(c *CPU, op byte) int {
	addr := c.fetchImm16()
	if op == 0xC3 || c.condition((op>>3)&0x3) {
		c.Regs.PC = addr
		return 16
	}
	return 12
}

func opCALL(c *CPU, op byte) int {
	addr := c.fetchImm16()
	if op == 0xCD || c.condition((op>>3)&0x3) {
		c.Regs.SP -= 2
		c.write16(c.Regs.SP, c.Regs.PC)
		c.Regs.PC = addr
		return 24
	}
	return 12
}

func opADDSPn(c *CPU, op byte) int {
	e := int8(c.fetchImm8())
	c.Regs.SP = c.addSPSigned(c.Regs.SP, e)
	return 16
}

func opLDnnA(c *CPU, op byte) int {
	addr := c.fetchImm16()
	if op == 0xEA {
		c.write8(addr, c.Regs.A)
	} else {
		c.Regs.A = c.read8(addr)
	}
	return 16
}

func opLDH(c *CPU, op byte) int {
	var addr uint16
	if op == 0xE0 || op == 0xF0 {
		addr = 0xFF00 + uint16(c.fetchImm8())
	} else {
		addr = 0xFF00 + uint16(c.Regs.C)
	}
	if op == 0xE0 || op == 0xE2 {
		c.write8(addr, c.Regs.A)
	} else {
		c.Regs.A = c.read8(addr)
	}
	if op == 0xE0 || op == 0xF0 {
		return 12
	}
	return 8
}

func opLDHLSPn(c *CPU, op byte) int {
	e := int8(c.fetchImm8())
	c.Regs.SetHL(c.addSPSigned(c.Regs.SP, e))
	return 12
}

// opJPHLOrLDSPHL covers the two opcodes that collapse onto the same coarse
// mask in decode: JP (HL) (0xE9) jumps through HL unconditionally without
// the memory read implied by "(HL)" elsewhere in the table, and LD SP,HL
// (0xF9) copies HL into SP.
func opJPHLOrLDSPHL(c *CPU, op byte) int {
	if op == 0xE9 {
		c.Regs.PC = c.Regs.HL()
		return 4
	}
	c.Regs.SP = c.Regs.HL()
	return 8
}

func opDIEI(c *CPU, op byte) int {
	if op == 0xF3 {
		c.DisableInterrupts()
	} else {
		c.EnableInterrupts()
	}
	return 4
}

func opUnused(c *CPU, op byte) int {
	// Real hardware locks up on these; a core whose job is dispatch-contract
	// fidelity just treats them as a no-op rather than an execution fault.
	return 4
}

func opMissing(c *CPU, op byte) int {
	c.fatal(&DecodeMissingError{Opcode: op, PC: c.Regs.PC})
	return 4
}
