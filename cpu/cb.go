package cpu

// CB-prefix extended opcode table. The CB byte has
// already been fetched by opCBPrefix; this decodes the following byte,
// whose bits split as ggbbbrrr: bits 7-6 select BIT/RES/SET (rotate/shift
// group when those bits are 00), bits 5-3 select the rotate/shift variant
// or the bit index, and bits 2-0 select the 3-bit register field.

func opCBPrefix(c *CPU, op byte) int {
	sub := c.fetchImm8()
	r := sub & 0x7
	onHL := r == 6

	switch sub >> 6 {
	case 0: // rotate/shift group, selected by bits 5-3
		v := c.readR(r)
		switch (sub >> 3) & 0x7 {
		case 0:
			v = c.rlc8(v)
		case 1:
			v = c.rrc8(v)
		case 2:
			v = c.rl8(v)
		case 3:
			v = c.rr8(v)
		case 4:
			v = c.sla8(v)
		case 5:
			v = c.sra8(v)
		case 6:
			v = c.swap8(v)
		default:
			v = c.srl8(v)
		}
		c.writeR(r, v)
	case 1: // BIT b,r
		c.bit8(c.readR(r), (sub>>3)&0x7)
		if onHL {
			return 12
		}
		return 8
	case 2: // RES b,r
		c.writeR(r, res8(c.readR(r), (sub>>3)&0x7))
	default: // SET b,r
		c.writeR(r, set8(c.readR(r), (sub>>3)&0x7))
	}
	if onHL {
		return 16
	}
	return 8
}
