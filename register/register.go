// Package register implements the LR35902 register file: the six 16-bit
// pairs (AF, BC, DE, HL, SP, PC), their addressable 8-bit halves, and the
// Z/N/H/C flag bits packed into F.
package register

import (
	"fmt"

	"dmgcpu/mask"
)

// Flag bit positions within F, 1-indexed from the MSB per the mask package's
// convention. The low nibble of F is always zero.
const (
	flagZ = mask.I1
	flagN = mask.I2
	flagH = mask.I3
	flagC = mask.I4
)

// File is the canonical processor state: six 16-bit fields with addressable
// 8-bit halves. Reads and writes of F are always masked to its high nibble.
type File struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte
	SP   uint16
	PC   uint16
}

// AF returns the concatenation of A and F (F masked to its high nibble).
func (r *File) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F&0xF0) }

// SetAF sets A and F from a 16-bit value; F is masked to its high nibble.
func (r *File) SetAF(v uint16) {
	r.A = byte(v >> 8)
	r.F = byte(v) & 0xF0
}

func (r *File) BC() uint16     { return uint16(r.B)<<8 | uint16(r.C) }
func (r *File) SetBC(v uint16) { r.B, r.C = byte(v>>8), byte(v) }

func (r *File) DE() uint16     { return uint16(r.D)<<8 | uint16(r.E) }
func (r *File) SetDE(v uint16) { r.D, r.E = byte(v>>8), byte(v) }

func (r *File) HL() uint16     { return uint16(r.H)<<8 | uint16(r.L) }
func (r *File) SetHL(v uint16) { r.H, r.L = byte(v>>8), byte(v) }

// GetF returns F with its low nibble masked to zero.
func (r *File) GetF() byte { return r.F & 0xF0 }

// SetF stores v with its low nibble masked to zero.
func (r *File) SetF(v byte) { r.F = v & 0xF0 }

// Flag predicates.
func (r *File) FlagZ() bool { return mask.IsSet(r.F, flagZ) }
func (r *File) FlagN() bool { return mask.IsSet(r.F, flagN) }
func (r *File) FlagH() bool { return mask.IsSet(r.F, flagH) }
func (r *File) FlagC() bool { return mask.IsSet(r.F, flagC) }

func (r *File) setFlag(pos mask.ByteIndex, v bool) {
	if v {
		r.F = mask.Set(r.F, pos, 1)
	} else {
		r.F = mask.Unset(r.F, pos, pos)
	}
	r.F &= 0xF0
}

func (r *File) SetFlagZ(v bool) { r.setFlag(flagZ, v) }
func (r *File) SetFlagN(v bool) { r.setFlag(flagN, v) }
func (r *File) SetFlagH(v bool) { r.setFlag(flagH, v) }
func (r *File) SetFlagC(v bool) { r.setFlag(flagC, v) }

// Reset sets the register file to the documented post-boot values when the
// bootstrap ROM is absent (bootROM=false) or to all-zero when it is present.
func (r *File) Reset(bootROM bool) {
	if bootROM {
		*r = File{PC: 0x0000}
		return
	}
	r.SetAF(0x01B0)
	r.SetBC(0x0013)
	r.SetDE(0x00D8)
	r.SetHL(0x014D)
	r.SP = 0xFFFE
	r.PC = 0x0100
}

// String renders a single-line register dump for debugging.
func (r *File) String() string {
	return fmt.Sprintf(
		"AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X PC=%04X [Z=%t N=%t H=%t C=%t]",
		r.AF(), r.BC(), r.DE(), r.HL(), r.SP, r.PC,
		r.FlagZ(), r.FlagN(), r.FlagH(), r.FlagC(),
	)
}
