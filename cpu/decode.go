package cpu

// Group identifies one cell of the decoder's coarse opcode classification.
// Handlers within a group discriminate further on the opcode's own bits,
// exactly as the LR35902 groups many opcodes by shared bit fields.
type Group int

const (
	GroupNOP Group = iota
	GroupLDnnSP
	GroupLDrr
	GroupHALT
	GroupLDrrnn
	GroupLDIndA
	GroupADDHLrr
	GroupIncDecRR
	GroupIncDecR
	GroupRotateA
	GroupSTOP
	GroupJR
	GroupLDrn
	GroupLDIorDHLA
	GroupDAA
	GroupCPL
	GroupSCForCCF
	GroupALU
	GroupPushPop
	GroupRET
	GroupRST
	GroupJP
	GroupCALL
	GroupADDSPn
	GroupLDnnA
	GroupLDH
	GroupLDHLSPn
	GroupJPHL
	GroupDIEI
	GroupCBPrefix
	GroupUnused
	GroupMissing
)

// Descriptor is the process-wide, immutable instruction-group entry the
// decoder returns a reference to: a handler and a name for tracing. Cycle
// accounting is entirely the handler's responsibility: its return value
// already includes the 4 T-states implicit in the opcode fetch.
type Descriptor struct {
	Group   Group
	Name    string
	Handler func(c *CPU, op byte) int
}

var descriptors = [...]Descriptor{
	GroupNOP:       {GroupNOP, "NOP", opNOP},
	GroupLDnnSP:    {GroupLDnnSP, "LD (nn),SP", opLDnnSP},
	GroupLDrr:      {GroupLDrr, "LD r,r'", opLDrr},
	GroupHALT:      {GroupHALT, "HALT", opHALT},
	GroupLDrrnn:    {GroupLDrrnn, "LD rr,nn", opLDrrnn},
	GroupLDIndA:    {GroupLDIndA, "LD (rr),A / LD A,(rr)", opLDIndA},
	GroupADDHLrr:   {GroupADDHLrr, "ADD HL,rr", opADDHLrr},
	GroupIncDecRR:  {GroupIncDecRR, "INC/DEC rr", opIncDecRR},
	GroupIncDecR:   {GroupIncDecR, "INC/DEC r", opIncDecR},
	GroupRotateA:   {GroupRotateA, "RLCA/RRCA/RLA/RRA", opRotateA},
	GroupSTOP:      {GroupSTOP, "STOP", opSTOP},
	GroupJR:        {GroupJR, "JR", opJR},
	GroupLDrn:      {GroupLDrn, "LD r,n", opLDrn},
	GroupLDIorDHLA: {GroupLDIorDHLA, "LDI/LDD (HL),A / A,(HL)", opLDIorDHLA},
	GroupDAA:       {GroupDAA, "DAA", opDAA},
	GroupCPL:       {GroupCPL, "CPL", opCPL},
	GroupSCForCCF:  {GroupSCForCCF, "SCF/CCF", opSCForCCF},
	GroupALU:       {GroupALU, "ALU A,r / A,n", opALU},
	GroupPushPop:   {GroupPushPop, "PUSH/POP", opPushPop},
	GroupRET:       {GroupRET, "RET / conditional RET / RETI", opRET},
	GroupRST:       {GroupRST, "RST", opRST},
	GroupJP:        {GroupJP, "JP / conditional JP", opJP},
	GroupCALL:      {GroupCALL, "CALL", opCALL},
	GroupADDSPn:    {GroupADDSPn, "ADD SP,n", opADDSPn},
	GroupLDnnA:     {GroupLDnnA, "LD (nn),A / LD A,(nn)", opLDnnA},
	GroupLDH:       {GroupLDH, "LD (FF00+n),A / (FF00+C),A", opLDH},
	GroupLDHLSPn:   {GroupLDHLSPn, "LD HL,SP+n", opLDHLSPn},
	GroupJPHL:      {GroupJPHL, "JP (HL) / LD SP,HL", opJPHLOrLDSPHL},
	GroupDIEI:      {GroupDIEI, "DI/EI", opDIEI},
	GroupCBPrefix:  {GroupCBPrefix, "CB prefix", opCBPrefix},
	GroupUnused:    {GroupUnused, "unused", opUnused},
	GroupMissing:   {GroupMissing, "MISSING", opMissing},
}

var unusedOpcodes = map[byte]bool{
	0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true,
	0xEB: true, 0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
}

// Disassemble returns the instruction-group name an opcode decodes to,
// without executing it. It exists for the debug console's pre-prompt dump,
// which shows the decoded mnemonic group without advancing any CPU state.
func Disassemble(op byte) string {
	return decode(op).Name
}

// decode maps an opcode to its instruction-group descriptor by first-match
// bit-pattern test; the match order is load-bearing, since several patterns
// overlap and the earlier row wins.
//
// The conditional-CALL row uses (op&0xE7)==0xC4, the bit pattern shared by
// 0xC4/0xCC/0xD4/0xDC and nothing else; a looser 0xC7 mask would also
// swallow the unused opcodes 0xE4/0xEC/0xF4/0xFC, whose row comes later.
//
// JP (HL) (0xE9) and LD SP,HL (0xF9) share the same (op&0xEF)==0xE9 bit
// pattern; rather than invent a new row, the combined group's handler
// discriminates on the exact opcode, the same way every other group's
// handler discriminates on bits the coarse mask doesn't resolve.
func decode(op byte) *Descriptor {
	switch {
	case op == 0x00:
		return &descriptors[GroupNOP]
	case op == 0x08:
		return &descriptors[GroupLDnnSP]
	case (op&0xC0) == 0x40 && op != 0x76:
		return &descriptors[GroupLDrr]
	case op == 0x76:
		return &descriptors[GroupHALT]
	case (op & 0xCF) == 0x01:
		return &descriptors[GroupLDrrnn]
	case (op & 0xE7) == 0x02:
		return &descriptors[GroupLDIndA]
	case (op & 0xCF) == 0x09:
		return &descriptors[GroupADDHLrr]
	case (op & 0xC7) == 0x03:
		return &descriptors[GroupIncDecRR]
	case (op & 0xC6) == 0x04:
		return &descriptors[GroupIncDecR]
	case (op & 0xE7) == 0x07:
		return &descriptors[GroupRotateA]
	case op == 0x10:
		return &descriptors[GroupSTOP]
	case op == 0x18 || (op&0xE7) == 0x20:
		return &descriptors[GroupJR]
	case (op & 0xC7) == 0x06:
		return &descriptors[GroupLDrn]
	case (op & 0xE7) == 0x22:
		return &descriptors[GroupLDIorDHLA]
	case op == 0x27:
		return &descriptors[GroupDAA]
	case op == 0x2F:
		return &descriptors[GroupCPL]
	case (op & 0xF7) == 0x37:
		return &descriptors[GroupSCForCCF]
	case (op&0xC7) == 0xC6 || (op&0xC0) == 0x80:
		return &descriptors[GroupALU]
	case (op & 0xCB) == 0xC1:
		return &descriptors[GroupPushPop]
	case (op&0xE7) == 0xC0 || (op&0xEF) == 0xC9:
		return &descriptors[GroupRET]
	case (op & 0xC7) == 0xC7:
		return &descriptors[GroupRST]
	case op == 0xC3 || (op&0xE7) == 0xC2:
		return &descriptors[GroupJP]
	case op == 0xCD || (op&0xE7) == 0xC4:
		return &descriptors[GroupCALL]
	case op == 0xE8:
		return &descriptors[GroupADDSPn]
	case (op & 0xEF) == 0xEA:
		return &descriptors[GroupLDnnA]
	case (op&0xEF) == 0xE0 || (op&0xEF) == 0xE2:
		return &descriptors[GroupLDH]
	case op == 0xF8:
		return &descriptors[GroupLDHLSPn]
	case (op & 0xEF) == 0xE9:
		return &descriptors[GroupJPHL]
	case (op & 0xF7) == 0xF3:
		return &descriptors[GroupDIEI]
	case op == 0xCB:
		return &descriptors[GroupCBPrefix]
	case unusedOpcodes[op]:
		return &descriptors[GroupUnused]
	default:
		return &descriptors[GroupMissing]
	}
}
