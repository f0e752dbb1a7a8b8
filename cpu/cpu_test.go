package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmgcpu/ioreg"
	"dmgcpu/mem"
)

func newTestCPU() *CPU {
	bus := &mem.FlatBus{}
	io := &ioreg.File{}
	return New(bus, io)
}

// loadProgram is a test helper that reaches through the CPU's Bus interface
// to the concrete FlatBus LoadProgram only the reference bus implements.
func loadProgram(t *testing.T, c *CPU, program []byte, offset uint16) {
	t.Helper()
	fb, ok := c.Bus.(*mem.FlatBus)
	require.True(t, ok, "test CPU must be built on a *mem.FlatBus")
	require.NoError(t, fb.LoadProgram(program, offset))
}

func TestResetEntersAt0x0100(t *testing.T) {
	c := newTestCPU()
	assert.Equal(t, uint16(0x0100), c.Regs.PC)
	assert.True(t, c.Running)
	assert.False(t, c.IME)
}

func TestNOPAdvancesPCAndConsumes4Cycles(t *testing.T) {
	c := newTestCPU()
	c.Bus.Write8(0x0100, 0x00)
	cycles := c.Step()
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0x0101), c.Regs.PC)
	assert.Equal(t, uint64(4), c.CyclesTotal)
}

func TestEIDelaysOneInstruction(t *testing.T) {
	c := newTestCPU()
	loadProgram(t, c, []byte{0xFB, 0x00, 0x00}, 0x0100) // EI; NOP; NOP
	c.Step()                                            // EI itself: IMEPending=2 -> 1
	assert.False(t, c.IME)
	c.Step() // first NOP after EI: IMEPending 1 -> 0, IME becomes true
	assert.True(t, c.IME)
}

// EI defers IME by one instruction, and the VBlank interrupt that EI
// unblocks is serviced in the very same Step call that flips IME true, not
// the following one.
func TestEIThenPendingInterruptServicesWithinTheUnblockingStep(t *testing.T) {
	c := newTestCPU()
	io := c.IO.(*ioreg.File)
	io.IE = byte(ioreg.VBlank)
	io.IF = byte(ioreg.VBlank)
	loadProgram(t, c, []byte{0xFB, 0x00}, 0x0100) // EI; NOP

	c.Step() // EI: IMEPending 2 -> 1, IME still false
	assert.False(t, c.IME)

	c.Step() // NOP runs, then IME flips true and VBlank is serviced immediately
	assert.False(t, c.IME)
	assert.False(t, c.Asleep)
	assert.Equal(t, uint16(0x40), c.Regs.PC)
	assert.Equal(t, uint16(0x0102), func() uint16 {
		v, _ := c.Bus.Read16(c.Regs.SP)
		return v
	}())
	assert.Equal(t, byte(0), io.IF)
}

// HALT entered with an interrupt pending but IME off arms the halt bug and
// puts the CPU to sleep; with nothing able to dispatch, subsequent steps are
// bare 4-cycle idle ticks that change no other state.
func TestHaltWithPendingInterruptAndIMEFalseStaysAsleep(t *testing.T) {
	c := newTestCPU()
	io := c.IO.(*ioreg.File)
	io.IE = byte(ioreg.VBlank)
	io.IF = byte(ioreg.VBlank)
	loadProgram(t, c, []byte{0x76, 0x3C}, 0x0100) // HALT; INC A

	c.Step()
	assert.True(t, c.Asleep)
	assert.Equal(t, 2, c.HaltBugSkip)
	assert.False(t, c.IME)
	assert.Equal(t, uint16(0x0101), c.Regs.PC)

	before := c.CyclesTotal
	cycles := c.Step()
	assert.Equal(t, 4, cycles)
	assert.Equal(t, before+4, c.CyclesTotal)
	assert.True(t, c.Asleep)
	assert.Equal(t, 2, c.HaltBugSkip)
	assert.Equal(t, uint16(0x0101), c.Regs.PC)
}

// TestHaltBugRepeatsFirstPostWakeFetch drives the full halt-bug sequence:
// EI's delayed enable lands during the HALT step, the pending VBlank wakes
// and dispatches in that same step, and the first byte fetched at the vector
// is then executed twice before PC advances past it.
func TestHaltBugRepeatsFirstPostWakeFetch(t *testing.T) {
	c := newTestCPU()
	io := c.IO.(*ioreg.File)
	io.IE = byte(ioreg.VBlank)
	io.IF = byte(ioreg.VBlank)
	loadProgram(t, c, []byte{0xFB, 0x76}, 0x0100) // EI; HALT
	loadProgram(t, c, []byte{0x3C, 0x3C}, 0x0040) // vector: INC A; INC A

	c.Step() // EI
	c.Step() // HALT arms the bug, then the EI countdown lands and VBlank dispatches
	assert.False(t, c.Asleep)
	assert.Equal(t, uint16(0x0040), c.Regs.PC)
	assert.Equal(t, 1, c.HaltBugSkip)

	// A boots at 0x01 (AF=0x01B0), so each INC A is seen as one step up from 1.
	c.Step() // INC A at 0x40 executes, but PC does not advance
	assert.Equal(t, byte(2), c.Regs.A)
	assert.Equal(t, uint16(0x0040), c.Regs.PC)
	assert.Equal(t, 0, c.HaltBugSkip)

	c.Step() // the same byte executes again, PC moves on
	assert.Equal(t, byte(3), c.Regs.A)
	assert.Equal(t, uint16(0x0041), c.Regs.PC)
}

func TestInterruptDispatchPushesReturnAddressAndJumps(t *testing.T) {
	c := newTestCPU()
	io := c.IO.(*ioreg.File)
	io.IE = byte(ioreg.Timer)
	io.IF = byte(ioreg.Timer)
	c.IME = true
	loadProgram(t, c, []byte{0x00}, 0x0100) // NOP
	startSP := c.Regs.SP

	// The instruction at PC still runs this step; the interrupt controller
	// dispatches only after it retires, in the same Step call, so the pushed
	// return address is the post-NOP PC and the reported cycles cover both
	// the NOP and the 20-cycle interrupt accept.
	cycles := c.Step()

	assert.Equal(t, 24, cycles)
	assert.Equal(t, uint16(0x50), c.Regs.PC)
	assert.Equal(t, startSP-2, c.Regs.SP)
	assert.False(t, c.IME)
	stacked, err := c.Bus.Read16(c.Regs.SP)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0101), stacked)
}

// TestEIThenDICollapse: EI immediately followed by DI leaves IME exactly
// where it started, because DI's countdown replaces EI's before it lands.
func TestEIThenDICollapse(t *testing.T) {
	c := newTestCPU()
	loadProgram(t, c, []byte{0xFB, 0xF3, 0x00, 0x00}, 0x0100) // EI; DI; NOP; NOP

	c.Step() // EI
	assert.False(t, c.IME)
	c.Step() // DI replaces the pending enable
	assert.False(t, c.IME)
	c.Step() // DI's countdown lands; IME stays false
	assert.False(t, c.IME)
	c.Step()
	assert.False(t, c.IME)
}

func TestInterruptDispatchClearsPendingIMEToggle(t *testing.T) {
	c := newTestCPU()
	io := c.IO.(*ioreg.File)
	io.IE = byte(ioreg.VBlank)
	io.IF = byte(ioreg.VBlank)
	c.IME = true
	loadProgram(t, c, []byte{0xF3}, 0x0100) // DI

	// DI arms a disable countdown, but the dispatch that same step both
	// clears IME and cancels the countdown outright.
	c.Step()

	assert.False(t, c.IME)
	assert.Equal(t, 0, c.IMEPending)
	assert.Equal(t, uint16(0x40), c.Regs.PC)
}

func TestInterruptPriorityOrdersVBlankFirst(t *testing.T) {
	c := newTestCPU()
	io := c.IO.(*ioreg.File)
	io.IE = byte(ioreg.VBlank) | byte(ioreg.Timer)
	io.IF = byte(ioreg.VBlank) | byte(ioreg.Timer)
	c.IME = true

	c.Step()

	assert.Equal(t, uint16(0x40), c.Regs.PC)
	assert.Equal(t, byte(ioreg.Timer), io.IF)
}

// A breakpoint hit does not itself open the console: it adopts the
// breakpoint's step period (and verbose flag), and a period of 1 then
// breaks on the very next step, with the opcode at the new PC.
func TestBreakpointAdoptsPeriodAndOpensConsoleOnce(t *testing.T) {
	c := newTestCPU()
	loadProgram(t, c, []byte{0x00, 0x00, 0x00}, 0x014F) // NOP; NOP; NOP
	c.Regs.PC = 0x014F
	c.Breakpoints[0x0150] = Breakpoint{Action: ActionNone, BreakOnSteps: 1}
	console := &recordingConsole{}
	c.Console = console

	c.Step() // 0x014F: no breakpoint, no break
	assert.Equal(t, 0, console.entries)

	c.Step() // 0x0150: breakpoint adopts period 1; instruction still runs
	assert.Equal(t, 0, console.entries)
	assert.Equal(t, 1, c.StepPeriod)
	assert.Equal(t, uint16(0x0151), c.Regs.PC)

	c.Step() // the adopted single-step period fires
	assert.Equal(t, 1, console.entries)
	assert.Equal(t, byte(0x00), console.lastOpcode)
}

func TestConsoleQuitStopsTheMachine(t *testing.T) {
	c := newTestCPU()
	c.Bus.Write8(0x0100, 0x00)
	c.BreakNow = true
	c.Console = quitConsole{}

	before := c.CyclesTotal
	c.Step()

	assert.False(t, c.Running)
	// UserQuit returns from the step without side effects on cycles_total.
	assert.Equal(t, before, c.CyclesTotal)
}

type quitConsole struct{}

func (quitConsole) Enter(c *CPU, opcode byte) bool { return true }

type recordingConsole struct {
	entries    int
	lastOpcode byte
}

func (r *recordingConsole) Enter(c *CPU, opcode byte) bool {
	r.entries++
	r.lastOpcode = opcode
	c.StepPeriod = 0 // continue
	return false
}

func TestDecoderGroupClassification(t *testing.T) {
	assert.Equal(t, GroupLDrr, decode(0x47).Group)  // LD B,A
	assert.Equal(t, GroupHALT, decode(0x76).Group)  // HALT, not LD (HL),(HL)
	assert.Equal(t, GroupUnused, decode(0xD3).Group)
}

// TestUnusedOpcodesDecodeAsNoOps pins every documented hole in the opcode
// map to the unused group (no real instruction row may swallow one), and
// checks that executing one behaves as a plain 4-cycle no-op.
func TestUnusedOpcodesDecodeAsNoOps(t *testing.T) {
	unused := []byte{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}
	for _, op := range unused {
		assert.Equal(t, GroupUnused, decode(op).Group, "opcode %#02x", op)
	}

	c := newTestCPU()
	loadProgram(t, c, []byte{0xD3}, 0x0100)
	cycles := c.Step()
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0x0101), c.Regs.PC)
}

func TestDecoderIsTotal(t *testing.T) {
	for op := 0; op <= 0xFF; op++ {
		d := decode(byte(op))
		require.NotNil(t, d)
		if d.Group == GroupMissing {
			t.Fatalf("opcode %#02x fell through to MISSING", op)
		}
	}
}

func TestConditionalCallReachableAndTaken(t *testing.T) {
	c := newTestCPU()
	c.Regs.SetFlagZ(true)
	loadProgram(t, c, []byte{0xCC, 0x00, 0x02}, 0x0100) // CALL Z,0x0200
	cycles := c.Step()
	assert.Equal(t, 24, cycles)
	assert.Equal(t, uint16(0x0200), c.Regs.PC)
}

func TestRegisterFMaskingRoundTrip(t *testing.T) {
	c := newTestCPU()
	c.Regs.SetF(0xFF)
	assert.Equal(t, byte(0xF0), c.Regs.GetF())
}

func TestPushPopRoundTrip(t *testing.T) {
	c := newTestCPU()
	c.Regs.SetBC(0xBEEF)
	opPushPop(c, 0xC5) // PUSH BC
	c.Regs.SetBC(0)
	opPushPop(c, 0xC1) // POP BC
	assert.Equal(t, uint16(0xBEEF), c.Regs.BC())
}

func TestJPHLAndLDSPHLShareDecodeBucketButDiffer(t *testing.T) {
	assert.Equal(t, GroupJPHL, decode(0xE9).Group)
	assert.Equal(t, GroupJPHL, decode(0xF9).Group)

	c := newTestCPU()
	c.Regs.SetHL(0x1234)
	opJPHLOrLDSPHL(c, 0xE9)
	assert.Equal(t, uint16(0x1234), c.Regs.PC)

	c2 := newTestCPU()
	c2.Regs.SetHL(0x5678)
	opJPHLOrLDSPHL(c2, 0xF9)
	assert.Equal(t, uint16(0x5678), c2.Regs.SP)
}
