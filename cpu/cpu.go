// Package cpu implements the Game Boy (DMG / "Z80-like" Sharp LR35902) CPU
// core: the fetch-decode-execute loop, interrupt service protocol,
// halt/stop power states, and opcode-group dispatch table.
package cpu

import (
	"fmt"
	"log"

	"dmgcpu/ioreg"
	"dmgcpu/mem"
	"dmgcpu/register"
)

// MachineRef is the CPU's non-owning back-reference to the surrounding
// Machine, used only by the debug harness (render-and-vblank, debug
// interrupt). The CPU never reaches through it during ordinary execution.
type MachineRef interface {
	RenderAndVBlank()
	DebugInterrupt()
}

// Breakpoint is installed at a PC value. Its action is an identifier into a
// small registry rather than an arbitrary closure, so the breakpoint table
// stays a plain, copyable data structure.
type Breakpoint struct {
	Action       BreakAction
	HandlerName  string // registry key, used when Action == ActionCustom
	BreakOnSteps int
	VerboseInstr bool
}

// BreakAction enumerates what a breakpoint does when hit.
type BreakAction int

const (
	ActionNone BreakAction = iota
	ActionPrint
	ActionCustom
)

// CPU is the canonical processor state plus the debug/breakpoint tables that
// the fetch/execute engine consults every step. It is created with the
// Machine, reset to documented boot values, and mutated only by the engine,
// the handlers it invokes, and the debug harness.
type CPU struct {
	Regs register.File

	Bus mem.Bus
	IO  ioreg.Registers

	// Machine is the non-owning back-reference used only by the debug
	// console (render-and-vblank, debug interrupt). May be nil outside a
	// fully wired Machine.
	Machine MachineRef

	// Console is invoked when a break condition fires. Nil means no
	// debug harness is attached and breaks are skipped entirely.
	Console DebugConsole

	CyclesTotal uint64
	CurOpcode   byte
	Running     bool
	Asleep      bool
	Stopped     bool
	HaltBugSkip int
	IME         bool
	IMEPending  int
	LastFlags   byte

	// OnStop is invoked when a STOP instruction executes, so a Machine can
	// reset its DIV-driven timer the way real hardware does. Nil is a valid
	// no-op (the timer/divider is outside this package's scope).
	OnStop func()

	// Verbose enables per-instruction tracing and flag-change logging.
	Verbose bool

	// Breakpoints maps PC to an installed Breakpoint. Order is
	// irrelevant; keys are unique.
	Breakpoints map[uint16]Breakpoint

	// StepPeriod/StepRemaining form the periodic-break counter: every
	// StepPeriod instructions the debug console is entered. StepPeriod == 0
	// disables periodic breaks; 1 single-steps.
	StepPeriod    int
	StepRemaining int

	// BreakNow is a one-shot flag consulted by breakTime and cleared on
	// use.
	BreakNow bool

	// OnFatal handles DecodeMissing/InvariantBreach conditions. The
	// default logs and calls os.Exit via log.Fatal; tests may override it
	// to make fatal conditions observable instead of terminating the
	// process.
	OnFatal func(error)

	logger *log.Logger
}

// DebugConsole is the interactive break console, implemented by the
// debug package. The CPU package only defines the contract so it never has
// to import the console's TUI dependencies.
type DebugConsole interface {
	// Enter is invoked when a break condition fires. It returns true if
	// the user quit the machine.
	Enter(c *CPU, opcode byte) (quit bool)
}

// New constructs a CPU wired to the given bus and I/O register file.
func New(bus mem.Bus, io ioreg.Registers) *CPU {
	c := &CPU{
		Bus:         bus,
		IO:          io,
		Breakpoints: map[uint16]Breakpoint{},
		logger:      log.New(log.Writer(), "cpu: ", log.Flags()),
	}
	c.OnFatal = func(err error) { c.logger.Fatal(err) }
	c.Reset(false)
	return c
}

// Reset re-initializes the CPU to documented boot values. bootROM
// selects the all-zero bootstrap entry point instead of the post-bootstrap
// defaults.
func (c *CPU) Reset(bootROM bool) {
	c.Regs.Reset(bootROM)
	c.CyclesTotal = 0
	c.CurOpcode = 0
	c.Running = true
	c.Asleep = false
	c.Stopped = false
	c.HaltBugSkip = 0
	c.IME = false
	c.IMEPending = 0
	c.LastFlags = c.Regs.GetF()
}

// EnableInterrupts arms the delayed IME-enable countdown: the toggle runs at
// the end of the current step and then again at the end of the next, so "+2"
// encodes "takes effect one full instruction later", which is how EI and DI
// behave on hardware.
func (c *CPU) EnableInterrupts() { c.IMEPending = 2 }

// DisableInterrupts arms the delayed IME-disable countdown, symmetric with
// EnableInterrupts.
func (c *CPU) DisableInterrupts() { c.IMEPending = -2 }

// PushAndJump completes an interrupt accept: decrement SP by 2, write PC to [SP]
// little-endian, set PC to vector. Returns the 8 T-states of the push;
// callers (the I/O unit) may add more to reach the documented 20-cycle
// accepted-interrupt cost.
func (c *CPU) PushAndJump(vector uint16) int {
	c.Regs.SP -= 2
	if err := c.Bus.Write16(c.Regs.SP, c.Regs.PC); err != nil {
		c.fatal(fmt.Errorf("cpu: push_and_jump: %w", err))
	}
	c.Regs.PC = vector
	return 8
}

func (c *CPU) fatal(err error) {
	if c.OnFatal != nil {
		c.OnFatal(err)
		return
	}
	c.logger.Fatal(err)
}

// String renders a single-line diagnostic dump of CPU state for logging.
func (c *CPU) String() string {
	return fmt.Sprintf(
		"%s cycles=%d op=%02X running=%t asleep=%t ime=%t ime_pending=%d halt_bug=%d",
		c.Regs.String(), c.CyclesTotal, c.CurOpcode, c.Running, c.Asleep,
		c.IME, c.IMEPending, c.HaltBugSkip,
	)
}
