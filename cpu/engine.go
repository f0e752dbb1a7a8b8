package cpu

import "dmgcpu/ioreg"

// Step runs exactly one unit of machine progress: a breakpoint/debug check,
// then either an idle tick (asleep) or one fetch-decode-execute cycle,
// followed unconditionally by the interrupt controller: the delayed IME
// toggle and, if it leaves IME enabled with a pending source, dispatch of
// the highest-priority interrupt within this same step. This ordering
// matters: EI's effect (and any interrupt it unblocks) becomes visible at
// the end of the instruction *after* EI, not one step later. It returns the
// number of T-states consumed. Callers drive a full frame or program by
// calling Step in a loop until Running goes false.
func (c *CPU) Step() int {
	if !c.Running {
		return 0
	}

	if c.checkBreak() {
		return 0
	}

	var cycles int
	if c.Asleep {
		c.CyclesTotal += 4
		cycles = 4
	} else {
		cycles = c.execOne()
	}

	cycles += c.serviceInterrupts()
	return cycles
}

// serviceInterrupts runs the interrupt controller's per-step work: the IME
// countdown first, then, if IME is now enabled and a source is pending,
// dispatch of the highest-priority interrupt in the same step.
// A pending source with IME off does not wake the CPU: a halted machine
// stays quiescent until an earlier EI's countdown lands and the dispatch
// path runs. Last, while awake, the halt-bug counter decays toward zero so
// the armed fetch suppression covers exactly one post-wake fetch.
func (c *CPU) serviceInterrupts() int {
	c.tickIME()

	var cycles int
	if mask := c.IO.InterruptMask(); c.IME && mask != 0 {
		cycles = c.dispatchInterrupt(mask)
	}
	if !c.Asleep && c.HaltBugSkip > 0 {
		c.HaltBugSkip--
	}
	return cycles
}

// checkBreak runs the debug prelude of a step: if the step counter or
// one-shot flag says it is break time, hand control to the attached
// console; otherwise a breakpoint registered at the current PC
// fires its action and the machine adopts its step period and verbose flag,
// so the console opens on the following step. Returns true if the console
// asked the machine to stop.
func (c *CPU) checkBreak() bool {
	if c.Console == nil {
		return false
	}
	if c.breakTime() {
		if c.Console.Enter(c, c.peekOpcode()) {
			c.Running = false
			return true
		}
		return false
	}
	if bp, ok := c.Breakpoints[c.Regs.PC]; ok {
		if bp.BreakOnSteps < 0 {
			c.fatal(&InvariantBreachError{What: "breakpoint with a negative step period"})
		}
		bp.fire(c, c.peekOpcode())
		c.StepPeriod = bp.BreakOnSteps
		c.StepRemaining = bp.BreakOnSteps
		c.Verbose = bp.VerboseInstr
	}
	return false
}

// peekOpcode reads the byte at PC for display purposes only. A bus failure
// here is recovered locally rather than treated as fatal.
func (c *CPU) peekOpcode() byte {
	op, err := c.Bus.Read8(c.Regs.PC)
	if err != nil {
		return 0
	}
	return op
}

// dispatchInterrupt services the highest-priority pending, enabled
// interrupt: the CPU wakes from halt, IME is cleared along with any pending
// EI/DI countdown, and the vector is pushed and jumped to.
func (c *CPU) dispatchInterrupt(mask byte) int {
	c.Asleep = false
	c.Stopped = false
	c.IME = false
	c.IMEPending = 0
	for _, i := range ioreg.Priority() {
		if mask&byte(i) == 0 {
			continue
		}
		cycles := c.IO.Interrupt(i, c)
		c.CyclesTotal += uint64(cycles)
		return cycles
	}
	c.fatal(&InvariantBreachError{What: "interrupt dispatch entered with an empty pending mask"})
	return 0
}

// execOne performs the ordinary fetch/decode/execute step, applying the
// halt-bug's PC-increment suppression when armed.
func (c *CPU) execOne() int {
	pc := c.Regs.PC
	op := c.fetchOpcode()
	c.CurOpcode = op
	c.LastFlags = c.Regs.GetF()

	if c.Verbose {
		c.logger.Printf("[%d] PC=%04X op=%02X %s", c.CyclesTotal, pc, op, decode(op).Name)
	}

	cycles := decode(op).Handler(c, op)
	c.CyclesTotal += uint64(cycles)

	if c.Verbose && c.Regs.GetF() != c.LastFlags {
		c.logger.Printf("flags %02X -> %02X", c.LastFlags, c.Regs.GetF())
	}
	return cycles
}

// StepOnce runs a single fetch/decode/execute cycle (or idle tick) plus
// interrupt servicing, without Step's debug prelude: it neither consults the
// break console nor fires breakpoints, so it advances the program by one
// instruction even while a break is being handled.
func (c *CPU) StepOnce() int {
	var cycles int
	if c.Asleep {
		c.CyclesTotal += 4
		cycles = 4
	} else {
		cycles = c.execOne()
	}
	cycles += c.serviceInterrupts()
	return cycles
}

// fetchOpcode reads the byte at PC. Normally it then advances PC by one;
// under an armed halt-bug it reads the same byte again on the very next
// call instead, reproducing the documented hardware glitch.
func (c *CPU) fetchOpcode() byte {
	op := c.read8(c.Regs.PC)
	if c.HaltBugSkip > 0 {
		c.HaltBugSkip--
		return op
	}
	c.Regs.PC++
	return op
}

// tickIME advances the delayed EI/DI countdown armed by EnableInterrupts
// and DisableInterrupts, flipping IME only once the countdown reaches zero.
func (c *CPU) tickIME() {
	switch {
	case c.IMEPending > 0:
		c.IMEPending--
		if c.IMEPending == 0 {
			c.IME = true
		}
	case c.IMEPending < 0:
		c.IMEPending++
		if c.IMEPending == 0 {
			c.IME = false
		}
	}
}
