package cpu

import "sync"

// customHandlers is the small registry of named breakpoint callbacks:
// breakpoints reference a handler by name instead of holding an
// arbitrary closure, keeping Breakpoint trivially copyable and serializable.
var (
	customHandlersMu sync.RWMutex
	customHandlers   = map[string]func(c *CPU, opcode byte){}
)

// RegisterBreakpointHandler installs a named callback that a Breakpoint with
// Action == ActionCustom can reference by HandlerName.
func RegisterBreakpointHandler(name string, fn func(c *CPU, opcode byte)) {
	customHandlersMu.Lock()
	defer customHandlersMu.Unlock()
	customHandlers[name] = fn
}

func lookupBreakpointHandler(name string) (func(c *CPU, opcode byte), bool) {
	customHandlersMu.RLock()
	defer customHandlersMu.RUnlock()
	fn, ok := customHandlers[name]
	return fn, ok
}

// fire runs a breakpoint's action against the CPU that hit it.
func (b Breakpoint) fire(c *CPU, opcode byte) {
	switch b.Action {
	case ActionPrint:
		c.logger.Printf("breakpoint hit at PC=%04X op=%02X: %s", c.Regs.PC, opcode, c.Regs.String())
	case ActionCustom:
		if fn, ok := lookupBreakpointHandler(b.HandlerName); ok {
			fn(c, opcode)
		}
	}
}

// breakTime implements the break-arming policy: a one-shot BreakNow
// flag takes priority, then a non-zero StepPeriod counts down and refills.
func (c *CPU) breakTime() bool {
	if c.BreakNow {
		c.BreakNow = false
		return true
	}
	if c.StepPeriod != 0 {
		c.StepRemaining--
		if c.StepRemaining <= 0 {
			c.StepRemaining = c.StepPeriod
			return true
		}
	}
	return false
}
