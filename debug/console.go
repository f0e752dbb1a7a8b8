// Package debug implements the CPU core's interactive break console: a
// bubbletea TUI offering the full command table (continue, step, verbose,
// breakpoint install/clear, register/memory peek, reset, quit) plus a
// legacy single-keypress stepping mode for embedded ports.
package debug

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"dmgcpu/cpu"
	"dmgcpu/ioreg"
)

// StepCounter tracks how many times the console has been entered, exposed
// for the "steps" status line and any handler that wants to key off it.
type StepCounter struct {
	Breaks int
}

// Console is the full command-table debug harness. It implements
// cpu.DebugConsole: the fetch/execute engine calls Enter every time the
// one-shot break flag or the periodic step counter fires. A breakpoint hit
// does not call Enter itself; it arms the step counter with its period.
type Console struct {
	Steps StepCounter

	// Compact switches to the legacy single-keypress stepping mode
	// instead of the tokenized command line.
	Compact bool
}

var statusStyle = lipgloss.NewStyle().Bold(true)

// Enter blocks until the user issues a command that hands control back to
// the engine (continue/step/run/quit all resume; see runCommand).
func (cons *Console) Enter(c *cpu.CPU, opcode byte) bool {
	cons.Steps.Breaks++

	m := model{c: c, opcode: opcode, compact: cons.Compact, breaks: cons.Steps.Breaks}
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		// A TUI failure here is not a CPU fault; fall back to the console
		// no-op of "continue" rather than taking the whole machine down.
		return false
	}
	final := result.(model)
	return final.quitMachine
}

type model struct {
	c       *cpu.CPU
	opcode  byte
	compact bool
	breaks  int

	input   string
	history []string
	lastErr error

	quitMachine bool
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.compact {
		return m.updateCompact(keyMsg)
	}
	return m.updateCommandLine(keyMsg)
}

// updateCompact implements the legacy single-keypress prompt: Enter resumes
// (continue), 1-9 arm a 2^n-step period and resume, V toggles verbose, R
// clears verbose and resumes, Q quits.
func (m model) updateCompact(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		m.c.StepPeriod = 0
		return m, tea.Quit
	}
	switch msg.String() {
	case "v", "V":
		m.c.Verbose = !m.c.Verbose
		return m, nil
	case "r", "R":
		m.c.Verbose = false
		m.c.StepPeriod = 0
		return m, tea.Quit
	case "q", "Q":
		m.quitMachine = true
		return m, tea.Quit
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n := 1 << uint(msg.String()[0]-'0')
		m.c.StepPeriod = n
		m.c.StepRemaining = n
		return m, tea.Quit
	}
	return m, nil
}

func (m model) updateCommandLine(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input)
		m.history = append(m.history, line)
		m.input = ""
		return m.runCommand(line)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		m.input += msg.String()
		return m, nil
	}
	return m, nil
}

// runCommand dispatches one parsed command line. Commands that resume
// return tea.Quit to exit the REPL; everything else redraws and stays in
// break. Empty input resumes, same as continue.
func (m model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		m.c.StepPeriod = 0
		return m, tea.Quit
	}

	m.lastErr = nil
	switch fields[0] {
	case "c", "continue":
		m.c.StepPeriod = 0
		return m, tea.Quit
	case "s", "step":
		n := 1
		if len(fields) >= 2 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				m.lastErr = fmt.Errorf("bad step count %q: %w", fields[1], err)
				return m, nil
			}
			n = v
		}
		m.c.StepPeriod = n
		m.c.StepRemaining = n
		m.c.Verbose = true
		return m, tea.Quit
	case "v", "verbose":
		m.c.Verbose = !m.c.Verbose
		return m, nil
	case "b", "break":
		if len(fields) < 2 {
			m.lastErr = fmt.Errorf("usage: break <addr>")
			return m, nil
		}
		addr, err := parseAddr(fields[1])
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		// BreakOnSteps 1 means the engine adopts single-stepping when the
		// breakpoint is hit, so the console opens on the very next step.
		m.c.Breakpoints[addr] = cpu.Breakpoint{Action: cpu.ActionPrint, BreakOnSteps: 1}
		return m, nil
	case "clear":
		m.c.Breakpoints = map[uint16]cpu.Breakpoint{}
		return m, nil
	case "r", "run":
		m.c.Verbose = false
		m.c.StepPeriod = 0
		return m, tea.Quit
	case "q", "quit", "exit":
		m.quitMachine = true
		return m, tea.Quit
	case "reset":
		m.c.Reset(false)
		m.c.BreakNow = true
		return m, nil
	case "read", "ld":
		if len(fields) < 2 {
			m.lastErr = fmt.Errorf("usage: read <addr> [len]")
			return m, nil
		}
		addr, err := parseAddr(fields[1])
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		length := 1
		if len(fields) >= 3 {
			v, err := strconv.Atoi(fields[2])
			if err != nil {
				m.lastErr = fmt.Errorf("bad length %q: %w", fields[2], err)
				return m, nil
			}
			length = v
		}
		lines, err := m.dumpBytes(addr, length)
		if err != nil {
			// A bus failure from a speculative debug read is recovered
			// locally, never escalated to OnFatal.
			m.lastErr = err
			return m, nil
		}
		m.history = append(m.history, lines...)
		return m, nil
	case "write":
		if len(fields) < 3 {
			m.lastErr = fmt.Errorf("usage: write <addr> <dec-value>")
			return m, nil
		}
		addr, err := parseAddr(fields[1])
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		v, err := strconv.Atoi(fields[2])
		if err != nil || v < 0 || v > 0xFF {
			m.lastErr = fmt.Errorf("bad byte value %q", fields[2])
			return m, nil
		}
		if err := m.c.Bus.Write8(addr, byte(v)); err != nil {
			m.lastErr = err
		}
		return m, nil
	case "vblank":
		if m.c.Machine != nil {
			m.c.Machine.RenderAndVBlank()
		}
		return m, nil
	case "debug":
		if m.c.Machine != nil {
			m.c.Machine.DebugInterrupt()
		}
		return m, nil
	case "?", "help":
		m.history = append(m.history, helpText)
		return m, nil
	default:
		m.lastErr = fmt.Errorf("unknown command %q (? for help)", fields[0])
		return m, nil
	}
}

// dumpBytes renders length bytes starting at addr, four per line.
func (m model) dumpBytes(addr uint16, length int) ([]string, error) {
	var lines []string
	var cur []string
	lineStart := addr
	for i := 0; i < length; i++ {
		v, err := m.c.Bus.Read8(addr + uint16(i))
		if err != nil {
			return nil, err
		}
		if len(cur) == 0 {
			lineStart = addr + uint16(i)
		}
		cur = append(cur, fmt.Sprintf("%02X", v))
		if len(cur) == 4 {
			lines = append(lines, fmt.Sprintf("%04X: %s", lineStart, strings.Join(cur, " ")))
			cur = nil
		}
	}
	if len(cur) > 0 {
		lines = append(lines, fmt.Sprintf("%04X: %s", lineStart, strings.Join(cur, " ")))
	}
	return lines, nil
}

func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return uint16(v), nil
}

// View renders the pre-prompt dump: PC, opcode, decoded disassembly, full
// register dump, IF/IE/IME, and the bytes at (HL) and (SP). Speculative
// memory reads are guarded: a bus failure prints a notice instead of
// propagating.
func (m model) View() string {
	header := statusStyle.Render(fmt.Sprintf(
		"break #%d  PC=%04X op=%02X  %s",
		m.breaks, m.c.Regs.PC, m.opcode, cpu.Disassemble(m.opcode),
	))
	body := []string{header, m.c.Regs.String(), m.interruptLine(), m.peekLine()}
	if len(m.c.Breakpoints) > 0 {
		body = append(body, spew.Sdump(m.c.Breakpoints))
	}
	if m.lastErr != nil {
		body = append(body, "error: "+m.lastErr.Error())
	}
	if !m.compact {
		body = append(body, "> "+m.input)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body...)
}

func (m model) interruptLine() string {
	raw, ok := m.c.IO.(ioreg.RawRegisters)
	if !ok {
		return fmt.Sprintf("IME=%t", m.c.IME)
	}
	return fmt.Sprintf("IF=%02X IE=%02X IME=%t", raw.RawIF(), raw.RawIE(), m.c.IME)
}

func (m model) peekLine() string {
	hl, err := m.c.Bus.Read8(m.c.Regs.HL())
	hlStr := fmt.Sprintf("%02X", hl)
	if err != nil {
		hlStr = "??" // speculative peek failed; notice, not a fatal bus error
	}
	sp, err := m.c.Bus.Read16(m.c.Regs.SP)
	spStr := fmt.Sprintf("%04X", sp)
	if err != nil {
		spStr = "????"
	}
	return fmt.Sprintf("(HL)=%s (SP)=%s", hlStr, spStr)
}

const helpText = `commands:
  c, continue             resume execution until the next break
  s, step [n=1]            set step period to n, enable verbose, resume
  v, verbose               toggle per-instruction tracing
  b, break <addr>          install a print breakpoint at addr
  clear                    empty the breakpoint table
  r, run                   clear verbose, set step period to 0, resume
  reset                    reset the CPU to its documented boot state
  read, ld <addr> [len=1]  dump bytes off the bus, four per line
  write <addr> <dec-value> poke a byte onto the bus
  vblank                   ask the attached Machine to render a frame
  debug                    ask the attached Machine to raise its debug interrupt
  q, quit, exit            stop the machine
  ?, help                  show this text
  (empty)                  resume, same as continue
`
