// Command dmgcpu loads a flat binary at a given address and runs the
// LR35902 core against it, optionally dropping into the interactive debug
// console on breakpoints or a fixed step interval.
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/urfave/cli.v2"

	"dmgcpu/cpu"
	"dmgcpu/debug"
	"dmgcpu/ioreg"
	"dmgcpu/mem"
)

// machine wires a CPU to a FlatBus and an ioreg.File, and is the MachineRef
// the core's debug console can call back into for a frame render or a
// synthetic debug interrupt.
type machine struct {
	cpu *cpu.CPU
	bus *mem.FlatBus
	io  *ioreg.File
}

func (m *machine) RenderAndVBlank() {
	m.io.IF |= byte(ioreg.VBlank)
}

func (m *machine) DebugInterrupt() {
	m.io.IF |= byte(ioreg.LCDStat)
}

func main() {
	app := &cli.App{
		Name:    "dmgcpu",
		Usage:   "run a flat Game Boy binary against the LR35902 core",
		Version: "v0.0.1",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rom",
				Aliases: []string{"r"},
				Usage:   "path to a flat binary to load at 0x0100",
			},
			&cli.StringFlag{
				Name:  "break",
				Usage: "comma-separated hex addresses to install print breakpoints at",
			},
			&cli.IntFlag{
				Name:  "step",
				Usage: "periodic break every N instructions (0 disables)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable per-instruction tracing",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "use the legacy single-keypress debug console instead of the command line",
			},
		},
		Action: run,
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		cli.ShowAppHelp(c)
		return cli.Exit("", 86)
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading rom: %v", err), 1)
	}

	bus := &mem.FlatBus{}
	if err := bus.LoadProgram(rom, 0x0100); err != nil {
		return cli.Exit(fmt.Sprintf("loading rom: %v", err), 1)
	}

	io := &ioreg.File{}
	core := cpu.New(bus, io)
	core.Verbose = c.Bool("verbose")

	m := &machine{cpu: core, bus: bus, io: io}
	core.Machine = m

	if err := installBreakpoints(core, c.String("break")); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	core.StepPeriod = c.Int("step")
	core.StepRemaining = core.StepPeriod

	console := &debug.Console{Compact: c.Bool("compact")}
	core.Console = console

	for core.Running {
		core.Step()
	}
	return nil
}

func installBreakpoints(core *cpu.CPU, list string) error {
	if list == "" {
		return nil
	}
	for _, tok := range splitNonEmpty(list, ',') {
		addr, err := strconv.ParseUint(tok, 16, 16)
		if err != nil {
			return fmt.Errorf("bad breakpoint address %q: %w", tok, err)
		}
		core.Breakpoints[uint16(addr)] = cpu.Breakpoint{Action: cpu.ActionPrint, BreakOnSteps: 1}
	}
	return nil
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
