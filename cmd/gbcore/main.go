// Command gbcore runs a ROM headless through the CPU core.
//
//	gbcore [flags] <rom-path>
//
// Exit codes: 0 clean exit, 1 ROM missing/unreadable, 2 invalid ROM image,
// 3 fatal invalid opcode.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/jmallinger/gbcore/internal/cart"
	"github.com/jmallinger/gbcore/internal/cpu"
	"github.com/jmallinger/gbcore/internal/emu"
)

func main() {
	steps := flag.Int("steps", 5_000_000, "max CPU instructions to run")
	startPC := flag.Int("pc", 0x0100, "initial PC value")
	trace := flag.Bool("trace", false, "print PC/opcode/registers per step")
	until := flag.String("until", "", "stop when serial output contains this substring (case-insensitive)")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s); 0 disables")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gbcore [flags] <rom-path>")
		os.Exit(1)
	}
	romPath := flag.Arg(0)

	c, err := cart.New(romPath)
	if err != nil {
		if errors.Is(err, cart.ErrROMTooSmall) {
			glog.Errorf("invalid ROM: %v", err)
			os.Exit(2)
		}
		glog.Errorf("load ROM: %v", err)
		os.Exit(1)
	}

	m := emu.New()
	m.LoadCartridge(c)
	m.CPU().SetPC(uint16(*startPC))

	// Stream serial to stdout and capture for pattern detection.
	var ser bytes.Buffer
	w := io.Writer(os.Stdout)
	if *until != "" {
		w = io.MultiWriter(os.Stdout, &ser)
	}
	m.SetSerialWriter(w)

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}

	var cycles int
	for i := 0; i < *steps; i++ {
		pc := m.CPU().PC
		var op byte
		if *trace {
			op = m.Bus().Read(pc)
		}
		n, err := m.CPU().Step()
		cycles += n
		if err != nil {
			var inv *cpu.InvalidOpcodeError
			if errors.As(err, &inv) {
				glog.Errorf("emulation halted: %v", inv)
				os.Exit(3)
			}
			glog.Errorf("emulation halted: %v", err)
			os.Exit(3)
		}
		if *trace {
			cp := m.CPU()
			fmt.Printf("PC=%04X op=%02X cyc=%d A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t\n",
				pc, op, n, cp.A, cp.F, cp.B, cp.C, cp.D, cp.E, cp.H, cp.L, cp.SP, cp.IME)
		}
		if *until != "" && strings.Contains(strings.ToLower(ser.String()), strings.ToLower(*until)) {
			fmt.Printf("\nDetected %q in serial output.\n", *until)
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			break
		}
	}
	fmt.Printf("\nDone: cycles=%d elapsed=%s\n", cycles, time.Since(start).Truncate(time.Millisecond))
}
