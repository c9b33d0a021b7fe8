package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vireo-gfx/vireo"
	"github.com/vireo-gfx/vireo/cmdbuf"
	"github.com/vireo-gfx/vireo/engine"
	"github.com/vireo-gfx/vireo/executor"
	"github.com/vireo-gfx/vireo/module"
)

func main() {
	var (
		modFile     = flag.String("module", "", "Path to animation module file")
		frames      = flag.Int("frames", 1, "Number of frames to run")
		dt          = flag.Float64("dt", 1.0/60, "Time step per frame in seconds")
		width       = flag.Uint("width", 640, "Viewport width")
		height      = flag.Uint("height", 480, "Viewport height")
		capsStr     = flag.String("caps", "all", "Enabled capability groups (all, core, or render,compute,texture,wasm,pool)")
		embedded    = flag.Bool("embedded", false, "Run the module's embedded executor under wasm")
		list        = flag.Bool("list", false, "Disassemble the module and exit")
		verbose     = flag.Bool("v", false, "Verbose executor logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *modFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: vireo-run -module <file.vanm> [-frames N] [-caps groups]")
		fmt.Fprintln(os.Stderr, "       vireo-run -module <file.vanm> -list")
		fmt.Fprintln(os.Stderr, "       vireo-run -module <file.vanm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*modFile, *capsStr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	err := run(*modFile, *frames, float32(*dt), uint32(*width), uint32(*height),
		*capsStr, *embedded, *list, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseCaps(s string) (module.CapSet, error) {
	switch s {
	case "", "all":
		return module.CapSetAll, nil
	case "core":
		return module.CapSetCore, nil
	}
	var caps module.CapSet = module.CapSetCore
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(name) {
		case "render":
			caps |= module.CapSetRender
		case "compute":
			caps |= module.CapSetCompute
		case "texture":
			caps |= module.CapSetTexture
		case "wasm":
			caps |= module.CapSetWasm
		case "pool":
			caps |= module.CapSetPool
		default:
			return 0, fmt.Errorf("unknown capability group %q", name)
		}
	}
	return caps, nil
}

func run(modFile string, frames int, dt float32, width, height uint32,
	capsStr string, embedded, listOnly, verbose bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(modFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	m, err := module.Load(data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	hdr := m.Header()
	fmt.Printf("Module: %s\n", modFile)
	fmt.Printf("Version: %d\n", hdr.Version)
	fmt.Printf("Bytecode: %d bytes\n", len(m.Bytecode()))
	fmt.Printf("String table: %d bytes\n", len(m.StringTable()))
	fmt.Printf("Data section: %d bytes\n", len(m.Data()))
	if hdr.HasEmbeddedExecutor() {
		fmt.Printf("Embedded executor: %d bytes\n", len(m.ExecutorBlob()))
	}

	if listOnly {
		fmt.Printf("\n%s", module.Disassemble(m.Bytecode()))
		return nil
	}

	caps, err := parseCaps(capsStr)
	if err != nil {
		return err
	}

	var session vireo.Session
	if embedded {
		if !hdr.HasEmbeddedExecutor() {
			return fmt.Errorf("module carries no embedded executor")
		}
		eng, err := engine.New(ctx, engine.Config{})
		if err != nil {
			return fmt.Errorf("create engine: %w", err)
		}
		defer eng.Close(ctx)
		inst, err := eng.NewSessionFromModule(ctx, m)
		if err != nil {
			return fmt.Errorf("instantiate executor: %w", err)
		}
		defer inst.Close(ctx)
		session = inst
	} else {
		log := zap.NewNop()
		if verbose {
			log, err = zap.NewDevelopment()
			if err != nil {
				return err
			}
		}
		exec := executor.New(executor.Config{Caps: caps, Logger: log})
		if st := exec.LoadModule(data); st != vireo.StatusOK {
			return fmt.Errorf("load module: %s", st)
		}
		session = exec
	}

	if st := session.Init(ctx); st != vireo.StatusOK {
		return fmt.Errorf("init: %s", st)
	}
	fmt.Printf("\nInit: %d commands\n", dumpCommands(session))

	for i := 0; i < frames; i++ {
		t := float32(i) * dt
		if st := session.Frame(ctx, t, width, height); st != vireo.StatusOK {
			return fmt.Errorf("frame %d: %s", i, st)
		}
		fmt.Printf("\nFrame %d (t=%.4f): %d commands\n", i, t, dumpCommands(session))
	}

	return nil
}

// dumpCommands decodes and prints the session's current command buffer,
// returning the command count.
func dumpCommands(s vireo.Session) int {
	raw, err := s.Memory().Read(s.CommandPtr(), s.CommandLen())
	if err != nil {
		fmt.Printf("  <command buffer unreadable: %v>\n", err)
		return 0
	}
	buf, err := cmdbuf.Decode(raw)
	if err != nil {
		fmt.Printf("  <malformed command buffer: %v>\n", err)
		return 0
	}
	for _, cmd := range buf.Commands {
		if cmd.Imm != nil {
			fmt.Printf("  %-22s %+v\n", cmdbuf.CmdName(cmd.Opcode), cmd.Imm)
		} else {
			fmt.Printf("  %s\n", cmdbuf.CmdName(cmd.Opcode))
		}
	}
	if buf.Truncated() {
		fmt.Println("  <truncated>")
	}
	return len(buf.Commands)
}
