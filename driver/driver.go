// Package driver runs the top-level per-file loop spec.md §4.6
// describes: compile, execute to quiescence, and move on, without
// letting one file's compile error or runtime behavior touch the next.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/tapeforge/brains/compile"
	"github.com/tapeforge/brains/debugs"
	"github.com/tapeforge/brains/logs"
	"github.com/tapeforge/brains/machine"
	"github.com/tapeforge/brains/procs"
)

// Config bundles the run-wide settings the CLI/config layer resolved
// before the first file is touched: these never change mid-run.
type Config struct {
	ThreadFair  bool
	Quantum     int
	Infanticide bool
	Debug       machine.DebugLevel
	Seed        uint64
}

// Run compiles and executes each file in order. A compile failure is
// logged and reported to stderr, never fatal; it returns the count of
// files that failed to compile, purely for the caller's own reporting —
// the CLI always exits 0 for this case, per spec.md §6.
func Run(log logs.Logger, tap debugs.Tap, cfg Config, files []string, stdout, stderr io.Writer) int {
	failures := 0
	for _, path := range files {
		if err := runFile(log, tap, cfg, path, stdout, stderr); err != nil {
			failures++
			if log != nil {
				log.Warn("compile failed", "file", path, "error", err)
			}
			fmt.Fprintf(stderr, "%s: code not syntactically correct: %v\n", path, err)
		}
	}
	return failures
}

// fileCtx carries one file's state through the compile/init/run
// pipeline below.
type fileCtx struct {
	path   string
	log    logs.Logger
	tap    debugs.Tap
	cfg    Config
	stdout io.Writer
	stderr io.Writer

	source io.ReadCloser
	result *compile.Result
	world  *machine.World
	sched  machine.Scheduler
	disp   *machine.Dispatcher
}

func runFile(log logs.Logger, tap debugs.Tap, cfg Config, path string, stdout, stderr io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	ctx := &fileCtx{
		path:   path,
		log:    log,
		tap:    tap,
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		source: f,
	}
	defer ctx.source.Close()

	var step procs.Proc[*fileCtx] = procs.Procs[*fileCtx]{
		compileStep{},
		initStep{},
		runStep{},
	}
	for step != nil {
		step, err = step.Run(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// compileStep turns source bytes into a compile.Result. It is the only
// step whose failure aborts the pipeline and is reported to the user.
type compileStep struct{}

func (compileStep) Run(ctx *fileCtx) (procs.Proc[*fileCtx], error) {
	res, err := compile.Compile(ctx.source, ctx.path)
	if err != nil {
		return nil, err
	}
	ctx.result = res
	return nil, nil
}

// initStep builds a fresh World, the chosen Scheduler, and a
// Dispatcher, then births one process per `@`-delimited compilation
// unit, per spec.md §4.5's "one create_process per segment".
type initStep struct{}

func (initStep) Run(ctx *fileCtx) (procs.Proc[*fileCtx], error) {
	var input io.Reader = os.Stdin
	if ctx.result.Bang {
		input = ctx.result.Remainder
	}

	world := machine.NewWorld(ctx.result.Code, ctx.cfg.Infanticide, ctx.cfg.Seed, input, ctx.stdout, ctx.stderr)

	var sched machine.Scheduler
	if ctx.cfg.ThreadFair {
		sched = machine.NewThreadFair(world)
	} else {
		sched = machine.NewProcessFair(world)
	}

	ctx.world = world
	ctx.sched = sched
	ctx.disp = machine.NewDispatcher(world, sched, ctx.cfg.Debug, ctx.log, ctx.tap)

	for _, pc := range ctx.result.Starts {
		t := world.BigBang(pc)
		sched.Requeue(t)
	}
	return nil, nil
}

// runStep drives the scheduler until it reports quiescence (deadlock or
// every thread has terminated), per spec.md §4.3's deadlock-detection
// rule.
type runStep struct{}

func (runStep) Run(ctx *fileCtx) (procs.Proc[*fileCtx], error) {
	world, sched, disp := ctx.world, ctx.sched, ctx.disp
	for {
		t, ok := sched.Next()
		if !ok {
			return nil, nil
		}
		quantum := ctx.cfg.Quantum
		if quantum < 0 {
			quantum = 1 + world.Rand.IntN(128)
		}
		switch disp.Run(t, quantum) {
		case machine.Rescheduled:
			sched.Requeue(t)
		case machine.Died, machine.Slept:
			// World already finished the bookkeeping for these.
		}
	}
}
