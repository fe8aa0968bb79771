// Command brains runs one or more tape-machine source files in
// sequence, compiling and executing each to completion before moving
// on to the next.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/reusee/dscope"
	"github.com/tapeforge/brains/cmds"
	"github.com/tapeforge/brains/configs"
	"github.com/tapeforge/brains/debugs"
	"github.com/tapeforge/brains/driver"
	"github.com/tapeforge/brains/logs"
	"github.com/tapeforge/brains/machine"
	"github.com/tapeforge/brains/modes"
)

const usage = "usage: brains [-q N | -Q N] [-config PATH] [-debug-interactive] [-log-LEVEL] file ..."

func main() {
	quantum, threadFair, haveQuantum, configPath, interactive, files, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	if configPath == "" {
		configPath = os.Getenv("BRAINS_CONFIG")
	}
	settings, err := configs.LoadSettings(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !haveQuantum {
		quantum = settings.Quantum
	} else if threadFair {
		settings.Schedule = "thread-fair"
	} else {
		settings.Schedule = "process-fair"
	}
	if interactive {
		settings.Debug = "interactive"
	}

	cfg := driver.Config{
		ThreadFair:  settings.Schedule == "thread-fair",
		Quantum:     quantum,
		Infanticide: settings.Infanticide,
		Debug:       machine.ParseDebugLevel(settings.Debug),
		Seed:        uint64(os.Getpid()),
	}

	scope := dscope.New(
		new(logs.Module),
		new(debugs.Module),
		modes.ForProduction(),
	)

	scope.Call(func(
		logger logs.Logger,
		tap debugs.Tap,
	) {
		// per spec.md §6, per-file compile failures are reported and
		// skipped; they never change the exit code.
		driver.Run(logger, tap, cfg, files, os.Stdout, os.Stderr)
	})

	os.Exit(0)
}

// parseArgs implements the CLI surface from spec.md §6: -q/-Q take a
// quantum, attached (-q10) or as the following argument (-q 10);
// -config and -debug-interactive are handled here directly; -log-*
// tokens are delegated to the cmds registry (the level switches). Any
// other leading-dash token is an unsupported option. Anything else is a
// positional file path. Errors are returned for an unsupported option,
// a missing or non-numeric quantum, a -config without a path, and a
// failing -log-* command.
func parseArgs(args []string) (quantum int, threadFair, haveQuantum bool, configPath string, interactive bool, files []string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-q" || arg == "-Q":
			threadFair = arg == "-Q"
			haveQuantum = true
			i++
			if i >= len(args) {
				return 0, false, false, "", false, nil, fmt.Errorf("%s requires a quantum", arg)
			}
			quantum, err = strconv.Atoi(args[i])
			if err != nil {
				return 0, false, false, "", false, nil, fmt.Errorf("%s: %w", arg, err)
			}

		case strings.HasPrefix(arg, "-q") || strings.HasPrefix(arg, "-Q"):
			threadFair = strings.HasPrefix(arg, "-Q")
			haveQuantum = true
			quantum, err = strconv.Atoi(arg[2:])
			if err != nil {
				return 0, false, false, "", false, nil, fmt.Errorf("%s: %w", arg, err)
			}

		case arg == "-config":
			i++
			if i >= len(args) {
				return 0, false, false, "", false, nil, fmt.Errorf("-config requires a path")
			}
			configPath = args[i]

		case arg == "-debug-interactive":
			interactive = true

		case strings.HasPrefix(arg, "-log-"):
			if execErr := cmds.Execute([]string{arg}); execErr != nil {
				return 0, false, false, "", false, nil, execErr
			}

		case strings.HasPrefix(arg, "-"):
			return 0, false, false, "", false, nil, fmt.Errorf("unsupported option: %s", arg)

		default:
			files = append(files, arg)
		}
	}
	return quantum, threadFair, haveQuantum, configPath, interactive, files, nil
}
