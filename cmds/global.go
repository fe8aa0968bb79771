package cmds

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// GlobalExecutor is the process-wide command registry that Define, Execute,
// and the Var/Switch/Collect helpers operate on.
var GlobalExecutor = NewExecutor()

func Define(name string, command *Command) {
	GlobalExecutor.Define(name, command)
}

func Execute(args []string) error {
	return GlobalExecutor.Execute(args)
}

func MustExecute(args []string) {
	GlobalExecutor.MustExecute(args)
}

// PrintUsage writes the registered commands, grouped by sub-command nesting,
// to stdout.
func (p *Executor) PrintUsage() {
	p.printUsage(os.Stdout, p.commands, "")
}

func (p *Executor) printUsage(w io.Writer, commands map[string]*Command, prefix string) {
	seen := make(map[*Command]bool, len(commands))
	names := make([]string, 0, len(commands))
	for name, cmd := range commands {
		if cmd == nil || seen[cmd] {
			continue
		}
		seen[cmd] = true
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(w, "%s%s\t%s\n", prefix, name, cmd.Description)
		if len(cmd.Subs) > 0 {
			p.printUsage(w, cmd.Subs, prefix+"  ")
		}
	}
}
