package builtins

import (
	"strings"

	"github.com/spf13/pflag"
)

// reorderArgsForFlags reorders arguments so flags come before positional
// args, letting Unix-style interspersed flags like "jobs file -l" work the
// same as "jobs -l file". Ported from the teacher's command registry,
// which every builtin with its own flag set (today, just `jobs -l`)
// reuses rather than hand-rolling its own flag scanner.
func reorderArgsForFlags(fs *pflag.FlagSet, args []string) []string {
	var flags []string
	var positional []string

	i := 0
	for i < len(args) {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if strings.HasPrefix(arg, "-") && arg != "-" {
			flags = append(flags, arg)
			name := strings.TrimLeft(arg, "-")
			if idx := strings.Index(name, "="); idx >= 0 {
				i++
				continue
			}
			if f := fs.Lookup(name); f != nil {
				if f.Value.Type() == "bool" {
					i++
					continue
				}
				if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
		i++
	}

	return append(flags, positional...)
}
