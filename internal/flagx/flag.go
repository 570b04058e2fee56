// Package flagx supports layered configuration. Each loader parses only
// the flags it owns, so the config-file path can be picked off the
// command line before the full flag set is even defined.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the arguments addressed to the given flags. A
// flag written as "-f=value" survives as a single argument; one written
// as "-f value" keeps its value argument too. Everything else is
// dropped, so the caller can hand the result to a strict flag set.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			if name, _, hasValue := strings.Cut(arg, "="); hasValue {
				if allowed[name] {
					filtered = append(filtered, arg)
				}
				continue
			}
		}

		if !allowed[arg] {
			continue
		}
		filtered = append(filtered, arg)
		// A following non-flag argument is this flag's value.
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			filtered = append(filtered, args[i])
		}
	}
	return filtered
}

// JsonConfigFlags pulls the config file path out of -c or -config,
// ignoring every other argument. Returns an empty string when neither
// flag is present.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "path to config file")
	fs.StringVar(&config, "c", "", "path to config file (short)")
	_ = fs.Parse(args)

	return config
}
