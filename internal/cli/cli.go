// Package cli parses the alkaris command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

type Command string

const (
	CommandRun      Command = "run"
	CommandStatus   Command = "status"
	CommandStop     Command = "stop"
	CommandGesture  Command = "gesture"
	CommandVariants Command = "variants"
	CommandMatch    Command = "match"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// arity is the number of positional arguments each command accepts:
// min and max, with max -1 for unbounded.
var arity = map[Command][2]int{
	CommandRun:      {0, 0},
	CommandStatus:   {0, 0},
	CommandStop:     {0, 0},
	CommandGesture:  {1, 1},
	CommandVariants: {0, 1},
	CommandMatch:    {1, -1},
	CommandDevices:  {0, 0},
	CommandDoctor:   {0, 0},
	CommandVersion:  {0, 0},
	CommandHelp:     {0, 0},
}

// ErrUsage marks errors caused by a malformed command line.
var ErrUsage = errors.New("usage error")

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	EnvFile    string
	Verbose    bool
	ShowHelp   bool
}

// Parse reads flags and the command. Flags may appear anywhere.
func Parse(args []string) (Parsed, error) {
	var parsed Parsed
	var showVersion bool

	fs := pflag.NewFlagSet("alkaris", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&parsed.ConfigPath, "config", "c", "", "config file path")
	fs.StringVarP(&parsed.EnvFile, "env", "e", "", "dotenv file with API keys")
	fs.BoolVarP(&parsed.Verbose, "verbose", "v", false, "debug logging on the console")
	fs.BoolVarP(&parsed.ShowHelp, "help", "h", false, "show help")
	fs.BoolVar(&showVersion, "version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return Parsed{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	switch {
	case parsed.ShowHelp:
		parsed.Command = CommandHelp
		return parsed, nil
	case showVersion:
		parsed.Command = CommandVersion
		return parsed, nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		return parsed, nil
	}

	cmd := Command(rest[0])
	bounds, ok := arity[cmd]
	if !ok {
		return Parsed{}, fmt.Errorf("%w: unknown command: %s", ErrUsage, rest[0])
	}
	parsed.Command = cmd
	parsed.ShowHelp = cmd == CommandHelp
	parsed.Args = rest[1:]

	n := len(parsed.Args)
	if n < bounds[0] {
		return Parsed{}, fmt.Errorf("%w: %s requires an argument", ErrUsage, cmd)
	}
	if bounds[1] >= 0 && n > bounds[1] {
		return Parsed{}, fmt.Errorf("%w: unexpected arguments after command %q", ErrUsage, cmd)
	}
	return parsed, nil
}

// Text joins the positional arguments, as `match` takes free text.
func (p Parsed) Text() string {
	return strings.TrimSpace(strings.Join(p.Args, " "))
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--env FILE] [--verbose] <command>

Commands:
  run             Start the voice assistant
  status          Print the running assistant's state
  stop            Stop the running assistant
  gesture NAME    Forward a detected gesture frame to the running assistant
  variants [NAME] Print wake-word variants for NAME (default: current name)
  match TEXT      Show how TEXT would be matched and routed
  devices         List audio input devices
  doctor          Run configuration and environment checks
  version         Print version information
  help            Show this help

Flags:
  -c, --config PATH   Config file path (default: $XDG_CONFIG_HOME/alkaris/config.jsonc)
  -e, --env FILE      Load API keys from a dotenv file
  -v, --verbose       Debug logging on the console
  -h, --help          Show help
      --version       Show version
`, binaryName)
}
