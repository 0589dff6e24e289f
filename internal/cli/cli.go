package cli

import (
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	List   *ListCommand
	Watch  *WatchCommand
	Export *ExportCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string, out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "attendctl"
	parser.LongDescription = "Query attendance pages, watch live metrics and export reports from the HRIS attendance API."

	base := baseCommand{globals: &globals, version: version, out: out}
	cmds := &commands{
		List:   &ListCommand{baseCommand: base},
		Watch:  &WatchCommand{baseCommand: base},
		Export: &ExportCommand{baseCommand: base},
	}

	parser.AddCommand("list", "Fetch one page of a screen", "Build the page request of a screen from filters and fetch it once.", cmds.List)
	parser.AddCommand("watch", "Poll live metrics", "Poll the metrics endpoint of a screen and print every changed snapshot.", cmds.Watch)
	parser.AddCommand("export", "Download a report", "Export a report for the given filters and save it to a directory.", cmds.Export)

	return parser, &globals, cmds
}

// Run is the main entry point for the attendctl CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	return runWithOutput(version, args, os.Stdout)
}

func runWithOutput(version string, args []string, out io.Writer) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Fprintf(out, "attendctl %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version, out)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
