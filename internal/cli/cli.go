// Package cli implements the polestar-logs command-line interface.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Import *ImportCommand
	List   *ListCommand
	Stats  *StatsCommand
	Enrich *EnrichCommand
	Note   *NoteCommand
	Filter *FilterCommand
	Status *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "polestar-logs"
	parser.LongDescription = "Local analytics store for exported EV trip logs: import, filter, and derive efficiency statistics."

	cmds := &commands{
		Import: &ImportCommand{globals: &globals, version: version},
		List:   &ListCommand{globals: &globals, version: version},
		Stats:  &StatsCommand{globals: &globals, version: version},
		Enrich: &EnrichCommand{globals: &globals, version: version},
		Note:   &NoteCommand{globals: &globals, version: version},
		Filter: &FilterCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("import", "Import an exported trip-log CSV", "Parse an exported trip-log CSV, normalize its units, and upsert the trips into the local database.", cmds.Import)
	parser.AddCommand("list", "List trips matching the active filters", "List trips matching the persisted filter spec, with optional flag overrides.", cmds.List)
	parser.AddCommand("stats", "Show dashboard aggregates and trendlines", "Show aggregate statistics, cost/CO2 models, and per-dimension regression trendlines for the filtered trip set.", cmds.Stats)
	parser.AddCommand("enrich", "Backfill missing trip temperatures", "Run one enrichment pass: look up the ambient temperature for every trip still missing one.", cmds.Enrich)
	parser.AddCommand("note", "Edit the notes and tags of a trip", "Set the free-text notes and tag set of a single trip by start key.", cmds.Note)
	parser.AddCommand("filter", "Show, set, or reset the persisted filters", "Show, set, or reset the filter spec applied by list and stats.", cmds.Filter)
	parser.AddCommand("status", "Show database statistics", "Show trip counts, date range, enrichment progress, and storage paths.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("polestar-logs %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

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
