package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ImportCommand parses an exported CSV and upsert its trips.
type ImportCommand struct {
	Args struct {
		File string `positional-arg-name:"FILE" description:"Path to the exported CSV file"`
	} `positional-args:"yes" required:"yes"`

	KeepUnits bool `long:"keep-units" description:"Don't align the display unit preference with the detected dialect"`

	globals *GlobalFlags
	version string
}

// ListCommand lists trips matching the persisted filters plus overrides.
type ListCommand struct {
	Search string `long:"search" description:"Case-insensitive substring match against notes and tags"`
	From   string `long:"from" description:"Start of date range (YYYY-MM-DD, needs --to)"`
	To     string `long:"to" description:"End of date range (YYYY-MM-DD, needs --from)"`
	Limit  int    `long:"limit" description:"Maximum rows to print (0 = all)" default:"0"`

	globals *GlobalFlags
	version string
}

// StatsCommand prints aggregate cards and regression trendlines.
type StatsCommand struct {
	All bool `long:"all" description:"Ignore the persisted filters and use every trip"`

	globals *GlobalFlags
	version string
}

// EnrichCommand runs one temperature-backfill pass.
type EnrichCommand struct {
	Throttle int `long:"throttle" description:"Override delay between lookups in milliseconds" default:"-1"`

	globals *GlobalFlags
	version string
}

// NoteCommand edits the notes and tags of a single trip.
type NoteCommand struct {
	Key   string   `long:"key" description:"Trip start key, e.g. '2026-02-19, 15:05' (required)"`
	Notes string   `long:"notes" description:"Free-text notes"`
	Tags  []string `long:"tag" description:"Tag to attach (repeatable; replaces the existing set)"`

	globals *GlobalFlags
	version string
}

// FilterCommand shows, sets, or resets the persisted filter spec.
type FilterCommand struct {
	Reset bool `long:"reset" description:"Reset all filters to defaults"`

	From string `long:"from" description:"Start of date range (YYYY-MM-DD)"`
	To   string `long:"to" description:"End of date range (YYYY-MM-DD)"`

	MinDistance   *float64 `long:"min-distance" description:"Minimum distance (display units)"`
	MaxDistance   *float64 `long:"max-distance" description:"Maximum distance (display units)"`
	MinTemp       *float64 `long:"min-temp" description:"Minimum temperature (display units)"`
	MaxTemp       *float64 `long:"max-temp" description:"Maximum temperature (display units)"`
	MinEfficiency *float64 `long:"min-efficiency" description:"Minimum efficiency (display units)"`
	MaxEfficiency *float64 `long:"max-efficiency" description:"Maximum efficiency (display units)"`

	Search      string   `long:"search" description:"Substring search over notes and tags"`
	ExcludeTags []string `long:"exclude-tag" description:"Exclude trips carrying this tag (repeatable; replaces the set)"`

	globals *GlobalFlags
	version string
}

// StatusCommand reports trip counts, date range, enrichment progress.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}
