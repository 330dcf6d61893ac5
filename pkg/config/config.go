// Package config carries the CLI-surfaced compilation knobs (spec.md §6)
// through the driver. Optimization level, include paths, and defines are
// accepted and recorded but unused by the core, per spec.md §1's scope.
package config

// Config is the set of options parsed from the command line and threaded
// into the driver. It carries no feature/dialect switches — unlike the
// teacher's B-dialect Config, the C-subset grammar in this spec has no
// alternate standards to gate.
type Config struct {
	// OutputPath is the -o destination (default "a.coil").
	OutputPath string
	// OptLevel is the -O<0..3> optimization level. Recorded, unused.
	OptLevel int
	// IncludePaths are -I directories. Parsed, unused (no preprocessor).
	IncludePaths []string
	// Defines are -D name[=value] macro defines. Parsed, unused.
	Defines map[string]string
	// Verbose is the number of times -v was given. 0 is silent, 1 prints
	// stage progress, 2 additionally dumps the AST/IR object.
	Verbose int
}

// New returns a Config with the spec.md §6 defaults.
func New() *Config {
	return &Config{
		OutputPath: "a.coil",
		OptLevel:   0,
		Defines:    make(map[string]string),
	}
}
