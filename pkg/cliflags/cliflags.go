// Package cliflags parses and renders usage for the six flags spec.md §6
// defines: -o, -O<0..3>, -I, -D, -v (repeatable), -h/--help. It is a
// reduced form of the teacher's hand-rolled FlagSet/Value/App
// abstraction, trimmed to this compiler's flag surface.
package cliflags

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/ccc-lang/ccc/pkg/config"
)

// Flags is the parsed result of a command line: the populated Config plus
// the remaining positional arguments (the input file).
type Flags struct {
	Config *config.Config
	Args   []string
	Help   bool
}

// Parse parses arguments (normally os.Args[1:]) into a Flags.
func Parse(arguments []string) (*Flags, error) {
	cfg := config.New()
	f := &Flags{Config: cfg}

	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "-h" || arg == "--help":
			f.Help = true
		case arg == "-v":
			cfg.Verbose++
		case strings.HasPrefix(arg, "-o"):
			val, err := takeValue(arg, "-o", arguments, &i)
			if err != nil {
				return nil, err
			}
			cfg.OutputPath = val
		case strings.HasPrefix(arg, "-I"):
			val, err := takeValue(arg, "-I", arguments, &i)
			if err != nil {
				return nil, err
			}
			cfg.IncludePaths = append(cfg.IncludePaths, val)
		case strings.HasPrefix(arg, "-D"):
			val, err := takeValue(arg, "-D", arguments, &i)
			if err != nil {
				return nil, err
			}
			name, value := val, ""
			if idx := strings.IndexByte(val, '='); idx >= 0 {
				name, value = val[:idx], val[idx+1:]
			}
			cfg.Defines[name] = value
		case len(arg) == 3 && strings.HasPrefix(arg, "-O"):
			level, err := strconv.Atoi(arg[2:])
			if err != nil || level < 0 || level > 3 {
				return nil, fmt.Errorf("invalid optimization level: %s", arg)
			}
			cfg.OptLevel = level
		case strings.HasPrefix(arg, "-") && arg != "-":
			return nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			f.Args = append(f.Args, arg)
		}
	}
	return f, nil
}

// takeValue resolves a flag's value, either fused (-oa.out) or as the
// next argument (-o a.out), mirroring the teacher's shorthand-flag
// parsing in pkg/cli.
func takeValue(arg, prefix string, arguments []string, i *int) (string, error) {
	rest := arg[len(prefix):]
	if rest != "" {
		return rest, nil
	}
	if *i+1 >= len(arguments) {
		return "", fmt.Errorf("flag needs an argument: %s", prefix)
	}
	*i++
	return arguments[*i], nil
}

// PrintUsage writes a one-paragraph usage summary, its width capped to
// the detected terminal width (falling back to 80 columns), same as the
// teacher's getTerminalWidth.
func PrintUsage(w *os.File) {
	width := terminalWidth(w)
	lines := []struct{ flag, usage string }{
		{"-o <file>", "Write the IR object to <file> (default a.coil)"},
		{"-O<0..3>", "Set the optimization level (recorded, unused)"},
		{"-I <dir>", "Add a directory to the include search path"},
		{"-D <name[=value]>", "Define a preprocessor macro"},
		{"-v", "Increase verbosity (repeatable; -v -v dumps the AST/IR)"},
		{"-h, --help", "Display this information"},
	}
	maxFlag := 0
	for _, l := range lines {
		if len(l.flag) > maxFlag {
			maxFlag = len(l.flag)
		}
	}
	var sb strings.Builder
	sb.WriteString("Usage: ccc [options] <input.c>\n\nOptions\n")
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].flag < lines[j].flag })
	for _, l := range lines {
		wrapped := wrap(l.usage, width-maxFlag-4)
		fmt.Fprintf(&sb, "  %-*s  %s\n", maxFlag, l.flag, wrapped[0])
		for _, rest := range wrapped[1:] {
			fmt.Fprintf(&sb, "  %-*s  %s\n", maxFlag, "", rest)
		}
	}
	fmt.Fprint(w, sb.String())
}

func terminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 20 {
		return 80
	}
	return width
}

func wrap(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var cur strings.Builder
	for _, word := range words {
		if cur.Len()+len(word)+1 > maxWidth && cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
