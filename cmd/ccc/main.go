// Command ccc is the compiler driver: read source, run the
// Lexer -> Parser -> Semantic -> CodeGen pipeline, and serialize the
// resulting IR object to the output path (spec.md §2, §6).
package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/google/uuid"

	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/cliflags"
	"github.com/ccc-lang/ccc/pkg/codegen"
	"github.com/ccc-lang/ccc/pkg/lexer"
	"github.com/ccc-lang/ccc/pkg/parser"
	"github.com/ccc-lang/ccc/pkg/semantic"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := cliflags.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cliflags.PrintUsage(os.Stderr)
		return 1
	}
	if flags.Help {
		cliflags.PrintUsage(os.Stdout)
		return 0
	}
	if len(flags.Args) == 0 {
		fmt.Fprintln(os.Stderr, "no input file specified")
		cliflags.PrintUsage(os.Stderr)
		return 1
	}
	cfg := flags.Config
	inputPath := flags.Args[0]

	// Stamped into -v progress output only: never folded into the
	// instruction stream, or two runs over identical input would stop
	// serializing to byte-identical output (spec.md §8 property 6).
	buildID := uuid.New()

	start := time.Now()
	progress := func(stage string) {
		if cfg.Verbose > 0 {
			fmt.Printf("[%s] %s\n", buildID.String()[:8], stage)
		}
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", inputPath, err)
		return 1
	}

	errors := ccerr.New()

	progress("Lexing...")
	toks := lexer.New(string(source), inputPath, errors).Tokenize()
	if errors.HasErrors() {
		return report(errors)
	}

	progress("Parsing...")
	prog := parser.Parse(toks, errors)
	if errors.HasErrors() {
		return report(errors)
	}
	if cfg.Verbose > 1 {
		godump.Dump(prog)
	}

	progress("Type checking...")
	semantic.Analyze(prog, errors)
	if errors.HasErrors() {
		return report(errors)
	}

	progress("Generating code...")
	obj := codegen.Generate(prog, errors)
	if errors.HasErrors() {
		return report(errors)
	}
	if cfg.Verbose > 1 {
		godump.Dump(obj)
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cfg.OutputPath, err)
		return 1
	}
	defer out.Close()

	var counted countingWriter
	if err := obj.Serialize(&multiWriter{out, &counted}); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cfg.OutputPath, err)
		return 1
	}

	if errors.WarningCount() > 0 {
		errors.Print(os.Stderr)
	}

	if cfg.Verbose > 0 {
		elapsed := time.Since(start)
		lines := bytes.Count(source, []byte{'\n'})
		if len(source) > 0 && source[len(source)-1] != '\n' {
			lines++
		}
		fmt.Printf("compiled %s lines, %s in %s\n",
			humanize.Comma(int64(lines)), humanize.Bytes(uint64(counted.n)), elapsed)
	}
	return 0
}

func report(errors *ccerr.Sink) int {
	errors.Print(os.Stderr)
	return 1
}

// countingWriter tallies bytes written, for the -v summary line.
type countingWriter struct{ n int }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

// multiWriter fans a single Write out to both the real output file and
// the byte counter, avoiding a second full Serialize pass just to learn
// the output size.
type multiWriter struct {
	a *os.File
	b *countingWriter
}

func (m *multiWriter) Write(p []byte) (int, error) {
	if _, err := m.b.Write(p); err != nil {
		return 0, err
	}
	return m.a.Write(p)
}
