// Command ccctest is a golden-file regression runner for cmd/ccc: it
// compiles every fixture matching -test-files with a built ccc binary,
// hashes the emitted IR object, and compares against a recorded golden
// result, diffing with go-cmp on mismatch. Modeled on the teacher's
// cmd/gtest, reduced to this compiler's single-binary, single-file-per-
// test shape (no reference-compiler comparison, since there is no
// second C-subset compiler to diff against).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

const (
	cRed   = "\x1b[91m"
	cGreen = "\x1b[92m"
	cCyan  = "\x1b[96m"
	cNone  = "\x1b[0m"
)

// Execution is one recorded run of the target binary: its observable
// behavior, not its full IR object (that is compared by hash only, since
// the object has no public decoder — only a serializer, per pkg/ir).
type Execution struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exitCode"`
	ObjectHash string `json:"objectHash"`
}

var (
	targetCompiler = flag.String("target-compiler", "./ccc", "Path to the ccc binary under test.")
	testFiles      = flag.String("test-files", "testdata/*.c", "Glob pattern for fixture source files.")
	goldenDir      = flag.String("golden-dir", "testdata/golden", "Directory holding recorded golden results.")
	generateGolden = flag.Bool("generate-golden", false, "Record golden results for every matched fixture instead of checking them.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each compiler invocation.")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	matches, err := filepath.Glob(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s bad -test-files pattern: %v\n", cRed, cNone, err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		log.Fatalf("%s[ERROR]%s no fixtures matched %q\n", cRed, cNone, *testFiles)
	}

	if *generateGolden {
		for _, f := range matches {
			generate(f)
		}
		return
	}

	failures := 0
	for _, f := range matches {
		if err := check(f); err != nil {
			fmt.Printf("%s[FAIL]%s %s: %v\n", cRed, cNone, f, err)
			failures++
			continue
		}
		fmt.Printf("%s[PASS]%s %s\n", cGreen, cNone, f)
	}
	if failures > 0 {
		fmt.Printf("%s%d/%d fixtures failed%s\n", cRed, failures, len(matches), cNone)
		os.Exit(1)
	}
	fmt.Printf("%sall %d fixtures passed%s\n", cCyan, len(matches), cNone)
}

func goldenPath(source string) string {
	return filepath.Join(*goldenDir, filepath.Base(source)+".golden.json")
}

func generate(source string) {
	execResult, objPath, err := run(source)
	if err == nil {
		defer os.Remove(objPath)
	}
	if err != nil {
		log.Fatalf("%s[ERROR]%s %s: %v\n", cRed, cNone, source, err)
	}
	if err := os.MkdirAll(*goldenDir, 0o755); err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	data, err := json.MarshalIndent(execResult, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if err := os.WriteFile(goldenPath(source), data, 0o644); err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	fmt.Printf("%s[GOLDEN]%s recorded %s\n", cCyan, cNone, goldenPath(source))
}

func check(source string) error {
	got, objPath, runErr := run(source)
	if objPath != "" {
		defer os.Remove(objPath)
	}

	goldenData, err := os.ReadFile(goldenPath(source))
	if err != nil {
		return fmt.Errorf("no golden file (run with -generate-golden first): %w", err)
	}
	var want Execution
	if err := json.Unmarshal(goldenData, &want); err != nil {
		return fmt.Errorf("corrupt golden file: %w", err)
	}
	if runErr != nil && want.ExitCode == 0 {
		return runErr
	}

	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	return nil
}

// run invokes the compiler under test on source, returning its recorded
// behavior and the path of the IR object it produced (caller's to clean
// up), or an error if the process could not be started or timed out.
func run(source string) (Execution, string, error) {
	objPath, err := tempObjectPath()
	if err != nil {
		return Execution{}, "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, *targetCompiler, "-o", objPath, source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		if ee, ok := runErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			return Execution{}, objPath, fmt.Errorf("running %s: %w", *targetCompiler, runErr)
		}
	}

	hash, hashErr := hashFile(objPath)
	if hashErr != nil && exitCode == 0 {
		return Execution{}, objPath, fmt.Errorf("reading object output: %w", hashErr)
	}

	return Execution{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   exitCode,
		ObjectHash: hash,
	}, objPath, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func tempObjectPath() (string, error) {
	f, err := os.CreateTemp("", "ccctest-*.coil")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	return path, nil
}
