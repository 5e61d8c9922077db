package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/xkilldash9x/codesmith/cmd"
	"github.com/xkilldash9x/codesmith/internal/observability"
)

const crashLogFile = "crash.log"

const prompt = "Enter your request: "

// Function variables for mocking in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		if err := cmd.Execute(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				osExit(130)
				return
			}
			osExit(1)
		}
		return
	}

	// No arguments: read requests from stdin, one per line.
	if err := runInteractive(ctx, os.Stdin, os.Stdout, generate); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading from stdin:", err)
		osExit(1)
	}
}

// generate runs a single request through a fresh command tree so flag
// state never leaks between requests.
func generate(ctx context.Context, request string) error {
	root := cmd.NewRootCommand()
	root.SetArgs([]string{"generate", request})
	return root.ExecuteContext(ctx)
}

// runInteractive prompts for requests until EOF, "exit" or "quit", or until
// ctx is cancelled. A failed request is reported and the session continues.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, run func(context.Context, string) error) error {
	scanner := bufio.NewScanner(in)
	for ctx.Err() == nil {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		if err := run(ctx, line); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Exiting codesmith.")
	return nil
}

// handlePanic writes the panic and stack trace to the crash log and exits.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	msg := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(crashLogFile, []byte(msg), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write crash log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", msg)
		osExit(2)
		return
	}
	fmt.Fprintf(os.Stderr, "codesmith crashed. Details logged to %s\n", crashLogFile)
	osExit(2)
}
