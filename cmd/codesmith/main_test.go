package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestRunInteractive(t *testing.T) {
	t.Run("runs each non-empty line until exit", func(t *testing.T) {
		var got []string
		in := strings.NewReader("add two numbers\n\n   \nreverse a string  \nexit\nnever reached\n")
		var out bytes.Buffer

		err := runInteractive(context.Background(), in, &out, func(_ context.Context, req string) error {
			got = append(got, req)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"add two numbers", "reverse a string"}, got)
		assert.Contains(t, out.String(), prompt)
		assert.Contains(t, out.String(), "Exiting codesmith.")
	})

	t.Run("failures do not end the session", func(t *testing.T) {
		calls := 0
		var out bytes.Buffer
		err := runInteractive(context.Background(), strings.NewReader("one\ntwo\n"), &out, func(context.Context, string) error {
			calls++
			return errors.New("QA failed")
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls, "EOF ends the session")
		assert.Equal(t, 2, strings.Count(out.String(), "Error: QA failed"))
	})

	t.Run("cancelled context stops prompting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := runInteractive(ctx, strings.NewReader("one\ntwo\nthree\n"), new(bytes.Buffer), func(context.Context, string) error {
			calls++
			cancel()
			return context.Canceled
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes crash log", func(t *testing.T) {
		var written string
		exitCode := -1
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, crashLogFile, name)
			written = string(data)
			return nil
		}
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 2, exitCode)
		assert.Contains(t, written, "panic: boom")
		assert.Contains(t, written, "goroutine")
	})

	t.Run("write failure still exits", func(t *testing.T) {
		exitCode := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only filesystem") }
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 2, exitCode)
	})

	t.Run("no panic is a no-op", func(t *testing.T) {
		osExit = func(int) { t.Fatal("exit must not be called") }
		func() {
			defer handlePanic()
		}()
	})
}
