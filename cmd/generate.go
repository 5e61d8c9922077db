package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/analyzers"
	"github.com/xkilldash9x/codesmith/internal/artifact"
	"github.com/xkilldash9x/codesmith/internal/codegen"
	"github.com/xkilldash9x/codesmith/internal/config"
	"github.com/xkilldash9x/codesmith/internal/llmclient"
	"github.com/xkilldash9x/codesmith/internal/metrics"
	"github.com/xkilldash9x/codesmith/internal/observability"
	"github.com/xkilldash9x/codesmith/internal/reporting"
)

// ErrGenerationFailed is returned when a run ends without a saved artifact.
var ErrGenerationFailed = errors.New("code generation failed")

// llmFactory builds the model client for a run. Tests swap it for a mock.
type llmFactory func(ctx context.Context, cfg config.LLMRouterConfig, logger *zap.Logger, rec *metrics.Recorder) (schemas.LLMClient, error)

var defaultLLMFactory llmFactory = llmclient.NewClient

// generateOptions carries the flag values of one generate invocation.
type generateOptions struct {
	OutDir       string
	ReportPath   string
	ReportFormat string
	MetricsFile  string
	PrintCode    bool
}

func newGenerateCmd(newLLM llmFactory) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [request...]",
		Short: "Generate a source file from a natural-language request",
		Long: `Extracts structured requirements from the request, generates code, and runs
it through formatting, linting, type checking and a model review. Failed
checks are fed back for revision until the code passes or the retry budget
is spent. Passing code is saved to the output directory.`,
		Example: `  codesmith generate "a function that adds two numbers"
  codesmith generate --report run.sarif "parse a CSV file and print the column sums"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			applyGenerateFlags(cfg, opts)

			logger := observability.GetLogger()
			rec := metrics.New()

			llm, err := newLLM(ctx, cfg.LLM(), logger, rec)
			if err != nil {
				return fmt.Errorf("failed to initialize LLM client: %w", err)
			}
			defer func() {
				if cerr := llm.Close(); cerr != nil {
					logger.Warn("Failed to close LLM client", zap.Error(cerr))
				}
			}()

			_, err = runGenerate(ctx, cmd.OutOrStdout(), cfg, llm, rec, logger, strings.Join(args, " "), opts)
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "o", "", "directory for generated files (overrides output.dir)")
	cmd.Flags().StringVarP(&opts.ReportPath, "report", "r", "", "write a run report to this path ('stdout' for the terminal)")
	cmd.Flags().StringVar(&opts.ReportFormat, "format", "", "run report format: yaml, json or sarif (default: inferred from --report, then output.report_format)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
	cmd.Flags().BoolVar(&opts.PrintCode, "print", false, "print the final code to stdout")
	return cmd
}

// applyGenerateFlags copies explicit flag values over the loaded configuration.
func applyGenerateFlags(cfg config.Interface, opts generateOptions) {
	if opts.OutDir != "" {
		cfg.SetOutputDir(opts.OutDir)
	}
	if opts.ReportFormat != "" {
		cfg.SetReportFormat(opts.ReportFormat)
	}
	if opts.MetricsFile != "" {
		cfg.SetMetricsTextfile(opts.MetricsFile)
	}
}

// runGenerate executes one generation run and writes its outputs. The final
// state is returned even when the run failed.
func runGenerate(
	ctx context.Context,
	out io.Writer,
	cfg config.Interface,
	llm schemas.LLMClient,
	rec *metrics.Recorder,
	logger *zap.Logger,
	request string,
	opts generateOptions,
) (*codegen.FinalState, error) {
	toolbox, err := analyzers.NewToolbox(cfg.Analysis(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzers: %w", err)
	}

	outDir := cfg.Output().Dir
	agent, err := codegen.NewAgent(codegen.Dependencies{
		LLM:     llm,
		Toolbox: toolbox,
		Writers: func(language string) schemas.ArtifactWriter {
			return artifact.NewWriter(outDir, language, logger)
		},
		Metrics: rec,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize agent: %w", err)
	}

	final, runErr := agent.Run(ctx, request)

	// Reports and metrics are written for failed runs too.
	if opts.ReportPath != "" {
		format := reporting.FormatForPath(opts.ReportPath, cfg.Output().ReportFormat)
		if opts.ReportFormat != "" {
			format = opts.ReportFormat
		}
		if err := writeRunReport(&final, opts.ReportPath, format); err != nil {
			logger.Error("Failed to write run report", zap.Error(err), zap.String("path", opts.ReportPath))
			runErr = errors.Join(runErr, err)
		}
	}
	if path := cfg.Metrics().Textfile; path != "" {
		if err := rec.WriteTextfile(path); err != nil {
			logger.Error("Failed to write metrics", zap.Error(err), zap.String("path", path))
			runErr = errors.Join(runErr, err)
		}
	}

	printSummary(out, &final, opts.PrintCode)

	if runErr != nil {
		return &final, runErr
	}
	if !final.Succeeded() {
		return &final, fmt.Errorf("%w after %d attempt(s): %s", ErrGenerationFailed, final.Attempts, final.LastError)
	}
	return &final, nil
}

func writeRunReport(final *codegen.FinalState, path, format string) error {
	reporter, err := reporting.New(format, path, Version)
	if err != nil {
		return err
	}
	if err := reporter.Write(final); err != nil {
		_ = reporter.Close()
		return err
	}
	return reporter.Close()
}

// printSummary renders the outcome of a run for the terminal.
func printSummary(out io.Writer, final *codegen.FinalState, printCode bool) {
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	if final.Succeeded() {
		ok.Fprint(out, "Saved ")
		fmt.Fprintf(out, "%s after %d attempt(s)\n", final.OutputPath, final.Attempts)
	} else {
		bad.Fprint(out, "Failed ")
		fmt.Fprintf(out, "at %s after %d attempt(s)", final.Stage, final.Attempts)
		if final.LastError != "" {
			fmt.Fprintf(out, ": %s", final.LastError)
		}
		fmt.Fprintln(out)
	}

	if final.Report != nil {
		dim.Fprintln(out, final.Report.Summary())
		for _, f := range final.Report.BlockingFindings() {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}

	if printCode && final.Code != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.TrimRight(final.Code, "\n"))
	}
}
