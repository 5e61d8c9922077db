package analyzers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/config"
)

// Suite is the set of static analysis tools the QA aggregator runs for one
// target language.
type Suite struct {
	Formatter   schemas.Formatter
	Linter      schemas.Analyzer
	TypeChecker schemas.Analyzer
}

// Toolbox resolves a Suite for a language. Only Python has real tooling; any
// other language gets a suite whose tools all report unavailable.
type Toolbox struct {
	python Suite
	static bool
}

// NewToolbox builds the Python tool adapters from configuration.
func NewToolbox(cfg config.AnalysisConfig, logger *zap.Logger) (*Toolbox, error) {
	log := logger.Named("analyzers")

	command := func(t config.ToolConfig) Command {
		return Command{Path: t.Command, Args: t.Args, Timeout: cfg.Timeout}
	}

	var formatter schemas.Formatter = disabled{name: "formatter"}
	if cfg.Formatter.Enabled {
		formatter = NewBlack(command(cfg.Formatter))
	}

	var linter schemas.Analyzer = disabled{name: "linter"}
	if cfg.Linter.Enabled {
		ignored := cfg.IgnoreRules
		if ignored == nil {
			ignored = DefaultIgnoredRules
		}
		linter = NewRuff(command(cfg.Linter), ignored, log)
	}

	var typeChecker schemas.Analyzer = disabled{name: "type checker"}
	if cfg.TypeChecker.Enabled {
		typeChecker = NewMypy(command(cfg.TypeChecker), log)
	}
	if cfg.SyntaxFallback {
		typeChecker = NewFallback(typeChecker, SyntaxChecker{}, log)
	}

	var err error
	if linter, err = NewCached(linter, cfg.CacheSize); err != nil {
		return nil, fmt.Errorf("failed to create linter cache: %w", err)
	}
	if typeChecker, err = NewCached(typeChecker, cfg.CacheSize); err != nil {
		return nil, fmt.Errorf("failed to create type checker cache: %w", err)
	}

	return &Toolbox{python: Suite{Formatter: formatter, Linter: linter, TypeChecker: typeChecker}}, nil
}

// NewStaticToolbox serves the same suite for every language. Used by tests and
// embedders that bring their own tools.
func NewStaticToolbox(s Suite) *Toolbox {
	return &Toolbox{python: s, static: true}
}

// For returns the suite for language.
func (t *Toolbox) For(language string) Suite {
	if t.static {
		return t.python
	}
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "python", "python3", "py", "":
		return t.python
	}
	return Suite{
		Formatter:   unsupported{language: language, kind: "formatter"},
		Linter:      unsupported{language: language, kind: "linter"},
		TypeChecker: unsupported{language: language, kind: "type checker"},
	}
}

// disabled stands in for a tool turned off in configuration.
type disabled struct{ name string }

func (d disabled) Name() string { return d.name + " (disabled)" }

func (d disabled) Analyze(context.Context, string) ([]schemas.Finding, bool) { return nil, false }

func (d disabled) Check(context.Context, string) (bool, bool, error) { return false, false, nil }

func (d disabled) Fix(_ context.Context, source string) (string, error) { return source, nil }

// unsupported stands in for a tool when the target language has no tooling.
type unsupported struct{ language, kind string }

func (u unsupported) Name() string { return fmt.Sprintf("%s (%s unsupported)", u.kind, u.language) }

func (u unsupported) Analyze(context.Context, string) ([]schemas.Finding, bool) { return nil, false }

func (u unsupported) Check(context.Context, string) (bool, bool, error) { return false, false, nil }

func (u unsupported) Fix(_ context.Context, source string) (string, error) { return source, nil }
