package schemas

import (
	"fmt"
	"strings"
)

// -- Finding Schemas --

// Severity represents the severity level of an analyzer finding. Values are
// ordered; anything at or above SeverityWarning blocks a QA pass.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name in JSON and YAML reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity maps the severity vocabularies of the supported tools onto
// Severity. Unknown values are treated as warnings.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "note", "hint", "style":
		return SeverityInfo
	case "warning", "warn":
		return SeverityWarning
	case "error", "err":
		return SeverityError
	case "fatal", "critical":
		return SeverityFatal
	default:
		return SeverityWarning
	}
}

// Blocking reports whether a finding at this severity fails a QA pass.
func (s Severity) Blocking() bool {
	return s >= SeverityWarning
}

// Finding sources, in QA merge order.
const (
	SourceFormatter   = "format"
	SourceLinter      = "lint"
	SourceTypeChecker = "typecheck"
	SourceReview      = "review"
)

// Location pins a finding to a position in the code artifact. Both fields are
// 1-indexed; Column is 0 when the tool does not report one.
type Location struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column,omitempty" yaml:"column,omitempty"`
}

// Finding is one normalized result from a static analyzer or the model review.
type Finding struct {
	Source   string    `json:"source" yaml:"source"`                 // QA step that produced it.
	Tool     string    `json:"tool,omitempty" yaml:"tool,omitempty"` // Concrete tool (ruff, mypy, ...).
	Severity Severity  `json:"severity" yaml:"severity"`
	Rule     string    `json:"rule,omitempty" yaml:"rule,omitempty"` // Tool rule code (F821, arg-type, ...).
	Message  string    `json:"message" yaml:"message"`
	Location *Location `json:"location,omitempty" yaml:"location,omitempty"`
}

// String renders the finding on a single line, e.g.
// "[lint] error 3:5 F821 undefined name 'x'".
func (f Finding) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", f.Source, f.Severity)
	if f.Location != nil {
		if f.Location.Column > 0 {
			fmt.Fprintf(&b, " %d:%d", f.Location.Line, f.Location.Column)
		} else {
			fmt.Fprintf(&b, " %d", f.Location.Line)
		}
	}
	if f.Rule != "" {
		b.WriteString(" " + f.Rule)
	}
	b.WriteString(" " + f.Message)
	return b.String()
}

// -- QA Report --

// QAReport aggregates the findings of one QA pass against one code artifact.
// Reports are never merged across passes.
type QAReport struct {
	// Findings in merge order: format, lint, type check, review.
	Findings []Finding `json:"findings" yaml:"findings"`
	// Reformatted is true when the formatter replaced the artifact during this pass.
	Reformatted bool `json:"reformatted" yaml:"reformatted"`
	// Code is the artifact the pass ended with (reformatted when Reformatted is set).
	Code string `json:"-" yaml:"-"`
}

// HasBlockingIssues is derived from the findings: true iff any finding is at
// warning severity or above.
func (r *QAReport) HasBlockingIssues() bool {
	if r == nil {
		return false
	}
	for _, f := range r.Findings {
		if f.Severity.Blocking() {
			return true
		}
	}
	return false
}

// BlockingFindings returns the findings that fail the pass.
func (r *QAReport) BlockingFindings() []Finding {
	if r == nil {
		return nil
	}
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity.Blocking() {
			out = append(out, f)
		}
	}
	return out
}

// String renders the full report, one finding per line. This is the text fed
// back to the model in revision prompts.
func (r *QAReport) String() string {
	if r == nil || len(r.Findings) == 0 {
		return "No findings."
	}
	lines := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		lines = append(lines, f.String())
	}
	return strings.Join(lines, "\n")
}

// Summary is a one-line description of the pass outcome.
func (r *QAReport) Summary() string {
	if r == nil {
		return "QA not run"
	}
	blocking := len(r.BlockingFindings())
	if blocking == 0 {
		return fmt.Sprintf("QA passed with %d finding(s)", len(r.Findings))
	}
	return fmt.Sprintf("QA failed: %d blocking finding(s) of %d", blocking, len(r.Findings))
}
