package codegen

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

// MaxRetries bounds the number of failed QA passes in one run. Reaching it
// ends the run in StageFailTerminal whatever the latest report says.
const MaxRetries = 3

// ErrRunAborted is returned when the caller cancels a run.
var ErrRunAborted = errors.New("run aborted")

// Stage is a state of the retry controller.
type Stage string

const (
	StageGenerate     Stage = "GENERATE"
	StageQA           Stage = "QA"
	StageDecide       Stage = "DECIDE"
	StageSave         Stage = "SAVE"
	StageFailTerminal Stage = "FAIL_TERMINAL"
	StageDone         Stage = "DONE"
)

// Terminal reports whether the controller stops in this stage.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailTerminal
}

// Role of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Transcript steps.
const (
	StepRequirements = "requirements"
	StepGenerate     = "generate"
	StepRevise       = "revise"
	StepReview       = "review"
)

// HistoryEntry is one message of the run transcript.
type HistoryEntry struct {
	Role      Role      `json:"role" yaml:"role"`
	Step      string    `json:"step" yaml:"step"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// Line counts relative to the previous artifact, set on revision responses.
	LinesAdded   int `json:"lines_added,omitempty" yaml:"lines_added,omitempty"`
	LinesRemoved int `json:"lines_removed,omitempty" yaml:"lines_removed,omitempty"`
}

// History is the append-only transcript of every model call in a run. It is
// kept for auditing; no decision reads it.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	now     func() time.Time
}

// Record appends one prompt/response exchange.
func (h *History) Record(step, prompt, response string) {
	h.record(step, prompt, response, 0, 0)
}

// RecordRevision appends an exchange together with the diff stats of the
// revised artifact.
func (h *History) RecordRevision(prompt, response string, added, removed int) {
	h.record(StepRevise, prompt, response, added, removed)
}

func (h *History) record(step, prompt, response string, added, removed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now
	if h.now != nil {
		now = h.now
	}
	ts := now().UTC()
	h.entries = append(h.entries,
		HistoryEntry{Role: RoleUser, Step: step, Content: prompt, Timestamp: ts},
		HistoryEntry{Role: RoleAssistant, Step: step, Content: response, Timestamp: ts, LinesAdded: added, LinesRemoved: removed},
	)
}

// Entries returns a copy of the transcript.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len is the number of entries recorded so far.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// AttemptState accumulates retry progress across the generate/QA cycles of
// one run. It is owned by the controller and never shared between runs.
type AttemptState struct {
	RetryCount int
	// LastError is non-empty iff the most recent QA pass failed. Only a
	// passing report clears it.
	LastError string
	History   History
}

// ApplyReport folds a QA outcome into the state.
func (s *AttemptState) ApplyReport(report *schemas.QAReport) {
	if report.HasBlockingIssues() {
		s.RetryCount++
		s.LastError = report.Summary()
		return
	}
	s.LastError = ""
}

// Next is the DECIDE transition.
func (s *AttemptState) Next() Stage {
	switch {
	case s.LastError == "":
		return StageSave
	case s.RetryCount < MaxRetries:
		return StageGenerate
	default:
		return StageFailTerminal
	}
}

// FinalState is the outcome of a run.
type FinalState struct {
	RunID        string                  `json:"run_id" yaml:"run_id"`
	Request      string                  `json:"request" yaml:"request"`
	Stage        Stage                   `json:"stage" yaml:"stage"`
	Requirements schemas.RequirementSpec `json:"requirements" yaml:"requirements"`
	// OutputPath is empty unless the artifact was written.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	// LastError is empty on success.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	// QAReport is the rendered report of the last QA pass, empty if none ran.
	QAReport   string            `json:"qa_report,omitempty" yaml:"qa_report,omitempty"`
	Report     *schemas.QAReport `json:"report,omitempty" yaml:"report,omitempty"`
	RetryCount int               `json:"retry_count" yaml:"retry_count"`
	Attempts   int               `json:"attempts" yaml:"attempts"`
	// Code is the last artifact produced, kept even when the run failed.
	Code      string         `json:"code,omitempty" yaml:"code,omitempty"`
	History   []HistoryEntry `json:"history,omitempty" yaml:"history,omitempty"`
	StartedAt time.Time      `json:"started_at" yaml:"started_at"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`
}

// Succeeded reports whether the run ended with a saved artifact.
func (f FinalState) Succeeded() bool {
	return f.Stage == StageDone && f.OutputPath != "" && f.LastError == ""
}

// lineChanges counts added and removed lines between two artifacts.
func lineChanges(before, after string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}
	return added, removed
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
