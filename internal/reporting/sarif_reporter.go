package reporting

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/codegen"
	"github.com/xkilldash9x/codesmith/internal/observability"
	"github.com/xkilldash9x/codesmith/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "codesmith"
	ToolInfoURI  = "https://github.com/xkilldash9x/codesmith"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// defaultArtifactURI is used for runs that never saved their artifact.
const defaultArtifactURI = "artifact"

// ruleIDSanitizer collapses characters not allowed in SARIF rule IDs.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_./]+`)

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// Every QA finding of the final pass becomes one result. It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the rule index.
	mu    sync.Mutex
	rules map[string]bool
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer: writer,
		logger: observability.GetLogger().Named("sarif_reporter"),
		log:    log,
		rules:  make(map[string]bool),
	}
}

// Write converts the findings of the run's last QA pass into SARIF results.
func (r *SARIFReporter) Write(state *codegen.FinalState) error {
	if state == nil {
		return fmt.Errorf("cannot report a nil run state")
	}
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	run.Properties = &sarif.PropertyBag{
		"runId":      state.RunID,
		"stage":      string(state.Stage),
		"retryCount": state.RetryCount,
		"attempts":   state.Attempts,
		"succeeded":  state.Succeeded(),
	}
	if state.LastError != "" {
		(*run.Properties)["lastError"] = state.LastError
	}

	uri := state.OutputPath
	if uri == "" {
		uri = defaultArtifactURI
	}

	var findings []schemas.Finding
	if state.Report != nil {
		findings = state.Report.Findings
	}
	for _, finding := range findings {
		run.Results = append(run.Results, &sarif.Result{
			RuleID:    r.ensureRule(finding),
			Message:   &sarif.Message{Text: pString(finding.Message)},
			Level:     mapSeverityToSARIFLevel(finding.Severity),
			Locations: createLocations(uri, finding),
		})
	}

	r.logger.Debug("Wrote findings to SARIF buffer",
		zap.Int("findings_count", len(findings)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	encodeErr := enc.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// ruleID builds "<tool>/<rule>" for a finding, falling back to its source
// when the tool or rule is missing.
func ruleID(finding schemas.Finding) string {
	tool := finding.Tool
	if tool == "" {
		tool = finding.Source
	}
	rule := finding.Rule
	if rule == "" {
		rule = finding.Source
	}
	id := strings.Trim(ruleIDSanitizer.ReplaceAllString(tool+"/"+rule, "-"), "-/")
	if id == "" {
		return "unknown"
	}
	return id
}

// ensureRule registers a rule descriptor the first time an ID is seen.
// Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(finding schemas.Finding) string {
	id := ruleID(finding)
	if r.rules[id] {
		return id
	}
	r.rules[id] = true

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               id,
		Name:             pString(finding.Rule),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(fmt.Sprintf("%s check %s", finding.Source, id))},
		Properties: &sarif.PropertyBag{
			"tags": []string{"codesmith", finding.Source},
		},
	})
	return id
}

func createLocations(uri string, finding schemas.Finding) []*sarif.Location {
	physical := &sarif.PhysicalLocation{
		ArtifactLocation: &sarif.ArtifactLocation{URI: pString(uri)},
	}
	if finding.Location != nil && finding.Location.Line > 0 {
		physical.Region = &sarif.Region{
			StartLine:   finding.Location.Line,
			StartColumn: finding.Location.Column,
		}
	}
	return []*sarif.Location{{PhysicalLocation: physical}}
}

// mapSeverityToSARIFLevel converts a finding severity to the SARIF standard.
func mapSeverityToSARIFLevel(severity schemas.Severity) sarif.Level {
	switch severity {
	case schemas.SeverityError, schemas.SeverityFatal:
		return sarif.LevelError
	case schemas.SeverityWarning:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value.
func pString(s string) *string {
	return &s
}
