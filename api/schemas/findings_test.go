package schemas

import (
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	assert.False(t, SeverityInfo.Blocking())
	assert.True(t, SeverityWarning.Blocking())
	assert.True(t, SeverityError.Blocking())
	assert.True(t, SeverityFatal.Blocking())
	assert.Equal(t, "unknown", Severity(42).String())
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"note":     SeverityInfo,
		"INFO":     SeverityInfo,
		" warning": SeverityWarning,
		"error":    SeverityError,
		"critical": SeverityFatal,
		"bogus":    SeverityWarning,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseSeverity(in))
		})
	}
}

func TestQAReport(t *testing.T) {
	t.Run("Empty report does not block", func(t *testing.T) {
		r := &QAReport{}
		assert.False(t, r.HasBlockingIssues())
		assert.Equal(t, "No findings.", r.String())
		assert.Equal(t, "QA passed with 0 finding(s)", r.Summary())
	})

	t.Run("Info findings only do not block", func(t *testing.T) {
		r := &QAReport{Findings: []Finding{
			{Source: SourceFormatter, Severity: SeverityInfo, Message: "code was reformatted"},
			{Source: SourceReview, Severity: SeverityInfo, Message: "looks fine"},
		}}
		assert.False(t, r.HasBlockingIssues())
		assert.Empty(t, r.BlockingFindings())
	})

	t.Run("Warning blocks", func(t *testing.T) {
		r := &QAReport{Findings: []Finding{
			{Source: SourceLinter, Severity: SeverityInfo, Message: "a"},
			{Source: SourceLinter, Severity: SeverityWarning, Rule: "B006", Message: "mutable default",
				Location: &Location{Line: 4, Column: 12}},
		}}
		assert.True(t, r.HasBlockingIssues())
		require.Len(t, r.BlockingFindings(), 1)
		assert.Equal(t, "QA failed: 1 blocking finding(s) of 2", r.Summary())
		assert.Contains(t, r.String(), "[lint] warning 4:12 B006 mutable default")
	})

	t.Run("Nil report", func(t *testing.T) {
		var r *QAReport
		assert.False(t, r.HasBlockingIssues())
		assert.Nil(t, r.BlockingFindings())
		assert.Equal(t, "No findings.", r.String())
	})
}

func TestFindingString(t *testing.T) {
	f := Finding{Source: SourceTypeChecker, Severity: SeverityError, Message: "bad", Location: &Location{Line: 7}}
	assert.Equal(t, "[typecheck] error 7 bad", f.String())
}

func TestFindingJSONUsesSeverityName(t *testing.T) {
	data, err := json.Marshal(Finding{Source: SourceLinter, Severity: SeverityError, Message: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"lint","severity":"error","message":"m"}`, string(data))
}

func TestRequirementSpecDefaults(t *testing.T) {
	got := RequirementSpec{Task: "  "}.WithDefaults("write a sorter")
	assert.Equal(t, RequirementSpec{Language: "python", Task: "write a sorter", OutputFormat: "standard"}, got)

	kept := RequirementSpec{Language: "Go", Task: "t", OutputFormat: "module"}.WithDefaults("ignored")
	assert.Equal(t, "Go", kept.Language)
	assert.Equal(t, "go", kept.LanguageTag())

	assert.Equal(t, DefaultRequirementSpec("req"), RequirementSpec{}.WithDefaults("req"))
}
