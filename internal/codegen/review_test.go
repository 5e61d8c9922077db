package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/mocks"
)

func TestClassifyReview(t *testing.T) {
	tests := []struct {
		text string
		want Verdict
	}{
		{"The code is acceptable.", VerdictEndorsing},
		{"Looks FINE to me", VerdictEndorsing},
		{"It works as intended.", VerdictEndorsing},
		{"The implementation is functional.", VerdictEndorsing},
		{"LGTM", VerdictEndorsing},
		{"There is a critical bug in the loop bounds.", VerdictObjecting},
		{"The parser is broken for empty input.", VerdictObjecting},
		{"Line 3 has a Syntax Error.", VerdictObjecting},
		{"There is a logical error: the sum is never returned.", VerdictObjecting},
		{"This will not run because `np` is undefined.", VerdictObjecting},
		{"There are logical errors in both branches.", VerdictObjecting},
		{"Two syntax errors: missing colons on lines 2 and 5.", VerdictObjecting},
		{"The script crashed on empty input.", VerdictObjecting},
		{"It fails to run without the missing import.", VerdictObjecting},
		{"The code is not acceptable.", VerdictObjecting},
		{"The code works. There are no critical issues.", VerdictEndorsing},
		{"No syntax errors found, looks good.", VerdictEndorsing},
		{"The function is not broken.", VerdictEndorsing},
		{"It won't crash on empty lists.", VerdictEndorsing},
		{"There are no obvious bugs.", VerdictEndorsing},
		{"No critical issues, but it crashes when n is 0.", VerdictAmbiguous},
		{"It works, but there is a fatal flaw when n is 0.", VerdictAmbiguous},
		{"Fine overall; one critical issue remains.", VerdictAmbiguous},
		{"The functionality is finely tuned.", VerdictNeutral},
		{"I have no further remarks.", VerdictNeutral},
		{"", VerdictNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyReview(tt.text))
		})
	}
}

func TestVerdict_Blocking(t *testing.T) {
	assert.False(t, VerdictNeutral.Blocking())
	assert.False(t, VerdictEndorsing.Blocking())
	assert.True(t, VerdictObjecting.Blocking())
	assert.True(t, VerdictAmbiguous.Blocking(), "ambiguous reviews fail safe")
	assert.Equal(t, "ambiguous", VerdictAmbiguous.String())
}

func TestReviewer_Review(t *testing.T) {
	logger, _ := setupTestLogger(t)
	llm := new(mocks.MockLLMClient)
	reviewer := NewReviewer(llm, logger)

	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierFast &&
			req.SystemPrompt == reviewSystemPrompt &&
			strings.Contains(req.UserPrompt, "ignore style") &&
			strings.Contains(req.UserPrompt, "[typecheck] error 1 misc boom")
	})).Return("  The code is broken:\n  it never returns.  ", nil).Once()

	history := &History{}
	finding, err := reviewer.Review(context.Background(), "python", "def f(): pass", []schemas.Finding{
		{Source: schemas.SourceTypeChecker, Severity: schemas.SeverityError, Rule: "misc", Message: "boom", Location: &schemas.Location{Line: 1}},
	}, history)
	require.NoError(t, err)

	assert.Equal(t, schemas.SourceReview, finding.Source)
	assert.Equal(t, schemas.SeverityError, finding.Severity)
	assert.Equal(t, "objecting", finding.Rule)
	assert.Equal(t, "The code is broken: it never returns.", finding.Message)
	assert.Equal(t, 2, history.Len())
	llm.AssertExpectations(t)
}

func TestReviewer_LongReviewKeptWhole(t *testing.T) {
	logger, _ := setupTestLogger(t)
	llm := new(mocks.MockLLMClient)
	review := "The code is broken. " + strings.Repeat("The loop bound is off by one and skips the final element. ", 15) + "TAIL-FIX: return the accumulated total."
	llm.On("Generate", mock.Anything, mock.Anything).Return(review, nil)

	finding, err := NewReviewer(llm, logger).Review(context.Background(), "python", "x = 1", nil, &History{})
	require.NoError(t, err)
	assert.Equal(t, schemas.SeverityError, finding.Severity)
	assert.Equal(t, strings.TrimSpace(review), finding.Message)

	// The revision request carries the whole review.
	report := &schemas.QAReport{Findings: []schemas.Finding{finding}}
	prompt := revisionPrompt(schemas.RequirementSpec{Language: "Python", Task: "sum a list"}, "x = 1", report, "")
	assert.Contains(t, prompt, "TAIL-FIX: return the accumulated total.")
}
