package codegen

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
	"github.com/xkilldash9x/codesmith/internal/llmutil"
)

// Verdict is the classification of a free-text review.
type Verdict int

const (
	VerdictNeutral   Verdict = iota // no keyword of either class
	VerdictEndorsing                // only endorsing phrases
	VerdictObjecting                // only objecting phrases
	VerdictAmbiguous                // both classes present
)

func (v Verdict) String() string {
	switch v {
	case VerdictEndorsing:
		return "endorsing"
	case VerdictObjecting:
		return "objecting"
	case VerdictAmbiguous:
		return "ambiguous"
	default:
		return "neutral"
	}
}

// Blocking: objecting and ambiguous reviews fail the pass.
func (v Verdict) Blocking() bool {
	return v == VerdictObjecting || v == VerdictAmbiguous
}

var (
	endorsingPhrases = regexp.MustCompile(`(?i)\b(?:acceptable|fine|works|functional|looks good|no issues|lgtm)\b`)
	objectingPhrases = regexp.MustCompile(`(?i)\b(?:critical|broken|breaks|fatal|bugs?|syntax errors?|logic(?:al)? errors?|crash(?:es|ed|ing)?|not acceptable|not functional|(?:does not|doesn't|won't|will not|cannot|can't) (?:work|run)|fails? to (?:run|work|compile))\b`)

	// negatedObjections matches a problem keyword that is denied, as in "no
	// critical issues" or "won't crash".
	negatedObjections = regexp.MustCompile(`(?i)\b(?:no|not|never|without|zero|free of|\w+n't)\s+(?:(?:any|obvious|other|major|real|remaining|further|apparent)\s+)*(?:critical|fatal|broken|breaks?|bugs?|syntax errors?|logic(?:al)? errors?|crash(?:es|ed|ing)?)(?:\s+(?:issues?|problems?|bugs?|errors?|flaws?))?\b`)
)

// ClassifyReview sorts a review response by keyword presence. Matching is
// case-insensitive and on whole words, so "finely" or "functionality" are not
// endorsements. A denied problem ("no syntax errors") counts as an
// endorsement, and an objecting phrase never doubles as one ("not acceptable").
func ClassifyReview(text string) Verdict {
	denied := negatedObjections.MatchString(text)
	rest := negatedObjections.ReplaceAllString(text, " ")

	objecting := objectingPhrases.MatchString(rest)
	rest = objectingPhrases.ReplaceAllString(rest, " ")
	endorsing := denied || endorsingPhrases.MatchString(rest)

	switch {
	case endorsing && objecting:
		return VerdictAmbiguous
	case objecting:
		return VerdictObjecting
	case endorsing:
		return VerdictEndorsing
	default:
		return VerdictNeutral
	}
}

// maxReviewPreview bounds the review text written to the log. The finding
// keeps the full text.
const maxReviewPreview = 200

// Reviewer asks the fast model tier for a lenient review.
type Reviewer struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

func NewReviewer(llm schemas.LLMClient, logger *zap.Logger) *Reviewer {
	return &Reviewer{llm: llm, logger: logger.Named("review")}
}

// Review returns one finding for the review: error severity when the verdict
// blocks, info otherwise. A failed model call is returned as an error.
func (r *Reviewer) Review(ctx context.Context, language, code string, findings []schemas.Finding, history *History) (schemas.Finding, error) {
	prompt := reviewPrompt(language, code, findings)
	resp, err := r.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: reviewSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{Temperature: 0},
	})
	if err != nil {
		return schemas.Finding{}, fmt.Errorf("code review failed: %w", err)
	}
	history.Record(StepReview, prompt, resp)

	verdict := ClassifyReview(resp)
	msg := strings.Join(strings.Fields(resp), " ")
	r.logger.Debug("Review classified",
		zap.Stringer("verdict", verdict),
		zap.String("review", llmutil.Truncate(msg, maxReviewPreview)))

	severity := schemas.SeverityInfo
	if verdict.Blocking() {
		severity = schemas.SeverityError
	}
	if msg == "" {
		msg = "empty review"
	}
	return schemas.Finding{
		Source:   schemas.SourceReview,
		Tool:     "model",
		Severity: severity,
		Rule:     verdict.String(),
		Message:  msg,
	}, nil
}
