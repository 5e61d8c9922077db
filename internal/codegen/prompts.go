package codegen

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

const requirementsSystemPrompt = `You analyze programming requests and extract their key requirements.
You answer with a single JSON object and nothing else: no prose, no markdown.`

const synthesisSystemPrompt = `You are a senior software engineer who writes small, correct, executable programs.
You answer with exactly one fenced code block and no text outside of it.`

const reviewSystemPrompt = `You are a lenient code reviewer.
Only flag issues that would prevent the code from running or make it compute the wrong result.
Ignore style, naming, formatting, documentation, and anything a linter already reported as cosmetic.`

// requirementsPrompt asks for the four recognized requirement keys.
func requirementsPrompt(request string) string {
	return fmt.Sprintf(`Analyze the following user request and extract key requirements:
Request: '%s'

Provide the output as a JSON object with the keys "language", "task", "output_format" and "constraints".
"constraints" is a list of short strings. Be concise.
Do not include any additional text or explanations, just the JSON.`, request)
}

// initialPrompt is used for the first generation of a run. It carries only the
// task and the target language.
func initialPrompt(req schemas.RequirementSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on these requirements: %s.\n", req.Task)
	fmt.Fprintf(&b, "Generate a %s script.\n", req.Language)
	if len(req.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range req.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	fmt.Fprintf(&b, `Provide only the code block, fenced as `+"```%s"+`, with no extra text or explanations outside the code block.
Write good quality code with proper indentation and follow best practices.
Provide docstrings and keep comments to a minimum.
Ensure the code is executable and simple.`, req.LanguageTag())
	return b.String()
}

// revisionPrompt embeds the task, the full prior QA report, and the prior
// artifact, and asks for a corrected block only.
func revisionPrompt(req schemas.RequirementSpec, code string, report *schemas.QAReport, lastError string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following %s code was written for this task: %s.\n\n", req.Language, req.Task)
	fmt.Fprintf(&b, "Code:\n```%s\n%s\n```\n\n", req.LanguageTag(), strings.TrimRight(code, "\n"))
	b.WriteString("Quality checks reported these problems:\n")
	b.WriteString(report.String())
	b.WriteString("\n")
	if lastError != "" {
		fmt.Fprintf(&b, "\nOutcome of the last check: %s\n", lastError)
	}
	fmt.Fprintf(&b, "\nFix every problem above without changing the intended behavior.\n"+
		"Return only the corrected code as a single "+"```%s"+" block, with no explanations.", req.LanguageTag())
	return b.String()
}

// reviewPrompt hands the reviewer the artifact and the analyzer findings so far.
func reviewPrompt(language, code string, findings []schemas.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review this %s code:\n```%s\n%s\n```\n\n", language, strings.ToLower(language), strings.TrimRight(code, "\n"))
	b.WriteString("Static analysis findings:\n")
	if len(findings) == 0 {
		b.WriteString("none\n")
	}
	for _, f := range findings {
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	b.WriteString(`
Only flag issues that would prevent execution or produce wrong results; ignore style.
If there are none, reply with exactly: LGTM
Otherwise describe each problem in one sentence. Do not mention problems the code does not have.`)
	return b.String()
}
