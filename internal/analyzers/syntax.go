package analyzers

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

const (
	maxSyntaxErrors = 50
	maxWalkDepth    = 1000
)

// SyntaxChecker parses Python in-process with tree-sitter and reports every
// ERROR or MISSING node. It needs no external tool, which makes it the
// fallback for the type check slot.
type SyntaxChecker struct{}

var _ schemas.Analyzer = SyntaxChecker{}

func (SyntaxChecker) Name() string { return "tree-sitter" }

func (SyntaxChecker) Analyze(ctx context.Context, source string) ([]schemas.Finding, bool) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, []byte(source))
	if err != nil || tree == nil {
		return nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, true
	}

	var findings []schemas.Finding
	collectSyntaxErrors(root, []byte(source), &findings, 0)
	return findings, true
}

func collectSyntaxErrors(node *sitter.Node, src []byte, out *[]schemas.Finding, depth int) {
	if node == nil || depth > maxWalkDepth || len(*out) >= maxSyntaxErrors {
		return
	}

	if node.IsError() || node.IsMissing() {
		pos := node.StartPoint()
		var msg string
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %q", node.Type())
		} else {
			msg = fmt.Sprintf("invalid syntax near %q", snippet(node.Content(src)))
		}
		*out = append(*out, schemas.Finding{
			Tool:     "tree-sitter",
			Severity: schemas.SeverityError,
			Rule:     "syntax-error",
			Message:  msg,
			Location: &schemas.Location{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1},
		})
		// Children of an ERROR node repeat the same problem.
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectSyntaxErrors(node.Child(i), src, out, depth+1)
	}
}

func snippet(s string) string {
	const limit = 40
	for i, r := range s {
		if r == '\n' {
			s = s[:i]
			break
		}
	}
	if utf8.RuneCountInString(s) > limit {
		return string([]rune(s)[:limit]) + "..."
	}
	return s
}
