// internal/llmutil/parser.go
package llmutil

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	json "github.com/json-iterator/go"
)

const fence = "```"

var (
	// jsonFenceRegex matches a response that is nothing but one fenced JSON block.
	// \x60 is a backtick; raw strings cannot contain one.
	jsonFenceRegex = regexp.MustCompile("(?s)^\x60\x60\x60(?:json|JSON)?[ \t]*\r?\n(.*?)\r?\n?\x60\x60\x60$")

	// ErrNotObject is returned when a response parses as JSON but is not an object.
	ErrNotObject = errors.New("response is not a JSON object")
)

// ExtractCodeBlock returns the interior of the first fenced block opened with
// the given language tag (e.g. "```python"). The interior starts after the
// opening line and ends right before the next fence; it is returned verbatim.
// If no such block exists, or it is never closed, the trimmed full response
// is returned instead.
func ExtractCodeBlock(response, language string) string {
	open := fence + strings.ToLower(strings.TrimSpace(language))

	for searchFrom := 0; searchFrom < len(response); {
		idx := strings.Index(response[searchFrom:], open)
		if idx < 0 {
			break
		}
		start := searchFrom + idx + len(open)

		// The tag must end the word: "```python" should not match "```pythonic".
		if start < len(response) && !isTagTerminator(response[start]) {
			searchFrom = start
			continue
		}

		// Skip the remainder of the opening line.
		body := response[start:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && strings.TrimSpace(body[:nl]) == "" {
			body = body[nl+1:]
		}

		end := strings.Index(body, fence)
		if end < 0 {
			break
		}
		return body[:end]
	}
	return strings.TrimSpace(response)
}

func isTagTerminator(b byte) bool {
	return b == '\n' || b == '\r' || b == ' ' || b == '\t'
}

// DecodeObject strictly decodes a model response holding a single JSON object
// into a generic map. A response that is entirely one ```json fenced block is
// unwrapped first; no other repair is attempted.
func DecodeObject(response string) (map[string]interface{}, error) {
	payload := strings.TrimSpace(response)
	if m := jsonFenceRegex.FindStringSubmatch(payload); len(m) > 1 {
		payload = strings.TrimSpace(m[1])
	}

	var raw interface{}
	dec := json.ConfigCompatibleWithStandardLibrary.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Payload (truncated): %s", err, Truncate(payload, 200))
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected trailing content after JSON value. Payload (truncated): %s", Truncate(payload, 200))
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, raw)
	}
	return obj, nil
}

// Truncate shortens s to at most maxLen bytes for logging, appending "..."
// when cut. The cut never splits a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
