package apiclient

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// secretFields are passed through untouched.
var secretFields = map[string]struct{}{
	"password":    {},
	"oldPassword": {},
	"newPassword": {},
}

type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	return &sanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses bounds the decode and strip loop in String.
const maxSanitizePasses = 4

// String trims and strips all markup from in, including markup hidden behind
// HTML entities. The result is plain text: decoding it again and running the
// policy over it changes nothing.
func (s *sanitizer) String(in string) string {
	text := html.UnescapeString(strings.TrimSpace(in))
	for range maxSanitizePasses {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			return strings.TrimSpace(text)
		}
		text = next
	}
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// Body serialises v, sanitising the top-level string fields of JSON objects.
// Nested values and non-object bodies are encoded as is.
func (s *sanitizer) Body(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw, nil
	}
	for k, value := range fields {
		if _, skip := secretFields[k]; skip {
			continue
		}
		var str string
		if err := json.Unmarshal(value, &str); err != nil {
			continue
		}
		cleaned, err := json.Marshal(s.String(str))
		if err != nil {
			return nil, err
		}
		fields[k] = cleaned
	}
	return json.Marshal(fields)
}
