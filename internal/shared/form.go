package shared

import (
	"net/http"
	"strconv"
	"strings"
)

// FormString returns the trimmed form value.
func FormString(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// FormInt parses an integer form value. Blank yields 0 and ok.
func FormInt(r *http.Request, key string) (int, bool) {
	raw := FormString(r, key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// FormBool reads a checkbox.
func FormBool(r *http.Request, key string) bool {
	switch strings.ToLower(FormString(r, key)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

// FormList returns the non-blank values posted under key, in order.
func FormList(r *http.Request, key string) []string {
	if r.Form == nil {
		_ = r.ParseForm()
	}
	out := make([]string, 0, len(r.Form[key]))
	for _, v := range r.Form[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FormColumn returns every value posted under key including blanks, so line
// editors can zip columns by index.
func FormColumn(r *http.Request, key string) []string {
	if r.Form == nil {
		_ = r.ParseForm()
	}
	out := make([]string, len(r.Form[key]))
	for i, v := range r.Form[key] {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
