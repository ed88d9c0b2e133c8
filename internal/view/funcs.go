package view

import (
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/datastudio/warehouse-admin/internal/rbac"
)

var printer = message.NewPrinter(language.English)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":   FormatDate,
		"formatNumber": FormatNumber,
		"formatMoney":  FormatMoney,
		"can": func(perms []rbac.Permission, resource, action string) bool {
			return rbac.HasPermission(perms, resource, action)
		},
		"pageURL": PageURL,
		"add":     func(a, b int) int { return a + b },
		"sub":     func(a, b int) int { return a - b },
		"label":   StatusLabel,
		"year":    func() int { return time.Now().Year() },
		"dict":    dict,
	}
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		out[key] = kv[i+1]
	}
	return out, nil
}

// FormatDate renders an API timestamp or date as "02 Jan 2006". Values that
// do not parse are shown verbatim.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02 Jan 2006")
		}
	}
	return raw
}

// FormatNumber renders an integer with thousands separators.
func FormatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatMoney renders a decimal string with two places and separators.
func FormatMoney(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "-"
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return printer.Sprintf("%.2f", f)
}

// PageURL returns base with query plus page=n.
func PageURL(base string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("page", strconv.Itoa(page))
	return base + "?" + q.Encode()
}

// StatusLabel turns an API enum such as "part_received" into "Part received".
func StatusLabel(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
