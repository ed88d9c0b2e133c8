package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

var (
	metricRef = regexp.MustCompile(`warehouse_[a-z_]+`)
	heading   = regexp.MustCompile(`(?m)^## (.+)$`)
)

func repoFile(t *testing.T, parts ...string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(append([]string{"..", ".."}, parts...)...))
	require.NoError(t, err)
	return data
}

func consoleRules(t *testing.T) []alertRule {
	t.Helper()
	var file alertFile
	require.NoError(t, yaml.Unmarshal(repoFile(t, "deploy", "prometheus", "alerts", "console.yml"), &file))
	for _, g := range file.Groups {
		if g.Name == "warehouse-console" {
			require.NotEmpty(t, g.Rules)
			return g.Rules
		}
	}
	t.Fatal("warehouse-console alert group missing")
	return nil
}

// registeredNames records one sample per series so Gather reports every
// metric the console exports.
func registeredNames(t *testing.T) map[string]bool {
	t.Helper()
	m := NewMetrics()
	m.requestsTotal.WithLabelValues("/", "200").Inc()
	m.requestDuration.WithLabelValues("/").Observe(0.01)
	m.ForcedLogout()
	m.GuardRedirect("/login")
	m.APIRequest("GET", 200)

	families, err := m.registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestAlertRulesUseExportedMetrics(t *testing.T) {
	names := registeredNames(t)

	for _, rule := range consoleRules(t) {
		refs := metricRef.FindAllString(rule.Expr, -1)
		assert.NotEmpty(t, refs, "rule %s does not reference a console metric", rule.Alert)
		for _, ref := range refs {
			base := ref
			for _, suffix := range []string{"_bucket", "_sum", "_count"} {
				if trimmed, ok := strings.CutSuffix(ref, suffix); ok && names[trimmed] {
					base = trimmed
				}
			}
			assert.True(t, names[base], "rule %s references unknown metric %s", rule.Alert, ref)
		}
	}
}

func TestAlertRulesMatchConsoleLabels(t *testing.T) {
	for _, rule := range consoleRules(t) {
		switch {
		case strings.Contains(rule.Expr, "warehouse_http_requests_total"):
			assert.Contains(t, rule.Expr, `code=~"5.."`, rule.Alert)
		case strings.Contains(rule.Expr, "warehouse_api_requests_total"):
			assert.Contains(t, rule.Expr, `class="error"`, rule.Alert)
		}
	}
}

func TestAlertRulesLinkToRunbookSections(t *testing.T) {
	sections := map[string]bool{}
	for _, m := range heading.FindAllStringSubmatch(string(repoFile(t, "docs", "runbook.md")), -1) {
		sections[strings.ReplaceAll(strings.ToLower(m[1]), " ", "-")] = true
	}

	for _, rule := range consoleRules(t) {
		assert.Contains(t, []string{"critical", "warning"}, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)

		file, anchor, ok := strings.Cut(rule.Annotations["runbook"], "#")
		require.True(t, ok, "rule %s has no runbook anchor", rule.Alert)
		assert.Equal(t, "docs/runbook.md", file, rule.Alert)
		assert.True(t, sections[anchor], "rule %s links to missing runbook section %s", rule.Alert, anchor)
	}
}
