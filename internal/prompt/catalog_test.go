package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfenske/sonarfix/internal/sonar"
)

func TestRenderVariables(t *testing.T) {
	out, err := Render("fix {{message}} in {{rule}}", Vars{"message": "smell", "rule": "java:S1"})
	require.NoError(t, err)
	assert.Equal(t, "fix smell in java:S1", out)
}

func TestRenderMissingVariable(t *testing.T) {
	_, err := Render("fix {{message}}", Vars{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestRenderConditional(t *testing.T) {
	tmpl := "{{#if line}}line {{line}} {{/if}}done"

	out, err := Render(tmpl, Vars{"line": "42"})
	require.NoError(t, err)
	assert.Equal(t, "line 42 done", out)

	out, err = Render(tmpl, Vars{"line": ""})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestRenderDanglingClose(t *testing.T) {
	_, err := Render("no open {{/if}}", Vars{})
	require.Error(t, err)
}

func TestRspecKey(t *testing.T) {
	assert.Equal(t, "RSPEC-1172", rspecKey("java:S1172"))
	assert.Equal(t, "RSPEC-3776", rspecKey("py:S3776"))
	assert.Equal(t, "", rspecKey("custom-rule"))
	assert.Equal(t, "", rspecKey("java:Sabc"))
}

func TestBuildUsesRuleTemplate(t *testing.T) {
	c := NewCatalog()
	f := sonar.Finding{Rule: "java:S1172", Message: "unused param", Severity: "MAJOR", Line: 3}

	out, err := c.Build(f, "class A {}")
	require.NoError(t, err)
	assert.Contains(t, out, "unused function parameter")
	assert.Contains(t, out, "unused param")
	assert.Contains(t, out, "class A {}")
}

func TestBuildFallsBackToDefault(t *testing.T) {
	c := NewCatalog()
	f := sonar.Finding{Rule: "java:S99999999", Message: "odd smell", Severity: "MINOR", Line: 1}

	out, err := c.Build(f, "code here")
	require.NoError(t, err)
	assert.Contains(t, out, "odd smell")
	assert.Contains(t, out, "java:S99999999")
	assert.Contains(t, out, "code here")
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `default: "custom default {{message}}\n{{code}}"
rules:
  RSPEC-1172: "custom 1172 {{message}}\n{{code}}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := NewCatalog()
	require.NoError(t, c.LoadOverrides(path))

	out, err := c.Build(sonar.Finding{Rule: "java:S1172", Message: "m"}, "x")
	require.NoError(t, err)
	assert.Contains(t, out, "custom 1172 m")

	out, err = c.Build(sonar.Finding{Rule: "other"}, "x")
	require.NoError(t, err)
	assert.Contains(t, out, "custom default")
}

func TestLoadOverridesMissingFile(t *testing.T) {
	c := NewCatalog()
	require.Error(t, c.LoadOverrides(filepath.Join(t.TempDir(), "nope.yaml")))
}
