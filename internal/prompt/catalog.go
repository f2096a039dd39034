package prompt

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jfenske/sonarfix/internal/sonar"
)

// defaultTemplate is used for rules without a dedicated template.
const defaultTemplate = `Please fix the following code smell in this file:

**Issue:** {{message}}
**Rule:** {{rule}}
**Severity:** {{severity}}
{{#if line}}**Around line:** {{line}}
{{/if}}
**Current file content:**

` + "```" + `
{{code}}
` + "```" + `

Instructions:
1. Fix the code smell while preserving all existing functionality
2. Follow best practices for the programming language
3. Return the ENTIRE updated file content in a single code block
4. Only send code
`

// builtinRuleTemplates overrides the default for rules where a more pointed
// instruction produces better fixes. Keys are RSPEC identifiers.
var builtinRuleTemplates = map[string]string{
	"RSPEC-125": `This file contains commented-out code ({{message}}).
Remove the dead commented-out block and nothing else.

` + "```" + `
{{code}}
` + "```" + `

Return the ENTIRE updated file content in a single code block. Only send code.
`,
	"RSPEC-1172": `This file has an unused function parameter: {{message}}
Remove the unused parameter and update every call site in this file.

` + "```" + `
{{code}}
` + "```" + `

Return the ENTIRE updated file content in a single code block. Only send code.
`,
	"RSPEC-1481": `This file declares an unused local variable: {{message}}
Remove the unused declaration, keeping any side effects of its initializer.

` + "```" + `
{{code}}
` + "```" + `

Return the ENTIRE updated file content in a single code block. Only send code.
`,
	"RSPEC-3776": `A function in this file exceeds the allowed cognitive complexity: {{message}}
Refactor it by extracting well-named helper functions. Behavior must not change.

` + "```" + `
{{code}}
` + "```" + `

Return the ENTIRE updated file content in a single code block. Only send code.
`,
}

// Catalog resolves per-rule templates and renders repair prompts.
type Catalog struct {
	templates map[string]string
	fallback  string
}

// NewCatalog creates a Catalog with the builtin templates.
func NewCatalog() *Catalog {
	templates := make(map[string]string, len(builtinRuleTemplates))
	for k, v := range builtinRuleTemplates {
		templates[k] = v
	}
	return &Catalog{templates: templates, fallback: defaultTemplate}
}

// overrideFile is the YAML shape of a prompt override file.
type overrideFile struct {
	Default string            `yaml:"default"`
	Rules   map[string]string `yaml:"rules"`
}

// LoadOverrides merges templates from a YAML file into the catalog.
// Rule keys are RSPEC identifiers; a non-empty "default" replaces the
// builtin fallback.
func (c *Catalog) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading prompt overrides: %w", err)
	}

	var of overrideFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return fmt.Errorf("parsing prompt overrides YAML: %w", err)
	}

	if strings.TrimSpace(of.Default) != "" {
		c.fallback = of.Default
	}
	for rule, tmpl := range of.Rules {
		c.templates[rule] = tmpl
	}
	return nil
}

// rspecKey converts a SonarQube rule id ("java:S1172") to the RSPEC key used
// by the catalog ("RSPEC-1172"). Returns "" when the rule has no S-number.
func rspecKey(rule string) string {
	idx := strings.Index(rule, ":S")
	if idx < 0 {
		return ""
	}
	num := rule[idx+2:]
	if _, err := strconv.Atoi(num); err != nil {
		return ""
	}
	return "RSPEC-" + num
}

// Build renders the repair prompt for a finding over the current file content.
func (c *Catalog) Build(f sonar.Finding, code string) (string, error) {
	tmpl := c.fallback
	if key := rspecKey(f.Rule); key != "" {
		if t, ok := c.templates[key]; ok {
			tmpl = t
		}
	}

	line := ""
	if f.Line > 0 {
		line = strconv.Itoa(f.Line)
	}
	return Render(tmpl, Vars{
		"message":  f.Message,
		"rule":     f.Rule,
		"severity": f.Severity,
		"line":     line,
		"code":     code,
	})
}
