// Package markdown enforces the structural contract of the final report:
// one title line, the four canonical sections in fixed order, references
// last. Normalize is deterministic and idempotent so the editor can apply it
// unconditionally as its last step.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical section headers, in required order. References is emitted only
// when it has content.
var sectionOrder = []string{
	"Company Overview",
	"Industry Overview",
	"Financial Overview",
	"News",
	"References",
}

var bulletRe = regexp.MustCompile(`^(\s*)[-+•]\s+`)

// Normalize rewrites a report into the fixed document structure. Unknown
// second-level headers are demoted to subsections of the section they appear
// in; code fences are stripped; bullets become "*"; blank runs collapse to a
// single blank line.
func Normalize(content, company string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	title := fmt.Sprintf("# %s Research Report", company)
	sections := make(map[string][]string, len(sectionOrder))
	var preamble []string
	current := ""
	sawTitle := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			continue
		}

		if !sawTitle && strings.HasPrefix(trimmed, "# ") && !strings.HasPrefix(trimmed, "## ") {
			title = trimmed
			sawTitle = true
			continue
		}

		if strings.HasPrefix(trimmed, "## ") {
			name := classify(strings.TrimPrefix(trimmed, "## "))
			if name != "" {
				current = name
				continue
			}
			// Not a canonical section: demote to a subsection of wherever
			// we are.
			line = "### " + strings.TrimPrefix(trimmed, "## ")
		}

		line = bulletRe.ReplaceAllString(line, "${1}* ")

		if current == "" {
			preamble = append(preamble, line)
		} else {
			sections[current] = append(sections[current], line)
		}
	}

	out := []string{title, ""}
	if body := collapse(preamble); len(body) > 0 {
		out = append(out, body...)
		out = append(out, "")
	}
	for _, name := range sectionOrder {
		body := collapse(sections[name])
		if name == "References" && len(body) == 0 {
			continue
		}
		out = append(out, "## "+name, "")
		if len(body) > 0 {
			out = append(out, body...)
			out = append(out, "")
		}
	}

	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}

// classify maps a header to its canonical section, or "" if it matches none.
func classify(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case strings.Contains(h, "reference"):
		return "References"
	case strings.Contains(h, "news"):
		return "News"
	case strings.Contains(h, "financ"):
		return "Financial Overview"
	case strings.Contains(h, "industry"):
		return "Industry Overview"
	case strings.Contains(h, "company") || h == "overview":
		return "Company Overview"
	}
	return ""
}

// collapse trims leading/trailing blank lines and squeezes runs of blank
// lines down to one.
func collapse(lines []string) []string {
	var out []string
	blank := true // swallow leading blanks
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
