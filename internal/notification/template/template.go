// Package template substitutes {{name}} placeholders in reminder templates.
package template

import "regexp"

var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Render replaces every {{name}} with data[name]. Placeholders without a
// value are left as written.
func Render(tmpl string, data map[string]string) string {
	if tmpl == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-2]
		if v, ok := data[name]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct placeholder names in order of first use.
func Placeholders(tmpl string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Unknown returns the placeholders in tmpl that are not in known.
func Unknown(tmpl string, known []string) []string {
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	var out []string
	for _, p := range Placeholders(tmpl) {
		if _, ok := set[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
