package ocrprocessor

import "strings"

// splitLanguages turns "eng+deu" into ["eng", "deu"]. Empty input yields eng.
func splitLanguages(language string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(language, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	}) {
		out = append(out, strings.ToLower(part))
	}
	if len(out) == 0 {
		return []string{"eng"}
	}
	return out
}
