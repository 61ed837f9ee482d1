// Package fields converts list-valued entity fields to and from the single
// comma-separated text field an operator edits.
package fields

import "strings"

const separator = ", "

// ToEditable joins values for display in one text field.
func ToEditable(values []string) string {
	return strings.Join(values, separator)
}

// ToList splits text on commas, trims each token and drops empty ones.
// Order is preserved and duplicates are kept. The result is never nil.
func ToList(text string) []string {
	out := make([]string, 0)
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		out = append(out, token)
	}
	return out
}
