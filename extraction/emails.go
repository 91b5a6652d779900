package extraction

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ExtractEmails returns the distinct addresses in text, lowercased, in order
// of first appearance.
func ExtractEmails(text string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range emailRe.FindAllString(text, -1) {
		addr := strings.ToLower(strings.TrimRight(m, "."))
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}
