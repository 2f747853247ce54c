package util

import (
	"strings"
	"unicode"
)

// ExtractMentions extracts @username mentions from text content.
// Returns unique usernames (lowercase, without @), in order of appearance.
func ExtractMentions(content string) []string {
	return extractTokens(content, '@', 3, 30)
}

// ExtractHashtags extracts #tag tokens, lowercased and deduplicated
func ExtractHashtags(content string) []string {
	return extractTokens(content, '#', 1, 64)
}

func extractTokens(content string, prefix rune, minLen, maxLen int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(content) {
		if !strings.HasPrefix(word, string(prefix)) {
			continue
		}
		token := strings.TrimPrefix(word, string(prefix))
		token = strings.TrimRightFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		token = strings.ToLower(token)
		if n := len([]rune(token)); n < minLen || n > maxLen || seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out
}

// NormalizeTags lowercases, strips a leading #, and drops duplicates and blanks
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
