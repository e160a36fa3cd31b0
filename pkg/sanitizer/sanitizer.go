package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims s and collapses every whitespace run to one space
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func removeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeText cleans single-line free text such as titles and display names
func SanitizeText(input string) string {
	return Pipeline{stripControl, TrimAndNormalize}.Apply(input)
}

// SanitizeMultiline cleans descriptions and messages, keeping line breaks
func SanitizeMultiline(input string) string {
	lines := strings.Split(stripControl(strings.ReplaceAll(input, "\r\n", "\n")), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, TrimAndNormalize(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// SanitizeIdentifier cleans opaque ids and references
func SanitizeIdentifier(input string) string {
	return Pipeline{stripControl, removeSpaces}.Apply(input)
}

func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
