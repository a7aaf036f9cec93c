package synth

import (
	"regexp"
	"strings"
)

var titleLabel = regexp.MustCompile(`(?i)^(subject|title)\s*:\s*`)

const quoteChars = "\"'“”‘’"

// SplitTitle separates the first line of a generated review or email from the
// rest. Surrounding quotes and a leading "Subject:" or "Title:" label are
// removed from the title. Text without a line break is all body.
func SplitTitle(raw string) (title, body string) {
	raw = strings.TrimSpace(raw)
	first, rest, found := strings.Cut(raw, "\n")
	if !found {
		return "", raw
	}

	title = strings.TrimSpace(first)
	title = strings.Trim(title, quoteChars)
	title = titleLabel.ReplaceAllString(title, "")
	title = strings.TrimSpace(strings.Trim(title, quoteChars))

	return title, strings.TrimSpace(rest)
}
