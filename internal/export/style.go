package export

import (
	"fmt"
	"strings"
)

// backgroundProps are copied from the computed style so the capture keeps
// backgrounds inherited from ancestors
var backgroundProps = []string{
	"background-color",
	"background-image",
	"background-size",
	"background-position",
	"background-repeat",
}

// captureStyle appends capture overrides to the original inline style. Later
// declarations win, so the original stays intact underneath. A zero height
// leaves the element free to grow with the extra padding.
func captureStyle(original string, computed map[string]string, width, height float64) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimRight(strings.TrimSpace(original), ";"))
	if sb.Len() > 0 {
		sb.WriteString("; ")
	}

	decls := []string{
		"transform: none",
		"transition: none",
		"margin: 0",
		"padding: 16px",
		"overflow: hidden",
	}
	for _, prop := range backgroundProps {
		if v := strings.TrimSpace(computed[prop]); v != "" {
			decls = append(decls, fmt.Sprintf("%s: %s", prop, v))
		}
	}
	if width > 0 {
		decls = append(decls, fmt.Sprintf("width: %.2fpx", width))
	}
	if height > 0 {
		decls = append(decls, fmt.Sprintf("height: %.2fpx", height))
	}

	sb.WriteString(strings.Join(decls, "; "))
	sb.WriteString(";")
	return sb.String()
}
