package chat

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRE = regexp.MustCompile(`(?s)<think>.*?</think>`)
	markdownRE   = regexp.MustCompile(`[*_#]+`)
	whitespaceRE = regexp.MustCompile(`\s+`)
	bracesRE     = regexp.MustCompile(`[{}]+`)
)

// sanitizeResponse strips model reasoning blocks and markdown noise from a
// generated answer, leaving plain single-spaced text.
func sanitizeResponse(response string) string {
	response = thinkBlockRE.ReplaceAllString(response, "")
	response = markdownRE.ReplaceAllString(response, "")
	response = strings.TrimSpace(whitespaceRE.ReplaceAllString(response, " "))
	response = bracesRE.ReplaceAllString(response, "")
	return response
}
