package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Content limits in characters.
const (
	RequestMessageMaxLen   = 300
	ChatMessageMaxLen      = 1000
	PostContentMaxLen      = 2000
	PostMaxImages          = 4
	CommentMaxLen          = 500
	ReportDetailMaxLen     = 500
	ComplaintBodyMaxLen    = 2000
	ComplaintAnswerMaxLen  = 2000
	IcebreakerAnswerMaxLen = 200
	ResolutionNoteMaxLen   = 500
)

// Text trims s and checks that it holds between min and max characters.
func Text(field, s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < min {
		if min == 1 {
			return "", fmt.Errorf("%s is required", field)
		}
		return "", fmt.Errorf("%s must be at least %d characters", field, min)
	}
	if n > max {
		return "", fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return s, nil
}
