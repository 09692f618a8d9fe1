// Package validation holds input rules shared by services and handlers.
package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	NicknameMinLen  = 2
	NicknameMaxLen  = 20
	BioMaxLen       = 150
	MaxInterests    = 5
	InterestMaxLen  = 20
	FlagValueMaxLen = 64
)

// ValidateNickname accepts 2-20 letters, digits, '_' or '.'. Hangul and other
// scripts count as letters.
func ValidateNickname(nickname string) error {
	n := utf8.RuneCountInString(nickname)
	if n < NicknameMinLen || n > NicknameMaxLen {
		return fmt.Errorf("nickname must be %d-%d characters", NicknameMinLen, NicknameMaxLen)
	}
	for _, r := range nickname {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			continue
		}
		return fmt.Errorf("nickname may only contain letters, numbers, '_' and '.'")
	}
	return nil
}

// NicknameKey is the case-insensitive uniqueness key for a nickname.
func NicknameKey(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

// ValidateBio enforces the bio length.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > BioMaxLen {
		return fmt.Errorf("bio must be at most %d characters", BioMaxLen)
	}
	return nil
}

// NormalizeInterests trims tags and rejects empty, overlong or repeated ones.
// Repeats are detected case-insensitively.
func NormalizeInterests(tags []string) ([]string, error) {
	if len(tags) > MaxInterests {
		return nil, fmt.Errorf("at most %d interests are allowed", MaxInterests)
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, fmt.Errorf("interests must not be empty")
		}
		if utf8.RuneCountInString(tag) > InterestMaxLen {
			return nil, fmt.Errorf("each interest must be at most %d characters", InterestMaxLen)
		}
		if strings.ContainsAny(tag, `"\`) {
			return nil, fmt.Errorf("interests must not contain quotes or backslashes")
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("interests must be distinct")
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}
