package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNickname(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		nickname string
		wantErr  bool
	}{
		{"Valid", "mina_92", false},
		{"Hangul", "홍길동", false},
		{"Exactly Max Length", strings.Repeat("가", 20), false},
		{"Too Short", "a", true},
		{"Too Long", strings.Repeat("a", 21), true},
		{"Space", "mi na", true},
		{"Symbol", "mina!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNickname(tt.nickname)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, "mina", NicknameKey(" MiNa "))
}

func TestValidateBio(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateBio(strings.Repeat("가", BioMaxLen)))
	assert.Error(t, ValidateBio(strings.Repeat("a", BioMaxLen+1)))
}

func TestNormalizeInterests(t *testing.T) {
	t.Parallel()

	got, err := NormalizeInterests([]string{" music ", "Film"})
	require.NoError(t, err)
	assert.Equal(t, []string{"music", "Film"}, got)

	got, err = NormalizeInterests(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	bad := map[string][]string{
		"too many":  {"a", "b", "c", "d", "e", "f"},
		"empty":     {"a", "  "},
		"too long":  {strings.Repeat("x", InterestMaxLen+1)},
		"duplicate": {"Music", "music"},
		"quote":     {`a"b`},
	}
	for name, tags := range bad {
		_, err := NormalizeInterests(tags)
		assert.Error(t, err, name)
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	s, err := Text("message", "  hello ", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	_, err = Text("message", "   ", 1, 5)
	assert.EqualError(t, err, "message is required")

	_, err = Text("message", "toolong", 1, 5)
	assert.EqualError(t, err, "message must be at most 5 characters")

	_, err = Text("reason", "a", 2, 5)
	assert.EqualError(t, err, "reason must be at least 2 characters")
}
