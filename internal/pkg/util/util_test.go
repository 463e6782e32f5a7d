package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateInviteCode(8)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(inviteAlphabet, c))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestTimeCursor(t *testing.T) {
	at := time.UnixMilli(1712345678901).UTC()
	got, err := DecodeTimeCursor(EncodeTimeCursor(at))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, at.Equal(*got))

	got, err = DecodeTimeCursor("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = DecodeTimeCursor("%%%")
	assert.Error(t, err)
}

func TestValidateDTO(t *testing.T) {
	type input struct {
		Name string `validate:"required,max=3"`
	}
	assert.NoError(t, ValidateDTO(input{Name: "abc"}))
	assert.Error(t, ValidateDTO(input{}))
	assert.Error(t, ValidateDTO(input{Name: "abcd"}))
}
