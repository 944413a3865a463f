package filestore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIdentity(t *testing.T) {
	full := NewIdentity(KindFull)
	assert.True(t, strings.HasSuffix(full, ".pdf"))
	assert.Len(t, full, 36+4)
	assert.NoError(t, ValidateIdentity(full))
	assert.Equal(t, KindFull, KindOf(full))

	briefing := NewIdentity(KindBriefing)
	assert.True(t, strings.HasPrefix(briefing, "briefing-"))
	assert.NoError(t, ValidateIdentity(briefing))
	assert.Equal(t, KindBriefing, KindOf(briefing))

	assert.NotEqual(t, full, NewIdentity(KindFull))
}

func TestValidateIdentity(t *testing.T) {
	invalid := []string{
		"",
		".pdf",
		".hidden.pdf",
		"../etc/passwd.pdf",
		"a/b.pdf",
		`a\b.pdf`,
		"report.html",
		"nul\x00.pdf",
		strings.Repeat("a", 300) + ".pdf",
	}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateIdentity(id), ErrInvalidIdentity, "%q", id)
	}
	assert.NoError(t, ValidateIdentity("report-1.pdf"))
}
