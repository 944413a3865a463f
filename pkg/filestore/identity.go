package filestore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/reportforge/reportforge/pkg/defaults"
)

// Kind selects the identity scheme of a new document.
type Kind string

const (
	KindFull     Kind = "full"
	KindBriefing Kind = "briefing"
)

// ErrInvalidIdentity is wrapped when an identity could escape the storage
// directory or is not a PDF file name.
var ErrInvalidIdentity = errors.New("filestore: invalid identity")

const maxIdentityLen = 255

// NewIdentity returns a fresh identity for kind.
func NewIdentity(kind Kind) string {
	id := uuid.NewString() + defaults.PDFExtension
	if kind == KindBriefing {
		return defaults.BriefingPrefix + id
	}
	return id
}

// ValidateIdentity checks that id is a plain PDF file name.
func ValidateIdentity(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentity)
	case len(id) > maxIdentityLen:
		return fmt.Errorf("%w: too long", ErrInvalidIdentity)
	case strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: contains a path separator", ErrInvalidIdentity)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: hidden name", ErrInvalidIdentity)
	case !strings.HasSuffix(id, defaults.PDFExtension) || len(id) == len(defaults.PDFExtension):
		return fmt.Errorf("%w: not a %s name", ErrInvalidIdentity, defaults.PDFExtension)
	}
	return nil
}

// KindOf infers the kind from an identity's prefix.
func KindOf(id string) Kind {
	if strings.HasPrefix(id, defaults.BriefingPrefix) {
		return KindBriefing
	}
	return KindFull
}
