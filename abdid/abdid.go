// Package abdid mints short, human-readable debug identities for
// chunkpool.Pool and rawpool.Pool instances. These appear only in log
// fields and panic diagnostics; they are never a substitute for the
// fixed 64-bit magic sentinel a Handle carries per spec.md §3.
package abdid

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// encodedLen is the fixed width a 16-byte UUID encodes to in base 62:
// 62^22 comfortably exceeds 2^128, so every UUID fits, and padding short
// encodings out to this width keeps ID.String's output length constant.
const encodedLen = 22

// ID is a pool identity: a short tag (e.g. "chunkpool", "rawpool") plus a
// base-62 encoded UUID, formatted as "tag_XXXXXXXXXXXXXXXXXXXXXX".
type ID struct {
	tag string
	u   uuid.UUID
}

// New mints a fresh ID tagged with tag.
func New(tag string) ID {
	return ID{tag: tag, u: uuid.New()}
}

func (id ID) String() string {
	return fmt.Sprintf("%s_%s", id.tag, encode(id.u))
}

// Parse parses the output of ID.String for a known tag.
func Parse(tag, s string) (ID, error) {
	prefix := tag + "_"
	if !strings.HasPrefix(s, prefix) {
		return ID{}, errors.Errorf("abdid: %q does not have expected tag %q", s, tag)
	}
	u, err := decode(strings.TrimPrefix(s, prefix))
	if err != nil {
		return ID{}, errors.Wrapf(err, "abdid: parsing %q", s)
	}
	return ID{tag: tag, u: u}, nil
}

func encode(u uuid.UUID) string {
	s := new(big.Int).SetBytes(u[:]).Text(62)
	if pad := encodedLen - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return s
}

func decode(s string) (uuid.UUID, error) {
	n, ok := new(big.Int).SetString(s, 62)
	if !ok {
		return uuid.Nil, errors.Errorf("abdid: %q is not a valid base-62 value", s)
	}

	raw := n.Bytes()
	if len(raw) > 16 {
		return uuid.Nil, errors.Errorf("abdid: %q decodes to more than 16 bytes", s)
	}
	var b [16]byte
	copy(b[16-len(raw):], raw)
	return uuid.UUID(b), nil
}
