package checkout

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/copperspur/rodeo-backend/pkg/enums"
)

// codeAlphabet drops 0/O/1/I so codes survive being read over a headset at
// the gate.
const (
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeSuffixLen     = 6
	codeCreateRetries = 1
)

// newConfirmationCode builds a kind-prefixed, human-readable code like
// TKT-1717243200-A7K2MQ. The prefix routes gate scans and webhook order_no
// lookups to the right table; the suffix comes from crypto/rand.
func newConfirmationCode(kind enums.OrderKind, now time.Time) (string, error) {
	raw := make([]byte, codeSuffixLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating confirmation code: %w", err)
	}

	suffix := make([]byte, codeSuffixLen)
	for i, b := range raw {
		suffix[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return fmt.Sprintf("%s-%d-%s", kind.CodePrefix(), now.Unix(), suffix), nil
}
