package utils

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomCode returns an n-character code from an unambiguous alphabet.
func RandomCode(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	for i := range b {
		b[i] = referenceAlphabet[int(b[i])%len(referenceAlphabet)]
	}
	return string(b)
}

// PaymentReference builds a provider order id such as "BK-3F2A9C1E-7KQ2M".
// Payment processors reject reused order ids, so each authorization attempt gets a new suffix.
func PaymentReference(prefix string, id uuid.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return prefix + "-" + short + "-" + RandomCode(5)
}
