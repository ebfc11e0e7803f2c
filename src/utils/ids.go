package utils

import (
	"strings"

	"github.com/google/uuid"
)

var idNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// GenerateUUID generates a deterministic UUID (version 5) from multiple input
// strings, so that derived records recomputed from the same inputs keep their id.
func GenerateUUID(inputs ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(inputs, "|"))).String()
}
