package compliance

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NaturalKeyID derives a stable UUIDv5 from the parts of a natural key, so repeated
// upserts of the same row always carry the same primary key
func NaturalKeyID(namespace uuid.UUID, parts ...any) uuid.UUID {
	keys := make([]string, len(parts))
	for i, p := range parts {
		keys[i] = fmt.Sprint(p)
	}
	return uuid.NewSHA1(namespace, []byte(strings.Join(keys, "/")))
}
