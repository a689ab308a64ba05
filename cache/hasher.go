package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hasher turns an operation identity and its ordered parameters into a
// cache key. Equal inputs must give equal keys.
type Hasher interface {
	Hash(identity string, params []any) string
}

type xxHasher struct {
	serializer ParamSerializer
}

// NewHasher returns the default hasher: the serialized input hashed with
// xxhash64 and rendered as 16 hex digits. A nil serializer selects
// NewParamSerializer.
func NewHasher(serializer ParamSerializer) Hasher {
	if serializer == nil {
		serializer = NewParamSerializer()
	}
	return &xxHasher{serializer: serializer}
}

func (h *xxHasher) Hash(identity string, params []any) string {
	sum := xxhash.Sum64String(h.serializer.Serialize(identity, params))
	return fmt.Sprintf("%016x", sum)
}
