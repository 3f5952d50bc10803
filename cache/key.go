package cache

import (
	"strconv"

	"github.com/mitchellh/hashstructure/v2"
)

// Key derives a stable string cache key from an arbitrary argument tuple
// (for example, a lookup op's `from` table plus its `needle`, or a
// sub-rule call's `@input`), so two structurally identical calls share
// one cache slot regardless of the exact Go value identity involved.
func Key(parts ...any) (string, error) {
	h, err := hashstructure.Hash(parts, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(h, 16), nil
}
