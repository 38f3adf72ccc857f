package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// DeriveKey builds a cache key for a derived computation: the
// namespace stays readable for invalidation by prefix, the variable
// parts collapse into a fixed-width hash so statements and argument
// lists of any length produce bounded keys.
func DeriveKey(namespace string, parts ...interface{}) string {
	h := xxhash.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%v|", p)
	}
	return fmt.Sprintf("%s::%016x", namespace, h.Sum64())
}
