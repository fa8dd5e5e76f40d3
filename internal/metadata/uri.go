// Package metadata resolves asset metadata locations. Resolution is pure:
// the hosted document lives at a fixed base path keyed by asset id.
package metadata

import (
	"fmt"
	"strings"
)

// TokenURI returns the metadata URI for an asset id under the given base
func TokenURI(baseURI string, id uint64) string {
	return fmt.Sprintf("%s/%d", strings.TrimSuffix(baseURI, "/"), id)
}
