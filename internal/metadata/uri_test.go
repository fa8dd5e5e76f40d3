package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenURI(t *testing.T) {
	assert.Equal(t,
		"https://s.nft.mirrah.art/one/metadata/7",
		TokenURI("https://s.nft.mirrah.art/one/metadata", 7))

	// trailing slash on the base does not double up
	assert.Equal(t,
		"https://s.nft.mirrah.art/one/metadata/0",
		TokenURI("https://s.nft.mirrah.art/one/metadata/", 0))
}
