package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	// sha256("hello") is a fixed vector.
	assert.Equal(t,
		"sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Digest("hello"),
	)

	assert.Equal(t, Digest("same"), Digest("same"))
	assert.NotEqual(t, Digest("one"), Digest("two"))
}
