package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "dev", String())

	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })
	Version, Commit, Date = "1.2.0", "abc123", "2024-12-01"
	assert.Equal(t, "1.2.0 (commit: abc123, built: 2024-12-01)", String())
}
