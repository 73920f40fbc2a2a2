package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisteredGroups(t *testing.T) {
	names := Names()
	for _, want := range []string{"admin", "bookmarks", "extract", "liveness", "metrics", "probes"} {
		assert.Contains(t, names, want)
	}
	assert.Len(t, names, 6)
}
