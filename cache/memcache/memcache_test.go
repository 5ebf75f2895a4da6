package memcache

import (
	"testing"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache/testkit"
)

func TestConformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) cache.Store {
		t.Helper()
		return New()
	})
}
