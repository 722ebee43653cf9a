//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package syncengine_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dir-sync/internal/syncengine"
)

func TestExcludeFilter_Excludes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		path     string
		excluded bool
	}{
		{name: "no patterns", patterns: nil, path: "a/b.txt", excluded: false},
		{name: "blank patterns ignored", patterns: []string{"", "  "}, path: "a.txt", excluded: false},
		{name: "top-level glob", patterns: []string{"*.tmp"}, path: "x.tmp", excluded: true},
		{name: "top-level glob does not recurse", patterns: []string{"*.tmp"}, path: "dir/x.tmp", excluded: false},
		{name: "recursive glob", patterns: []string{"**/*.tmp"}, path: "dir/sub/x.tmp", excluded: true},
		{name: "directory name anywhere", patterns: []string{"**/node_modules"}, path: "web/node_modules", excluded: true},
		{name: "case insensitive pattern", patterns: []string{"**/*.MOV"}, path: "clips/a.mov", excluded: true},
		{name: "case insensitive path", patterns: []string{"thumbs.db"}, path: "Thumbs.DB", excluded: true},
		{name: "brace alternatives", patterns: []string{"**/*.{bak,swp}"}, path: "a/b.swp", excluded: true},
		{name: "any of several", patterns: []string{"*.a", "*.b"}, path: "x.b", excluded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			filter, err := syncengine.NewExcludeFilter(tt.patterns)
			g.Expect(err).ShouldNot(HaveOccurred())
			g.Expect(filter.Excludes(tt.path)).Should(Equal(tt.excluded))
		})
	}
}

func TestExcludeFilter_InvalidPattern(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := syncengine.NewExcludeFilter([]string{"[unclosed"})
	g.Expect(err).Should(MatchError(syncengine.ErrInvalidInput))
}

func TestExcludeFilter_NilExcludesNothing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var filter *syncengine.ExcludeFilter
	g.Expect(filter.Excludes("anything")).Should(BeFalse())
	g.Expect(filter.Patterns()).Should(BeNil())
}
