//nolint:varnamelen // Test files use idiomatic short variable names (t, etc.)
package errors_test

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	pkgerrors "github.com/joe/dir-sync/pkg/errors"
)

func TestEnricher_AlreadyActionableIsUnchanged(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	original := pkgerrors.NewActionableError(
		errors.New("permission denied"), //nolint:err113 // test error
		pkgerrors.CategoryPermission,
		[]string{"existing suggestion"},
		"/original/path",
	)

	enriched := pkgerrors.NewEnricher().Enrich(fmt.Errorf("wrapped: %w", original), "/new/path")

	g.Expect(enriched).Should(BeIdenticalTo(original))
}

func TestEnricher_Categories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected pkgerrors.ErrorCategory
	}{
		{"path error permission", &iofs.PathError{Op: "open", Path: "/x", Err: os.ErrPermission}, pkgerrors.CategoryPermission},
		{"path error missing", &iofs.PathError{Op: "open", Path: "/x", Err: os.ErrNotExist}, pkgerrors.CategoryPath},
		{"message permission", errors.New("open /x: Permission Denied"), pkgerrors.CategoryPermission}, //nolint:err113 // test error
		{"disk full", errors.New("write /x: no space left on device"), pkgerrors.CategoryDiskSpace},    //nolint:err113 // test error
		{"connection wins over path", errors.New("connection lost: file does not exist"), pkgerrors.CategoryConnection}, //nolint:err113,lll // test error
		{"short write", errors.New("short write"), pkgerrors.CategoryIO},                                   //nolint:err113 // test error
		{"same file", errors.New("a and b are the same file"), pkgerrors.CategorySameFile},                 //nolint:err113 // test error
		{"unknown", errors.New("something odd"), pkgerrors.CategoryUnknown},                                //nolint:err113 // test error
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			enriched := pkgerrors.NewEnricher().Enrich(tt.err, "")
			g.Expect(pkgerrors.CategoryOf(enriched)).Should(Equal(tt.expected))
			g.Expect(enriched.(pkgerrors.ActionableError).Suggestions()).ShouldNot(BeEmpty()) //nolint:forcetypeassert,errorlint // enricher always returns ActionableError
		})
	}
}

func TestEnricher_KeepsWrappedChain(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cause := &iofs.PathError{Op: "open", Path: "/src/a.txt", Err: os.ErrNotExist}
	enriched := pkgerrors.NewEnricher().Enrich(fmt.Errorf("failed to open source: %w", cause), "")

	g.Expect(errors.Is(enriched, os.ErrNotExist)).Should(BeTrue())
	g.Expect(enriched.Error()).Should(Equal("failed to open source: open /src/a.txt: file does not exist"))

	var actionable pkgerrors.ActionableError
	g.Expect(errors.As(enriched, &actionable)).Should(BeTrue())
	g.Expect(actionable.AffectedPath()).Should(Equal("/src/a.txt"))
}

func TestEnricher_ExtractsPathFromMessage(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := errors.New("stat /var/log/app.log: permission denied") //nolint:err113 // test error
	enriched := pkgerrors.NewEnricher().Enrich(err, "")

	var actionable pkgerrors.ActionableError
	g.Expect(errors.As(enriched, &actionable)).Should(BeTrue())
	g.Expect(actionable.AffectedPath()).Should(Equal("/var/log/app.log"))
	g.Expect(actionable.Suggestions()).Should(ContainElement("Check permissions with 'ls -la /var/log/app.log'"))
}

func TestEnricher_NilStaysNil(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(pkgerrors.NewEnricher().Enrich(nil, "/x")).Should(BeNil())
}

func TestFormatSuggestions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := pkgerrors.NewActionableError(errors.New("x"), pkgerrors.CategoryUnknown, []string{"one", "two"}, "") //nolint:err113,lll // test error

	g.Expect(pkgerrors.FormatSuggestions(err)).Should(Equal("one; two"))
	g.Expect(pkgerrors.FormatSuggestions(errors.New("plain"))).Should(BeEmpty()) //nolint:err113 // test error
	g.Expect(pkgerrors.FormatSuggestions(nil)).Should(BeEmpty())
}
