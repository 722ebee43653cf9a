package fileops

import (
	"errors"
	iofs "io/fs"

	"github.com/joe/dir-sync/internal/records"
	pkgerrors "github.com/joe/dir-sync/pkg/errors"
)

// Classify maps a CopyFile error onto the failure kinds recorded in a copy
// report. Sentinels decide first; anything else is categorized by message.
func Classify(err error) records.FailureKind {
	switch {
	case err == nil:
		return records.Other
	case errors.Is(err, ErrSameFile):
		return records.SameFile
	case errors.Is(err, ErrSourceMissing):
		return records.SourceMissing
	case errors.Is(err, iofs.ErrPermission):
		return records.PermissionDenied
	}

	switch pkgerrors.CategoryOf(pkgerrors.NewEnricher().Enrich(err, "")) {
	case pkgerrors.CategoryPermission:
		return records.PermissionDenied
	case pkgerrors.CategorySameFile:
		return records.SameFile
	default:
		return records.Other
	}
}
