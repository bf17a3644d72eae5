// Package integrity compares two baselines into a classified change set.
// It performs no I/O and never mutates its inputs.
package integrity

import (
	"github.com/aegis-sec/aegisfim/internal/models"
)

// Diff compares an old baseline against a new one. Classification is
// digest-primary: a digest mismatch is always a content modification
// regardless of metadata; matching digests with differing permission bits
// are a permission-only modification; size or mtime drift alone never
// produces a MODIFIED entry (an mtime-only touch with unchanged content is
// not a change). All output sequences follow the baselines' lexicographic
// path order.
//
// A nil or empty old baseline yields first-run semantics: every new path is
// classified as added.
func Diff(oldBaseline, newBaseline *models.Baseline) *models.DiffResult {
	if oldBaseline == nil {
		oldBaseline = models.EmptyBaseline()
	}
	if newBaseline == nil {
		newBaseline = models.EmptyBaseline()
	}

	result := &models.DiffResult{}

	for _, path := range newBaseline.SortedPaths() {
		newRec := newBaseline.Records[path]
		oldRec, existed := oldBaseline.Records[path]
		if !existed {
			result.Added = append(result.Added, newRec)
			continue
		}

		var flags models.ChangeFlags
		if !oldRec.SameContent(newRec) {
			flags |= models.ChangeContent
		}
		if oldRec.Permissions() != newRec.Permissions() {
			flags |= models.ChangePermissions
		}

		if flags == 0 {
			result.Unchanged++
			continue
		}
		result.Modified = append(result.Modified, models.ModifiedEntry{
			Path:  path,
			Old:   oldRec,
			New:   newRec,
			Flags: flags,
		})
	}

	for _, path := range oldBaseline.SortedPaths() {
		if _, exists := newBaseline.Records[path]; !exists {
			result.Removed = append(result.Removed, oldBaseline.Records[path])
		}
	}

	return result
}
