package models

import "strings"

// ChangeFlags indicates which aspects of a file changed between two baselines.
type ChangeFlags uint8

const (
	// ChangeContent marks a content digest mismatch.
	ChangeContent ChangeFlags = 1 << iota
	// ChangePermissions marks a permission-bit change with unchanged content.
	ChangePermissions
)

// Has reports whether all bits in flag are set.
func (f ChangeFlags) Has(flag ChangeFlags) bool {
	return f&flag == flag
}

// Fields returns the changed-field names carried by the flags, in a fixed order.
func (f ChangeFlags) Fields() []string {
	var fields []string
	if f.Has(ChangeContent) {
		fields = append(fields, "content")
	}
	if f.Has(ChangePermissions) {
		fields = append(fields, "permissions")
	}
	return fields
}

func (f ChangeFlags) String() string {
	fields := f.Fields()
	if len(fields) == 0 {
		return "none"
	}
	return strings.Join(fields, ",")
}

// ModifiedEntry pairs the old and new record of a file present in both
// baselines whose content or permissions differ.
type ModifiedEntry struct {
	Path  string
	Old   FileRecord
	New   FileRecord
	Flags ChangeFlags
}

// DiffResult is the classified comparison of an old baseline against a new
// one. Added, Removed and Modified are disjoint and each sorted by path, so
// reporting is independent of filesystem enumeration order.
type DiffResult struct {
	Added     []FileRecord
	Removed   []FileRecord
	Modified  []ModifiedEntry
	Unchanged int
}

// IsEmpty reports whether no changes were detected.
func (d *DiffResult) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// TotalChanges returns the number of changed paths across all classes.
func (d *DiffResult) TotalChanges() int {
	return len(d.Added) + len(d.Removed) + len(d.Modified)
}
