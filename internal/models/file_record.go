package models

import (
	"io/fs"
	"time"
)

// Supported digest algorithm identifiers. The identifier is stored on every
// FileRecord so baselines with mixed algorithms remain self-describing.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmSHA512 = "sha512"
)

// FileRecord captures the state of one monitored file at scan time.
// Digest is the lowercase hex encoding of the content hash, computed over the
// full file content in a single streaming pass.
type FileRecord struct {
	Path      string      `json:"path" parquet:"path,zstd"`
	Size      int64       `json:"size" parquet:"size"`
	ModTime   time.Time   `json:"mtime" parquet:"mtime"`
	Mode      fs.FileMode `json:"mode" parquet:"mode"`
	Digest    string      `json:"digest" parquet:"digest,zstd"`
	Algorithm string      `json:"algorithm" parquet:"algorithm,zstd"`
}

// Permissions returns only the permission bits of the recorded mode.
func (r FileRecord) Permissions() fs.FileMode {
	return r.Mode.Perm()
}

// SameContent reports whether two records carry the same content digest under
// the same algorithm. Records hashed with different algorithms are never
// considered equal content, even if the hex strings happened to collide.
func (r FileRecord) SameContent(other FileRecord) bool {
	return r.Algorithm == other.Algorithm && r.Digest == other.Digest
}
