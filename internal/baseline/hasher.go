package baseline

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/aegis-sec/aegisfim/internal/models"
)

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case models.AlgorithmSHA256:
		return sha256.New(), nil
	case models.AlgorithmSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm '%s'", algorithm)
	}
}

// hashFile streams the file content through the configured digest in one pass
// and captures metadata from the open handle, so digest and metadata describe
// the same inode even if the path is replaced mid-scan.
func hashFile(path, algorithm string) (models.FileRecord, error) {
	hasher, err := newHasher(algorithm)
	if err != nil {
		return models.FileRecord{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return models.FileRecord{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.FileRecord{}, err
	}

	if _, err := io.Copy(hasher, f); err != nil {
		return models.FileRecord{}, fmt.Errorf("failed to read '%s': %w", path, err)
	}

	return models.FileRecord{
		Path:      path,
		Size:      info.Size(),
		ModTime:   info.ModTime().UTC(),
		Mode:      info.Mode(),
		Digest:    hex.EncodeToString(hasher.Sum(nil)),
		Algorithm: algorithm,
	}, nil
}
