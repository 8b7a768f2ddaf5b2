package archive

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"
)

// Artifact describes one saved file.
type Artifact struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"` // blake3, hex
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ArtifactStore writes generated files under a root directory. Paths must be
// relative, must stay inside the root, and must match one of the allow globs.
type ArtifactStore struct {
	root  string
	allow []string
}

// NewArtifactStore creates an ArtifactStore. An empty allow list permits any
// path inside the root.
func NewArtifactStore(root string, allowGlobs []string) (*ArtifactStore, error) {
	for _, g := range allowGlobs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid allow glob: %q", g)
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifacts root: %w", err)
	}
	return &ArtifactStore{root: abs, allow: allowGlobs}, nil
}

// Save writes data to relPath under the root and returns the artifact record
// with its blake3 checksum.
func (a *ArtifactStore) Save(relPath string, data []byte) (Artifact, error) {
	rel := filepath.ToSlash(filepath.Clean(relPath))
	if rel == "." || strings.HasPrefix(rel, "../") || filepath.IsAbs(rel) {
		return Artifact{}, fmt.Errorf("artifact path escapes root: %q", relPath)
	}
	if len(a.allow) > 0 {
		allowed := false
		for _, g := range a.allow {
			if ok, _ := doublestar.Match(g, rel); ok {
				allowed = true
				break
			}
		}
		if !allowed {
			return Artifact{}, fmt.Errorf("artifact path %q matches no allow glob", rel)
		}
	}

	dst := filepath.Join(a.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}

	h := blake3.New()
	_, _ = h.Write(data)
	return Artifact{
		Path:      rel,
		Checksum:  hex.EncodeToString(h.Sum(nil)),
		Size:      int64(len(data)),
		CreatedAt: time.Now().UTC(),
	}, nil
}
