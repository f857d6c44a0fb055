package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docdraft/internal/draftpath"
)

// MetaTouched is the marker metadata key holding the last publish time.
// Stale-draft cleanup reads it to decide liveness.
const MetaTouched = "touched"

// WriteMarker writes the source-repository marker into the local draft tree.
// The repository identifier is the file's sole content.
func WriteMarker(localDraft, repository string) error {
	if repository == "" {
		return fmt.Errorf("source repository is empty")
	}
	p := filepath.Join(localDraft, draftpath.MarkerName)
	if err := os.WriteFile(p, []byte(repository), 0o644); err != nil {
		return fmt.Errorf("write marker %s: %w", p, err)
	}
	return nil
}

// TouchMetadata returns the marker metadata for a publish at t.
func TouchMetadata(t time.Time) map[string]string {
	return map[string]string{MetaTouched: t.UTC().Format(time.RFC3339)}
}

// ParseTouched reads the touch time from marker metadata.
func ParseTouched(meta map[string]string) (time.Time, bool) {
	raw, ok := meta[MetaTouched]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
