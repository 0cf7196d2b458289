package blob

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const maxNameLen = 100

// FileKey is the storage key for an uploaded submission file.
func FileKey(submissionID, originalName string) string {
	return fmt.Sprintf("submissions/%s/%s-%s", submissionID, uuid.NewString(), SanitizeFilename(originalName))
}

// ExportKey is the storage key for a generated archive.
func ExportKey(submissionID string) string {
	return fmt.Sprintf("exports/%s/%s.zip", submissionID, uuid.NewString())
}

// SanitizeFilename keeps ASCII letters, digits, dots and dashes and drops
// everything else. Path components are dropped.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}
