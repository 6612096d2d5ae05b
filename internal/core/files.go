package core

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// ObjectName returns a globally unique storage name for an uploaded file,
// keeping the original extension (lowercased).
func ObjectName(original string) string {
	name := uuid.NewString()
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(original, "\\", "/")))
	if ext == "." {
		ext = ""
	}
	return name + ext
}
