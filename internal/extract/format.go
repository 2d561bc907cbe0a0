package extract

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var knownExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".odt": true, ".xlsx": true, ".pptx": true,
	".odp": true, ".ods": true, ".txt": true, ".md": true, ".rst": true, ".csv": true,
}

// formatOf returns the extension used to pick a format: the name's extension when it
// is known, otherwise one derived from the content's detected MIME type.
func formatOf(name string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if knownExtensions[ext] {
		return ext
	}
	return sniff(content)
}

func sniff(content []byte) string {
	for m := mimetype.Detect(content); m != nil; m = m.Parent() {
		if knownExtensions[m.Extension()] {
			return m.Extension()
		}
		if m.Is("text/plain") {
			return ".txt"
		}
	}
	return ""
}
