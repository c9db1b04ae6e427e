package storage

import (
	"path"
	"strings"
)

const maxStemLen = 100

// KeyForFilename derives the storage key for an uploaded file from its
// original name. The mapping is deterministic so a second upload of the same
// name lands on the same key and is detected as a duplicate.
func KeyForFilename(name string) string {
	name = baseName(name)
	ext := sanitizeExt(path.Ext(name))
	stem := sanitizeStem(strings.TrimSuffix(name, path.Ext(name)))
	return stem + ext
}

// ThumbnailKey ties the thumbnail key to the whole content key, extension
// included, so replacing the content targets the same thumbnail object and
// files that only differ in extension never share one.
func ThumbnailKey(contentKey, thumbnailName string) string {
	ext := sanitizeExt(path.Ext(baseName(thumbnailName)))
	return contentKey + "-thumb" + ext
}

// baseName strips directories using either separator; browsers on Windows
// may send full client paths.
func baseName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	return path.Base(name)
}

func sanitizeStem(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, name)
	if len(name) > maxStemLen {
		name = name[:maxStemLen]
	}
	if strings.Trim(name, "_") == "" {
		return "file"
	}
	return name
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || b.Len() > 10 {
		return ""
	}
	return "." + b.String()
}
