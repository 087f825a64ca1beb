package idhash

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FilenameExt is the artifact extension.
const FilenameExt = ".webp"

var filenamePattern = regexp.MustCompile(`^DOOM_\d{12}_[0-9a-f]{8}_[0-9a-f]{12}\.webp$`)

// Filename builds DOOM_{YYYYMMDDHHmm}_{paramsHash}_{seed}.webp.
func Filename(t time.Time, paramsHash, seed string) string {
	return fmt.Sprintf("DOOM_%s_%s_%s%s", t.UTC().Format("200601021504"), paramsHash, seed, FilenameExt)
}

// ValidFilename reports whether name matches the artifact filename pattern.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// PaintingID returns the filename without its extension.
func PaintingID(filename string) string {
	return strings.TrimSuffix(filename, FilenameExt)
}

// ObjectKey returns the blob key images/yyyy/mm/dd/<id>.webp.
func ObjectKey(t time.Time, id string) string {
	return fmt.Sprintf("images/%s/%s%s", t.UTC().Format("2006/01/02"), id, FilenameExt)
}
