package collection

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var keyReplacer = strings.NewReplacer(" ", "_", "\t", "_", "/", "_", `\`, "_")

// StorageKey derives the object key for an uploaded file: the upload time in
// milliseconds, an underscore, then the file's base name. Any directory part
// is dropped and whitespace becomes "_"; everything else is kept as given.
// Two uploads of the same name within one millisecond collide.
func StorageKey(now time.Time, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = keyReplacer.Replace(strings.TrimSpace(base))
	if base == "" || base == "." || base == ".." {
		base = "photo"
	}
	return fmt.Sprintf("%d_%s", now.UnixMilli(), base)
}
