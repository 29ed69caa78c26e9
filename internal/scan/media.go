package scan

import (
	"path/filepath"
	"strings"

	"github.com/franz/photo-tidy/internal/catalog"
)

// PhotoExtensions are the supported photo file extensions
var PhotoExtensions = []string{
	".jpg",
	".jpeg",
	".png",
	".heic",
	".heif",
	".gif",
	".tiff",
	".tif",
	".bmp",
	".webp",
	".dng",
	".cr2", // Canon raw
	".nef", // Nikon raw
	".arw", // Sony raw
}

// VideoExtensions are the supported video file extensions
var VideoExtensions = []string{
	".mov",
	".mp4",
	".m4v",
	".avi",
	".mkv",
	".webm",
	".mts",
	".m2ts",
	".3gp",
}

var kindByExt = map[string]catalog.MediaKind{}

func init() {
	for _, e := range PhotoExtensions {
		kindByExt[e] = catalog.KindPhoto
	}
	for _, e := range VideoExtensions {
		kindByExt[e] = catalog.KindVideo
	}
}

// KindForPath maps a file extension to its media kind
func KindForPath(path string) (catalog.MediaKind, bool) {
	kind, ok := kindByExt[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}
