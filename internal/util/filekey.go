package util

import (
	"crypto/sha1"
	"fmt"
	"io/fs"
	"syscall"
)

// GenerateFileKey creates a stable key for a file based on its filesystem metadata
// Key is SHA1 of (dev, inode, size, mtime) for fast comparison
// This allows detecting file moves/renames without reading content
func GenerateFileKey(info fs.FileInfo) string {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		h := sha1.New()
		fmt.Fprintf(h, "%d:%d:%d:%d", stat.Dev, stat.Ino, info.Size(), info.ModTime().Unix())
		return fmt.Sprintf("%x", h.Sum(nil))
	}
	// Fallback: size and mtime only (less precise but portable, and the only
	// option on in-memory filesystems used in tests)
	return GenerateSimpleFileKey(info.Size(), info.ModTime().Unix())
}

// GenerateSimpleFileKey creates a key from size and mtime only (portable fallback)
func GenerateSimpleFileKey(size int64, mtimeUnix int64) string {
	h := sha1.New()
	fmt.Fprintf(h, "%d:%d", size, mtimeUnix)
	return fmt.Sprintf("%x", h.Sum(nil))
}
