//go:build !linux && !darwin

package entry

import (
	"io/fs"
	"time"
)

func birthTime(string, fs.FileInfo) *time.Time { return nil }
