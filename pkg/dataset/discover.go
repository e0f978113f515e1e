package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes a loadable source file found by discovery.
type FileInfo struct {
	Name    string
	Path    string
	ModTime time.Time
}

var loadableExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
}

// FindFiles lists loadable tabular files directly inside dir, sorted by
// name. A missing or unreadable directory returns the error; a directory
// with no matches returns an empty list.
func FindFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !loadableExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
