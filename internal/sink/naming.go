package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// NextIndex returns max+1 over the files in dir named <base><N>.<ext>, or 1
// when none exist or dir does not exist yet
func NextIndex(dir, base, ext string) (int, error) {
	ext = strings.TrimPrefix(ext, ".")
	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(base) + `(\d+)\.` + regexp.QuoteMeta(ext) + "$")
	if err != nil {
		return 0, fmt.Errorf("sink: invalid name pattern: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sink: scan %s: %w", dir, err)
	}

	highest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue // overflow
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// NextPath returns dir/<base><NextIndex>.<ext>
func NextPath(dir, base, ext string) (string, error) {
	n, err := NextIndex(dir, base, ext)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s%d.%s", base, n, strings.TrimPrefix(ext, "."))), nil
}
