// Package pipeline wires the search and crawl stages together: reading
// identifiers, fetching metadata, rendering documents and aggregating the
// results.
package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInput marks an identifier file that cannot be read. It aborts the run
// before any output is produced.
var ErrInput = errors.New("unreadable input")

// ReadIdentifiers reads one identifier per line from path. Lines are trimmed,
// blank lines skipped, and order and duplicates are kept.
func ReadIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	defer f.Close()

	ids := []string{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInput, path, err)
	}
	return ids, nil
}
