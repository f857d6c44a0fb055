package sitebuild

import (
	"bufio"
	"os"
	"strings"
)

// Tail returns the last n lines of the file at path.
func Tail(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	if n <= 0 {
		return "", nil
	}

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return strings.Join(ring, "\n"), err
	}
	return strings.Join(ring, "\n"), nil
}
