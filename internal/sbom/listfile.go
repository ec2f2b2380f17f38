package sbom

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParsePackageList parses one line of a package list file such as
// `[pkg-a, "pkg-b", 'pkg-c']`. Brackets, quotes and spaces are dropped; any
// other text is taken literally as a package name.
func ParsePackageList(line string) []string {
	line = strings.ReplaceAll(line, "[", "")
	line = strings.ReplaceAll(line, "]", "")
	tokens := strings.Split(strings.TrimSpace(line), ",")

	names := make([]string, 0, len(tokens))
	replacer := strings.NewReplacer(`"`, "", `'`, "", " ", "")
	for _, tok := range tokens {
		names = append(names, replacer.Replace(tok))
	}
	return names
}

// ReadPackageList reads a package list file. Only the last line is used. An
// empty path or an empty file yields an empty list.
func ReadPackageList(path string) ([]string, error) {
	if path == "" {
		return []string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening package list: %w", err)
	}
	defer f.Close()

	var last string
	seen := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		last = scanner.Text()
		seen = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading package list %s: %w", path, err)
	}
	if !seen {
		return []string{}, nil
	}
	return ParsePackageList(last), nil
}
