package scanner

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is read from the scan root when present.
const IgnoreFileName = ".scribeignore"

// IgnoreRules holds exclusion patterns in gitignore syntax. The last
// matching pattern decides; a leading ! re-includes.
type IgnoreRules struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	re       *regexp.Regexp
	negate   bool
	dirOnly  bool
	anchored bool
}

// ParseIgnore compiles one pattern per line. Blank lines and # comments
// are skipped.
func ParseIgnore(content string) *IgnoreRules {
	rules := &IgnoreRules{}
	for _, line := range strings.Split(content, "\n") {
		rules.Add(line)
	}
	return rules
}

// LoadIgnoreFile reads path. A missing file yields empty rules.
func LoadIgnoreFile(path string) (*IgnoreRules, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &IgnoreRules{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rules := &IgnoreRules{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		rules.Add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}
	return rules, nil
}

// Add compiles a single pattern line.
func (r *IgnoreRules) Add(line string) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	var p ignorePattern
	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		p.negate = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = strings.TrimLeft(line, "/")
	} else if strings.Contains(line, "/") && !strings.HasPrefix(line, "**/") {
		// "drafts/old" means "/drafts/old"
		p.anchored = true
	}
	if line == "" {
		return
	}

	re, err := regexp.Compile("^" + globToRegexp(line) + "$")
	if err != nil {
		// Malformed class such as [z-a]; the line matches nothing.
		return
	}
	p.re = re
	r.patterns = append(r.patterns, p)
}

// Len returns the number of compiled patterns.
func (r *IgnoreRules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

// Match reports whether rel (slash or OS separated, relative to the scan
// root) is excluded.
func (r *IgnoreRules) Match(rel string, isDir bool) bool {
	if r.Len() == 0 {
		return false
	}
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}

	ignored := false
	for _, p := range r.patterns {
		if p.matches(rel, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}

func (p ignorePattern) matches(rel string, isDir bool) bool {
	parts := strings.Split(rel, "/")

	if p.anchored {
		if p.re.MatchString(rel) {
			return !p.dirOnly || isDir
		}
		// An ancestor directory matched.
		for i := 1; i < len(parts); i++ {
			if p.re.MatchString(strings.Join(parts[:i], "/")) {
				return true
			}
		}
		return false
	}

	for i, part := range parts {
		if !p.re.MatchString(part) {
			continue
		}
		if i < len(parts)-1 {
			return true
		}
		return !p.dirOnly || isDir
	}
	// Patterns starting with **/ span components.
	return !p.dirOnly && p.re.MatchString(rel)
}

// globToRegexp translates * ? ** and [...] into a regexp body.
func globToRegexp(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(string(glob[i])))
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
