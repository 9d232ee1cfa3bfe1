package collab

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/temoto/robotstxt"
)

// manifestEntry pairs a page file on disk with its source URL. The
// manifest format is one "<relative-path>\t<url>" line per page, letting
// a static crawl directory declare page order and origin without forcing
// a particular filename convention.
type manifestEntry struct {
	relPath string
	url     string
}

// DirectoryPageLoader is the bundled default PageLoader: it walks a
// pre-fetched crawl directory in the deterministic order recorded by its
// manifest file, optionally honoring a bundled robots.txt snapshot so
// index construction doesn't surface content the crawl itself should not
// have kept.
type DirectoryPageLoader struct {
	dir       string
	entries   []manifestEntry
	idx       int
	robots    *robotstxt.RobotsData
	userAgent string
}

// NewDirectoryPageLoader builds a loader over dir/manifest.txt. If
// dir/robots.txt exists, entries whose URL path is disallowed for
// userAgent are skipped.
func NewDirectoryPageLoader(dir, userAgent string) (*DirectoryPageLoader, error) {
	entries, err := readManifest(filepath.Join(dir, "manifest.txt"))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })

	l := &DirectoryPageLoader{dir: dir, entries: entries, userAgent: userAgent}

	robotsPath := filepath.Join(dir, "robots.txt")
	if b, err := os.ReadFile(robotsPath); err == nil {
		data, err := robotstxt.FromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("collab: parse %s: %w", robotsPath, err)
		}
		l.robots = data
	}
	return l, nil
}

func readManifest(path string) ([]manifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("collab: open manifest %s: %w", path, err)
	}
	defer f.Close()

	var entries []manifestEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("collab: malformed manifest line %q", line)
		}
		entries = append(entries, manifestEntry{relPath: parts[0], url: parts[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("collab: scan manifest %s: %w", path, err)
	}
	return entries, nil
}

// Next returns the next page allowed by robots policy, or ok=false once
// exhausted.
func (l *DirectoryPageLoader) Next() (Page, bool, error) {
	for l.idx < len(l.entries) {
		entry := l.entries[l.idx]
		l.idx++

		if l.robots != nil {
			path := entry.url
			if u, err := url.Parse(entry.url); err == nil && u.Path != "" {
				path = u.Path
			}
			if !l.robots.FindGroup(l.userAgent).Test(path) {
				continue
			}
		}

		raw, err := os.ReadFile(filepath.Join(l.dir, entry.relPath))
		if err != nil {
			return Page{}, false, fmt.Errorf("collab: read page %s: %w", entry.relPath, err)
		}
		return Page{RawContent: raw, URL: entry.url}, true, nil
	}
	return Page{}, false, nil
}
