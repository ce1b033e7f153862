// Package guidance serves the steering documents: embedded Markdown files
// exposed as MCP resources and returned by the guidance tools. An optional
// override directory replaces embedded documents by filename and is
// watched for edits so content reloads without a server restart.
package guidance

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"serverless-mcp/internal/logging"
)

//go:embed docs/*.md
var embedded embed.FS

// URIScheme prefixes every guidance resource URI.
const URIScheme = "guidance://"

// Library holds the guidance documents.
type Library struct {
	mu          sync.RWMutex
	docs        map[string]string // name (without .md) -> content
	overrideDir string
}

// NewLibrary loads the embedded documents and applies overrides from
// overrideDir (may be empty).
func NewLibrary(overrideDir string) (*Library, error) {
	l := &Library{docs: map[string]string{}, overrideDir: overrideDir}

	entries, err := fs.ReadDir(embedded, "docs")
	if err != nil {
		return nil, fmt.Errorf("read embedded docs: %w", err)
	}
	for _, e := range entries {
		data, err := embedded.ReadFile("docs/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", e.Name(), err)
		}
		l.docs[strings.TrimSuffix(e.Name(), ".md")] = string(data)
	}

	if overrideDir != "" {
		if err := l.loadOverrides(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Library) loadOverrides() error {
	entries, err := os.ReadDir(l.overrideDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read override dir: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.overrideDir, e.Name()))
		if err != nil {
			return fmt.Errorf("read override %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), ".md")
		l.docs[name] = string(data)
		logging.For(logging.CategoryGuidance).Info("guidance override loaded", zap.String("doc", name))
	}
	return nil
}

// Get returns a document by name.
func (l *Library) Get(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[name]
	return doc, ok
}

// Names lists document names sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.docs))
	for name := range l.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch reloads overrides whenever the override directory changes. It
// returns immediately when no override directory is configured. Closing
// done stops the watcher.
func (l *Library) Watch(done <-chan struct{}) error {
	if l.overrideDir == "" {
		return nil
	}
	if _, err := os.Stat(l.overrideDir); os.IsNotExist(err) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.overrideDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", l.overrideDir, err)
	}

	log := logging.For(logging.CategoryGuidance)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := l.loadOverrides(); err != nil {
					log.Warn("guidance reload failed", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("guidance watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

var headingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.*)$`)

// Section extracts the part of doc under the heading whose text equals
// heading (case-insensitive), up to the next heading of the same or higher
// level. It returns the whole document when the heading is not found.
func Section(doc, heading string) string {
	matches := headingRe.FindAllStringSubmatchIndex(doc, -1)
	for i, m := range matches {
		level := m[3] - m[2]
		text := strings.TrimSpace(doc[m[4]:m[5]])
		if !strings.EqualFold(text, heading) {
			continue
		}
		end := len(doc)
		for _, next := range matches[i+1:] {
			if next[3]-next[2] <= level {
				end = next[0]
				break
			}
		}
		return strings.TrimSpace(doc[m[0]:end])
	}
	return doc
}

var crossRefRe = regexp.MustCompile(`guidance://([a-z0-9-]+)`)

// CrossRefs returns the names referenced by guidance:// links in doc.
func CrossRefs(doc string) []string {
	var out []string
	for _, m := range crossRefRe.FindAllStringSubmatch(doc, -1) {
		out = append(out, m[1])
	}
	return out
}
