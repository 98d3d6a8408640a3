package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"sync"
)

// baseTemplate wraps every page; pages define the "content" block
const baseTemplate = "base.html"

// templateStore parses base.html + page on first use and caches the result per page.
type templateStore struct {
	mu    sync.RWMutex
	fsys  fs.FS
	cache map[string]*template.Template
	gen   uint64 // bumped by invalidate; a parse from an older generation is not cached
}

// newTemplateStore reads templates from dir, or from the embedded templates when dir is empty
func newTemplateStore(dir string) (*templateStore, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(EmbeddedFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("embedded templates: %w", err)
		}
		fsys = sub
	} else {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("templates dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("templates dir %s is not a directory", dir)
		}
		fsys = os.DirFS(dir)
	}
	if _, err := fs.Stat(fsys, baseTemplate); err != nil {
		return nil, fmt.Errorf("missing %s: %w", baseTemplate, err)
	}
	return &templateStore{
		fsys:  fsys,
		cache: make(map[string]*template.Template),
	}, nil
}

// lookup returns the parsed template set for page
func (ts *templateStore) lookup(page string) (*template.Template, error) {
	ts.mu.RLock()
	tmpl, ok := ts.cache[page]
	gen := ts.gen
	ts.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.ParseFS(ts.fsys, baseTemplate, page)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page, err)
	}
	ts.store(page, tmpl, gen)
	return tmpl, nil
}

// store caches tmpl unless the cache was invalidated since gen was read
func (ts *templateStore) store(page string, tmpl *template.Template, gen uint64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.gen == gen {
		ts.cache[page] = tmpl
	}
}

// invalidate drops every cached template set
func (ts *templateStore) invalidate() {
	ts.mu.Lock()
	ts.cache = make(map[string]*template.Template)
	ts.gen++
	ts.mu.Unlock()
}
