package stealth

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed static/*.js
var staticFS embed.FS

// Script resource names.
const (
	ResourceDOMHelpers = "domhelpers"
	ResourceOverride   = "override"
)

// ScriptCache loads script resources by name and keeps them for reuse. Each
// session owns one; nothing is shared process-wide.
type ScriptCache struct {
	mu    sync.Mutex
	fsys  fs.FS
	dir   string
	cache map[string]string
}

// NewScriptCache reads resources from fsys under dir. A nil fsys uses the
// embedded scripts.
func NewScriptCache(fsys fs.FS, dir string) *ScriptCache {
	if fsys == nil {
		fsys, dir = staticFS, "static"
	}
	return &ScriptCache{fsys: fsys, dir: dir, cache: make(map[string]string)}
}

func resourceFile(name string) string {
	if strings.HasSuffix(name, ".js") {
		return name
	}
	return name + ".js"
}

// Load returns the named resource, reading it on first use.
func (c *ScriptCache) Load(name string) (string, error) {
	file := resourceFile(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if src, ok := c.cache[file]; ok {
		return src, nil
	}

	p := path.Join(c.dir, file)
	data, err := fs.ReadFile(c.fsys, p)
	if err != nil {
		return "", fmt.Errorf("loading script resource: expected [%s]: %w", p, err)
	}

	c.cache[file] = string(data)
	return c.cache[file], nil
}

// Has reports whether the resource is cached.
func (c *ScriptCache) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cache[resourceFile(name)]
	return ok
}

// Clean empties the cache.
func (c *ScriptCache) Clean() {
	c.mu.Lock()
	c.cache = make(map[string]string)
	c.mu.Unlock()
}

// Override is the navigator override script.
func (c *ScriptCache) Override() (string, error) {
	return c.Load(ResourceOverride)
}

// DOMHelpers is the DOM helper library.
func (c *ScriptCache) DOMHelpers() (string, error) {
	return c.Load(ResourceDOMHelpers)
}
