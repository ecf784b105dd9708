package fsys

import (
	"io/fs"
	"sync"

	"github.com/sadopc/dirpie/internal/pathops"
)

type memNode struct {
	kind     Kind
	size     int64
	children []string
}

// MemFS is an in-memory FS. Entries are listed in insertion order, which
// makes walk order deterministic. Parent directories are created on demand.
type MemFS struct {
	mu    sync.Mutex
	nodes map[string]*memNode
	fail  map[string]error
	hooks map[string]func()
	reads map[string]int
}

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{
		nodes: make(map[string]*memNode),
		fail:  make(map[string]error),
		hooks: make(map[string]func()),
		reads: make(map[string]int),
	}
}

// AddDir creates an empty directory.
func (m *MemFS) AddDir(path string) *MemFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(pathops.Normalize(path), KindDir, 0)
	return m
}

// AddFile creates a file with the given reported length.
func (m *MemFS) AddFile(path string, size int64) *MemFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(pathops.Normalize(path), KindFile, size)
	return m
}

// AddReparse creates a redirected directory that walkers must not follow.
func (m *MemFS) AddReparse(path string) *MemFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(pathops.Normalize(path), KindReparse, 0)
	return m
}

// AddOther creates a device-like entry with no size.
func (m *MemFS) AddOther(path string) *MemFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(pathops.Normalize(path), KindOther, 0)
	return m
}

// FailDir makes every ReadDir of path return err.
func (m *MemFS) FailDir(path string, err error) *MemFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[pathops.Normalize(path)] = err
	return m
}

// OnReadDir registers fn to run, without the lock held, each time path is
// listed. Tests use it to block a walker inside a directory.
func (m *MemFS) OnReadDir(path string, fn func()) *MemFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[pathops.Normalize(path)] = fn
	return m
}

// Remove deletes path and everything below it.
func (m *MemFS) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = pathops.Normalize(path)
	if _, ok := m.nodes[path]; !ok {
		return
	}
	m.drop(path)
	parent := pathops.Parent(path)
	if p, ok := m.nodes[parent]; ok && parent != path {
		name := baseName(parent, path)
		for i, c := range p.children {
			if c == name {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
}

// Reads returns how many times path has been listed.
func (m *MemFS) Reads(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[pathops.Normalize(path)]
}

func (m *MemFS) ReadDir(path string) ([]DirEntry, error) {
	path = pathops.Normalize(path)

	m.mu.Lock()
	hook := m.hooks[path]
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[path]++
	if err, ok := m.fail[path]; ok {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: err}
	}
	n, ok := m.nodes[path]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}
	if n.kind != KindDir {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrInvalid}
	}
	out := make([]DirEntry, 0, len(n.children))
	for _, name := range n.children {
		c := m.nodes[pathops.Join(path, name)]
		out = append(out, DirEntry{Name: name, Kind: c.kind, Size: c.size})
	}
	return out, nil
}

func (m *MemFS) Stat(path string) (DirEntry, error) {
	path = pathops.Normalize(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[path]
	if !ok {
		return DirEntry{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return DirEntry{Name: baseName(pathops.Parent(path), path), Kind: n.kind, Size: n.size}, nil
}

func (m *MemFS) add(path string, kind Kind, size int64) {
	if n, ok := m.nodes[path]; ok {
		n.kind = kind
		n.size = size
		return
	}
	m.nodes[path] = &memNode{kind: kind, size: size}

	parent := pathops.Parent(path)
	if parent == path {
		return
	}
	if _, ok := m.nodes[parent]; !ok {
		m.add(parent, KindDir, 0)
	}
	p := m.nodes[parent]
	p.children = append(p.children, baseName(parent, path))
}

func (m *MemFS) drop(path string) {
	n, ok := m.nodes[path]
	if !ok {
		return
	}
	for _, c := range n.children {
		m.drop(pathops.Join(path, c))
	}
	delete(m.nodes, path)
}

// baseName returns the component of path below parent.
func baseName(parent, path string) string {
	name := path[len(parent):]
	for len(name) > 0 && (name[0] == '/' || name[0] == '\\') {
		name = name[1:]
	}
	return name
}
