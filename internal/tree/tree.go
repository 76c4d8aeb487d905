// Package tree holds the fault-code hierarchy as an in-memory graph of
// entries, built by following expandable entries from the top-level files.
package tree

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/codepath"
)

// ErrNotFound is returned when no entry has the requested code.
var ErrNotFound = errors.New("node not found")

// Node is one catalog entry. IDs are dotted codes (see codepath.Path.Code).
type Node struct {
	ID           string
	File         codepath.Path
	Index        int
	EntryID      *int
	Expandable   bool
	Descriptions map[api.Language]string
	// Extra holds the unmodelled entry keys of each language file.
	Extra    map[api.Language]map[string]json.RawMessage
	Children []string // entries of the child file, in index order
	Dangling     bool     // expandable, but no child file exists
}

// FileMeta is the per-language metadata of one catalog file that is not
// carried by entries.
type FileMeta struct {
	Path           codepath.Path
	Lang           api.Language
	Name           string
	LinkedVariable json.RawMessage
	Version        json.RawMessage
	HeaderExtra    map[string]json.RawMessage
	Extra          map[string]json.RawMessage
}

// Tree is the entry graph of a catalog.
type Tree struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string
	// detached are the top entries of orphan subtrees, in build order.
	detached []string
	files    map[codepath.Path]map[api.Language]FileMeta

	// Orphans are file sets no expandable entry leads to. Their entries are
	// still loaded, as detached subtrees.
	Orphans []codepath.Path
	// Errors collects files that could not be read during Build.
	Errors []error

	// Roaring bitmap index: file path → set of node internal IDs.
	fileToNodes map[codepath.Path]*roaring.Bitmap
	nodeIntID   map[string]uint32
	intToNodeID []string
	nextIntID   uint32
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		nodes:       make(map[string]*Node),
		files:       make(map[codepath.Path]map[api.Language]FileMeta),
		fileToNodes: make(map[codepath.Path]*roaring.Bitmap),
		nodeIntID:   make(map[string]uint32),
	}
}

// AddRoot registers an entry of a top-level file.
func (t *Tree) AddRoot(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[n.ID]; !ok {
		t.roots = append(t.roots, n.ID)
	}
	t.nodes[n.ID] = n
	t.indexNode(n)
}

// AddDetached registers the first-level entry of an orphan file.
func (t *Tree) AddDetached(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[n.ID]; !ok {
		t.detached = append(t.detached, n.ID)
	}
	t.nodes[n.ID] = n
	t.indexNode(n)
}

// AddNode adds an entry below a top-level file.
func (t *Tree) AddNode(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[n.ID] = n
	t.indexNode(n)
}

// AddFile records file metadata.
func (t *Tree) AddFile(m FileMeta) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byLang, ok := t.files[m.Path]
	if !ok {
		byLang = make(map[api.Language]FileMeta)
		t.files[m.Path] = byLang
	}
	byLang[m.Lang] = m
}

// indexNode assigns an internal bitmap ID and registers the node in fileToNodes.
// Must be called with t.mu held.
func (t *Tree) indexNode(n *Node) {
	intID, ok := t.nodeIntID[n.ID]
	if !ok {
		intID = t.nextIntID
		t.nextIntID++
		t.nodeIntID[n.ID] = intID
		t.intToNodeID = append(t.intToNodeID, n.ID)
	}
	bm, exists := t.fileToNodes[n.File]
	if !exists {
		bm = roaring.New()
		t.fileToNodes[n.File] = bm
	}
	bm.Add(intID)
}

// GetNode returns the entry with the given code.
func (t *Tree) GetNode(id string) (*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren returns child codes of id. The empty id lists the roots.
func (t *Tree) ListChildren(id string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id == "" {
		return t.roots, nil
	}
	n, ok := t.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Children, nil
}

// NodesInFile returns the entries of file p ordered by index.
func (t *Tree) NodesInFile(p codepath.Path) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bm, ok := t.fileToNodes[p]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if n, ok := t.nodes[t.intToNodeID[it.Next()]]; ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Paths lists every file path with recorded metadata, sorted.
func (t *Tree) Paths() []codepath.Path {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]codepath.Path, 0, len(t.files))
	for p := range t.files {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base() < out[j].Base() })
	return out
}

// Files returns the metadata recorded for p, keyed by language.
func (t *Tree) Files(p codepath.Path) map[api.Language]FileMeta {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.files[p]
}

// Len is the number of entries.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Dangling returns expandable entries without a child file, in walk order.
func (t *Tree) Dangling() []*Node {
	var out []*Node
	_ = t.Walk(func(n *Node, _ int) error {
		if n.Dangling {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// Walk visits entries depth first: each entry is followed by the entries of
// its child file. depth is the depth of the file holding the entry.
// Detached orphan subtrees are walked after the roots.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	t.mu.RLock()
	roots := append(append([]string(nil), t.roots...), t.detached...)
	t.mu.RUnlock()

	var visit func(id string) error
	visit = func(id string) error {
		n, err := t.GetNode(id)
		if err != nil {
			return err
		}
		if err := fn(n, n.File.Depth()); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := visit(r); err != nil {
			return err
		}
	}
	return nil
}
