// Package catalog reads and writes fault catalog files and groups them into
// language file sets.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/codepath"
)

// ErrNotFound is returned when no file exists for a path and language.
var ErrNotFound = errors.New("catalog file not found")

// DecodeError reports a file that exists but is not a valid catalog document.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Store is a catalog tree rooted at a directory. File names are relative to
// the root.
type Store struct {
	fs billy.Filesystem

	mu    sync.Mutex
	index map[string]string // base filename -> relative name
}

// New wraps an existing filesystem.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// Open returns a store over the directory dir on disk.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open catalog %s: not a directory", dir)
	}
	return New(osfs.New(dir)), nil
}

// FS exposes the underlying filesystem.
func (s *Store) FS() billy.Filesystem { return s.fs }

// Root is the directory the store is rooted at.
func (s *Store) Root() string { return s.fs.Root() }

// Exists reports whether name is present.
func (s *Store) Exists(name string) bool {
	_, err := s.fs.Stat(name)
	return err == nil
}

// Read loads and decodes one file.
func (s *Store) Read(name string) (*api.Document, error) {
	data, err := util.ReadFile(s.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Decode(data, name)
}

// Decode parses catalog JSON. name is only used in errors.
func Decode(data []byte, name string) (*api.Document, error) {
	var doc api.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{File: name, Err: err}
	}
	return &doc, nil
}

// Write encodes doc and replaces name atomically, creating parent
// directories as needed.
func (s *Store) Write(name string, doc *api.Document) error {
	data, err := api.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := WriteAtomic(s.fs, name, data); err != nil {
		return err
	}
	s.remember(name)
	return nil
}

// Locate finds the file of p in lang. Files may live in any sub-directory;
// the first match in walk order wins. A miss on a cached index rescans once.
func (s *Store) Locate(p codepath.Path, lang api.Language) (string, error) {
	base := p.Filename(lang)
	if s.Exists(base) {
		return base, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := s.index == nil
	if fresh {
		if err := s.buildIndexLocked(); err != nil {
			return "", err
		}
	}
	name, ok := s.index[base]
	if ok && s.Exists(name) {
		return name, nil
	}
	if !fresh {
		// files may have been added or moved by another process
		if err := s.buildIndexLocked(); err != nil {
			return "", err
		}
		if name, ok = s.index[base]; ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("%s: %w", base, ErrNotFound)
}

// Sibling is the file of lang next to name, in the same directory.
func Sibling(name string, lang api.Language) (string, error) {
	p, _, err := codepath.Parse(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(name), p.Filename(lang)), nil
}

// Load locates and reads the file of p in lang.
func (s *Store) Load(p codepath.Path, lang api.Language) (*api.Document, string, error) {
	name, err := s.Locate(p, lang)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.Read(name)
	if err != nil {
		return nil, name, err
	}
	return doc, name, nil
}

// Invalidate drops the cached file index, forcing the next Locate to rescan.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

func (s *Store) remember(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		base := filepath.Base(name)
		if _, ok := s.index[base]; !ok {
			s.index[base] = name
		}
	}
}

func (s *Store) buildIndexLocked() error {
	index := make(map[string]string)
	err := s.walk(func(name string) error {
		base := filepath.Base(name)
		if _, ok := index[base]; !ok {
			index[base] = name
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.index = index
	return nil
}

// walk calls fn for every catalog-named file, in lexical order, skipping
// hidden directories.
func (s *Store) walk(fn func(name string) error) error {
	err := util.Walk(s.fs, "", func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if name != "" && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, _, perr := codepath.Parse(name); perr != nil {
			return nil
		}
		return fn(name)
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", s.Root(), err)
	}
	return nil
}

// Files lists every file of lang, sorted.
func (s *Store) Files(lang api.Language) ([]string, error) {
	var out []string
	err := s.walk(func(name string) error {
		if _, l, _ := codepath.Parse(name); l == lang {
			out = append(out, name)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// FileSet is the group of language files sharing one path in one directory.
type FileSet struct {
	Dir   string
	Path  codepath.Path
	Files map[api.Language]string
}

// Base is the shared stem of the set, e.g. faults_000_255_255_255.
func (fs FileSet) Base() string { return fs.Path.Base() }

// Name returns the file of lang, or where it should be created.
func (fs FileSet) Name(lang api.Language) string {
	if name, ok := fs.Files[lang]; ok {
		return name
	}
	return filepath.Join(fs.Dir, fs.Path.Filename(lang))
}

// Missing returns the languages absent from the set, in canonical order.
func (fs FileSet) Missing() []api.Language {
	var out []api.Language
	for _, l := range api.Languages {
		if _, ok := fs.Files[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}

// Reference is the first present language in canonical order.
func (fs FileSet) Reference() (api.Language, bool) {
	for _, l := range api.Languages {
		if _, ok := fs.Files[l]; ok {
			return l, true
		}
	}
	return "", false
}

// Scan groups every catalog file by directory and path. Sets are ordered by
// directory then path.
func (s *Store) Scan() ([]FileSet, error) {
	type key struct {
		dir  string
		path codepath.Path
	}
	groups := make(map[key]*FileSet)
	err := s.walk(func(name string) error {
		p, lang, _ := codepath.Parse(name)
		k := key{dir: filepath.Dir(name), path: p}
		set, ok := groups[k]
		if !ok {
			set = &FileSet{Dir: k.dir, Path: p, Files: make(map[api.Language]string)}
			groups[k] = set
		}
		set.Files[lang] = name
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]FileSet, 0, len(groups))
	for _, set := range groups {
		out = append(out, *set)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dir != out[j].Dir {
			return out[i].Dir < out[j].Dir
		}
		return out[i].Path.Base() < out[j].Path.Base()
	})
	return out, nil
}
