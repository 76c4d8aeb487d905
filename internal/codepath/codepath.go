// Package codepath models the positional code scheme that names catalog
// files: four levels, each 0..254, with 255 marking an unused level.
package codepath

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/agentic-research/faultcat/api"
)

// Unused marks a level that is not part of the path.
const Unused = 255

// Levels is the fixed number of slots in a path.
const Levels = 4

// Prefix and Ext frame every catalog filename.
const (
	Prefix = "faults_"
	Ext    = ".json"
)

var (
	// ErrMaxDepth is returned when expanding a path with no free level.
	ErrMaxDepth = errors.New("path has no free level")
	// ErrIndex is returned for entry indices that cannot become a level ID.
	ErrIndex = errors.New("index out of range for a level")
)

// Path is the four-level code of a catalog file.
type Path [Levels]uint8

// Root is the top of the tree.
var Root = Path{0, Unused, Unused, Unused}

// FilenameError reports a name that does not follow the catalog scheme.
type FilenameError struct {
	Name   string
	Reason string
}

func (e *FilenameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// FromIDs builds a path from header level IDs.
func FromIDs(ids [Levels]int) (Path, error) {
	var p Path
	for i, id := range ids {
		if id < 0 || id > Unused {
			return Path{}, fmt.Errorf("level %d: %w: %d", i, ErrIndex, id)
		}
		p[i] = uint8(id)
	}
	return p, nil
}

// IDs returns the path as header level IDs.
func (p Path) IDs() [Levels]int {
	return [Levels]int{int(p[0]), int(p[1]), int(p[2]), int(p[3])}
}

// Base returns the filename without language suffix and extension,
// e.g. faults_000_003_255_255.
func (p Path) Base() string {
	return fmt.Sprintf("%s%03d_%03d_%03d_%03d", Prefix, p[0], p[1], p[2], p[3])
}

// Filename returns the catalog filename of the path in lang.
func (p Path) Filename(lang api.Language) string {
	return p.Base() + "_" + string(lang) + Ext
}

// String renders the path as comma separated IDs, the form accepted by ParseList.
func (p Path) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", p[0], p[1], p[2], p[3])
}

// Depth is the number of used levels below the first one.
func (p Path) Depth() int {
	d := 0
	for _, v := range p[1:] {
		if v == Unused {
			break
		}
		d++
	}
	return d
}

// CanExpand reports whether entries of this file may open a deeper file.
func (p Path) CanExpand() bool {
	return p.Depth() < Levels-1
}

// Child returns the path opened by expanding entry idx: the first unused
// level receives idx.
func (p Path) Child(idx int) (Path, error) {
	if idx < 0 || idx >= Unused {
		return Path{}, fmt.Errorf("%w: %d", ErrIndex, idx)
	}
	if !p.CanExpand() {
		return Path{}, fmt.Errorf("%s: %w", p.Base(), ErrMaxDepth)
	}
	c := p
	c[p.Depth()+1] = uint8(idx)
	return c, nil
}

// Parent returns the path one level up. The root has no parent.
func (p Path) Parent() (Path, bool) {
	d := p.Depth()
	if d == 0 {
		return Path{}, false
	}
	q := p
	q[d] = Unused
	return q, true
}

// Index returns the entry index in the parent file that opens p.
func (p Path) Index() (int, bool) {
	d := p.Depth()
	if d == 0 {
		return 0, false
	}
	return int(p[d]), true
}

// Ancestors returns every path from the top level down to p inclusive.
// Navigating to p rebuilds one column per element.
func (p Path) Ancestors() []Path {
	out := make([]Path, 0, p.Depth()+1)
	q := Path{p[0], Unused, Unused, Unused}
	out = append(out, q)
	for i := 1; i <= p.Depth(); i++ {
		q[i] = p[i]
		out = append(out, q)
	}
	return out
}

// Less orders paths parent first: an unused level sorts before any ID.
func (p Path) Less(q Path) bool {
	for i := range p {
		if p[i] == q[i] {
			continue
		}
		if p[i] == Unused {
			return true
		}
		if q[i] == Unused {
			return false
		}
		return p[i] < q[i]
	}
	return false
}

// Valid reports whether used levels are contiguous from the first one.
func (p Path) Valid() bool {
	if p[0] == Unused {
		return false
	}
	seenUnused := false
	for _, v := range p[1:] {
		if v == Unused {
			seenUnused = true
		} else if seenUnused {
			return false
		}
	}
	return true
}

// Code renders the entry at idx in file p as a dotted code, e.g. 0.3.7.
func (p Path) Code(idx int) string {
	parts := make([]string, 0, Levels+1)
	for i := 0; i <= p.Depth(); i++ {
		parts = append(parts, strconv.Itoa(int(p[i])))
	}
	parts = append(parts, strconv.Itoa(idx))
	return strings.Join(parts, ".")
}

// Parse splits a catalog filename (with or without directories) into its
// path and language.
func Parse(name string) (Path, api.Language, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if !strings.HasSuffix(base, Ext) {
		return Path{}, "", &FilenameError{Name: name, Reason: "not a .json file"}
	}
	stem := strings.TrimSuffix(base, Ext)
	cut := strings.LastIndexByte(stem, '_')
	if cut < 0 {
		return Path{}, "", &FilenameError{Name: name, Reason: "missing language suffix"}
	}
	lang, err := api.ParseLanguage(stem[cut+1:])
	if err != nil {
		return Path{}, "", &FilenameError{Name: name, Reason: err.Error()}
	}
	p, err := ParseBase(stem[:cut])
	if err != nil {
		return Path{}, "", &FilenameError{Name: name, Reason: err.Error()}
	}
	return p, lang, nil
}

// ParseBase parses faults_AAA_BBB_CCC_DDD.
func ParseBase(base string) (Path, error) {
	if !strings.HasPrefix(base, Prefix) {
		return Path{}, fmt.Errorf("missing %q prefix", Prefix)
	}
	fields := strings.Split(strings.TrimPrefix(base, Prefix), "_")
	if len(fields) != Levels {
		return Path{}, fmt.Errorf("want %d levels, got %d", Levels, len(fields))
	}
	return parseFields(fields)
}

// ParseList parses "0,3,255,255". Missing trailing levels are unused, so
// "0,3" is accepted too.
func ParseList(s string) (Path, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) == 0 || len(fields) > Levels {
		return Path{}, fmt.Errorf("path %q: want 1 to %d levels", s, Levels)
	}
	for len(fields) < Levels {
		fields = append(fields, strconv.Itoa(Unused))
	}
	p, err := parseFields(fields)
	if err != nil {
		return Path{}, fmt.Errorf("path %q: %w", s, err)
	}
	return p, nil
}

func parseFields(fields []string) (Path, error) {
	var p Path
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Path{}, fmt.Errorf("level %d: %w", i, err)
		}
		if v < 0 || v > Unused {
			return Path{}, fmt.Errorf("level %d: %w: %d", i, ErrIndex, v)
		}
		p[i] = uint8(v)
	}
	if !p.Valid() {
		return Path{}, fmt.Errorf("levels are not contiguous: %v", p.IDs())
	}
	return p, nil
}
