package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Top-level keys of a catalog document.
const (
	KeyHeader          = "Header"
	KeyLinkedVariable  = "LinkedVariable"
	KeyVersion         = "Version"
	KeyFaultDetailList = "FaultDetailList"
)

// RequiredKeys lists the top-level keys every catalog document must carry.
var RequiredKeys = []string{KeyHeader, KeyLinkedVariable, KeyVersion, KeyFaultDetailList}

// Document is one catalog file: the fault entries of a single code path in a
// single language.
type Document struct {
	Header          Header
	LinkedVariable  json.RawMessage
	Version         json.RawMessage
	FaultDetailList []Entry
	// Extra holds top-level keys this package does not model.
	Extra map[string]json.RawMessage

	present map[string]bool
}

// Header identifies the file the document belongs to.
type Header struct {
	Language string
	Filename string
	IdLevel0 int
	IdLevel1 int
	IdLevel2 int
	IdLevel3 int
	Extra    map[string]json.RawMessage
}

// Entry is one fault line. Index within FaultDetailList is its identity.
type Entry struct {
	Id           *int
	Description  string
	IsExpandable bool
	// Extra holds per-entry keys such as CategoryId or FaultId.
	Extra map[string]json.RawMessage
}

// StructuralKeys are the entry keys copied verbatim between languages.
var StructuralKeys = []string{"CategoryId", "SubCategoryId", "FaultId"}

// Has reports whether the decoded JSON contained key at the top level.
// Documents built in memory report every modelled key as present.
func (d *Document) Has(key string) bool {
	if d.present == nil {
		switch key {
		case KeyHeader, KeyFaultDetailList:
			return true
		case KeyLinkedVariable:
			return d.LinkedVariable != nil
		case KeyVersion:
			return d.Version != nil
		}
		_, ok := d.Extra[key]
		return ok
	}
	return d.present[key]
}

// IDs returns the four header level IDs.
func (h Header) IDs() [4]int {
	return [4]int{h.IdLevel0, h.IdLevel1, h.IdLevel2, h.IdLevel3}
}

// SetIDs overwrites the four header level IDs.
func (h *Header) SetIDs(ids [4]int) {
	h.IdLevel0, h.IdLevel1, h.IdLevel2, h.IdLevel3 = ids[0], ids[1], ids[2], ids[3]
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Header:         d.Header,
		LinkedVariable: cloneRaw(d.LinkedVariable),
		Version:        cloneRaw(d.Version),
		Extra:          cloneExtra(d.Extra),
	}
	out.Header.Extra = cloneExtra(d.Header.Extra)
	if d.FaultDetailList != nil {
		out.FaultDetailList = make([]Entry, len(d.FaultDetailList))
		for i, e := range d.FaultDetailList {
			out.FaultDetailList[i] = e.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	if e.Id != nil {
		id := *e.Id
		out.Id = &id
	}
	out.Extra = cloneExtra(e.Extra)
	return out
}

// field is one key/value pair of an ordered JSON object.
type field struct {
	key   string
	value any
}

// MarshalJSON writes the modelled keys in their conventional order followed
// by any unknown keys, sorted.
func (d Document) MarshalJSON() ([]byte, error) {
	fields := []field{{KeyHeader, d.Header}}
	if d.LinkedVariable != nil {
		fields = append(fields, field{KeyLinkedVariable, d.LinkedVariable})
	}
	if d.Version != nil {
		fields = append(fields, field{KeyVersion, d.Version})
	}
	list := d.FaultDetailList
	if list == nil {
		list = []Entry{}
	}
	fields = append(fields, field{KeyFaultDetailList, list})
	return marshalObject(fields, d.Extra)
}

// UnmarshalJSON decodes a document, keeping unknown keys in Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Document{present: make(map[string]bool, len(raw))}
	for k, v := range raw {
		d.present[k] = true
		switch k {
		case KeyHeader:
			if err := json.Unmarshal(v, &d.Header); err != nil {
				return fmt.Errorf("%s: %w", KeyHeader, err)
			}
		case KeyLinkedVariable:
			d.LinkedVariable = v
		case KeyVersion:
			d.Version = v
		case KeyFaultDetailList:
			if err := json.Unmarshal(v, &d.FaultDetailList); err != nil {
				return fmt.Errorf("%s: %w", KeyFaultDetailList, err)
			}
		default:
			if d.Extra == nil {
				d.Extra = make(map[string]json.RawMessage)
			}
			d.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (h Header) MarshalJSON() ([]byte, error) {
	return marshalObject([]field{
		{"Language", h.Language},
		{"Filename", h.Filename},
		{"IdLevel0", h.IdLevel0},
		{"IdLevel1", h.IdLevel1},
		{"IdLevel2", h.IdLevel2},
		{"IdLevel3", h.IdLevel3},
	}, h.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = Header{}
	targets := map[string]any{
		"Language": &h.Language,
		"Filename": &h.Filename,
		"IdLevel0": &h.IdLevel0,
		"IdLevel1": &h.IdLevel1,
		"IdLevel2": &h.IdLevel2,
		"IdLevel3": &h.IdLevel3,
	}
	for k, v := range raw {
		if dst, ok := targets[k]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("header %s: %w", k, err)
			}
			continue
		}
		if h.Extra == nil {
			h.Extra = make(map[string]json.RawMessage)
		}
		h.Extra[k] = v
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	var fields []field
	if e.Id != nil {
		fields = append(fields, field{"Id", *e.Id})
	}
	fields = append(fields,
		field{"Description", e.Description},
		field{"IsExpandable", e.IsExpandable},
	)
	return marshalObject(fields, e.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{}
	for k, v := range raw {
		var err error
		switch k {
		case "Id":
			var id int
			if err = json.Unmarshal(v, &id); err == nil {
				e.Id = &id
			}
		case "Description":
			// null descriptions decode as empty
			var s *string
			if err = json.Unmarshal(v, &s); err == nil && s != nil {
				e.Description = *s
			}
		case "IsExpandable":
			err = json.Unmarshal(v, &e.IsExpandable)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[k] = v
		}
		if err != nil {
			return fmt.Errorf("entry %s: %w", k, err)
		}
	}
	return nil
}

func marshalObject(fields []field, extra map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(i int, key string, value any) error {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := encode(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := encode(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		buf.Write(v)
		return nil
	}
	for i, f := range fields {
		if err := write(i, f.key, f.value); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if err := write(len(fields)+i, k, extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders doc the way catalog files are stored: two-space indent,
// no HTML escaping, trailing newline.
func Encode(doc *Document) ([]byte, error) {
	compact, err := encode(doc)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// encode marshals v without HTML escaping so accented and symbol characters
// are written as-is.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

func cloneExtra(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = cloneRaw(v)
	}
	return out
}
