// Package flat edits flat key to string translation files: one JSON object
// per language sharing the same keys.
package flat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/detect"
	"github.com/agentic-research/faultcat/internal/metrics"
	"github.com/agentic-research/faultcat/internal/translate"
)

// Set is the three flat files of one table.
type Set struct {
	fs     billy.Filesystem
	Files  map[api.Language]string
	Values map[api.Language]map[string]string
	// Keys is the sorted union of every file's keys.
	Keys []string
}

// Load reads one file per language. A missing file starts empty.
func Load(fs billy.Filesystem, files map[api.Language]string) (*Set, error) {
	s := &Set{fs: fs, Files: files, Values: make(map[api.Language]map[string]string, len(files))}
	seen := make(map[string]bool)
	for _, lang := range api.Languages {
		name, ok := files[lang]
		if !ok {
			continue
		}
		values := make(map[string]string)
		data, err := util.ReadFile(fs, name)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &values); err != nil {
				return nil, fmt.Errorf("decode %s: %w", name, err)
			}
		case errors.Is(err, os.ErrNotExist):
			log.Warn().Str("file", name).Msg("flat file missing, starting empty")
		default:
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		s.Values[lang] = values
		for k := range values {
			seen[k] = true
		}
	}
	for k := range seen {
		s.Keys = append(s.Keys, k)
	}
	sort.Strings(s.Keys)
	return s, nil
}

// Get returns the value of key in lang.
func (s *Set) Get(lang api.Language, key string) string {
	return s.Values[lang][key]
}

// Put stores a value, adding the key when new.
func (s *Set) Put(lang api.Language, key, value string) {
	values, ok := s.Values[lang]
	if !ok {
		values = make(map[string]string)
		s.Values[lang] = values
	}
	values[key] = value
	i := sort.SearchStrings(s.Keys, key)
	if i == len(s.Keys) || s.Keys[i] != key {
		s.Keys = append(s.Keys, "")
		copy(s.Keys[i+1:], s.Keys[i:])
		s.Keys[i] = key
	}
}

// Result counts what Translate did.
type Result struct {
	Translated int
	Copied     int
	Failed     int
}

// Translate fills every empty or missing target value from src. Technical
// codes are copied.
func (s *Set) Translate(ctx context.Context, tr translate.Translator, det *detect.Detector, src api.Language) (Result, error) {
	if det == nil {
		det = detect.Default()
	}
	var res Result
	for _, key := range s.Keys {
		text := s.Get(src, key)
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, dst := range src.Others() {
			if _, ok := s.Files[dst]; !ok || strings.TrimSpace(s.Get(dst, key)) != "" {
				continue
			}
			if det.IsTechnicalCode(text) {
				s.Put(dst, key, text)
				res.Copied++
				continue
			}
			out, err := tr.Translate(ctx, text, src, dst)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed++
				log.Warn().Err(err).Str("key", key).Str("lang", string(dst)).Msg("translation failed")
				continue
			}
			s.Put(dst, key, out)
			res.Translated++
		}
	}
	return res, nil
}

// Save writes every file with keys sorted, two-space indent. Each file is
// replaced atomically.
func (s *Set) Save() error {
	for _, lang := range api.Languages {
		name, ok := s.Files[lang]
		if !ok {
			continue
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		values := s.Values[lang]
		if values == nil {
			values = map[string]string{}
		}
		if err := enc.Encode(values); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := catalog.WriteAtomic(s.fs, name, buf.Bytes()); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		metrics.FilesWrittenTotal.WithLabelValues("flat").Inc()
	}
	return nil
}
