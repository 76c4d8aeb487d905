// Package export copies a catalog to a SQLite database and back.
//
// Schema:
//
//	faults(code, file, depth, idx, entry_id, lang, description, expandable, extra)
//	files(file, lang, filename, linked_variable, version, header_extra, extra)
//
// file is the comma separated code path of the catalog file (0,3,255,255).
// extra columns hold the keys the catalog format does not model, such as
// FaultId or CategoryId, as a JSON object.
package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/metrics"
	"github.com/agentic-research/faultcat/internal/tree"
)

const schema = `
CREATE TABLE faults (
	code TEXT NOT NULL,
	file TEXT NOT NULL,
	depth INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	entry_id INTEGER,
	lang TEXT NOT NULL,
	description TEXT NOT NULL,
	expandable INTEGER NOT NULL,
	extra TEXT,
	PRIMARY KEY (file, idx, lang)
);
CREATE INDEX idx_faults_lang ON faults(lang);

CREATE TABLE files (
	file TEXT NOT NULL,
	lang TEXT NOT NULL,
	filename TEXT NOT NULL,
	linked_variable TEXT,
	version TEXT,
	header_extra TEXT,
	extra TEXT,
	PRIMARY KEY (file, lang)
);
`

// Export writes the tree to a new database at dbPath, replacing any file
// already there. It returns the number of fault rows written.
func Export(t *tree.Tree, dbPath string) (int, error) {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("replace %s: %w", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return 0, err
	}
	if _, err := db.Exec(schema); err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	stmtFault, err := tx.Prepare(`INSERT INTO faults (code, file, depth, idx, entry_id, lang, description, expandable, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmtFault.Close() }()

	stmtFile, err := tx.Prepare(`INSERT INTO files (file, lang, filename, linked_variable, version, header_extra, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmtFile.Close() }()

	for _, m := range t.FileMetas() {
		headerExtra, err := encodeExtra(m.HeaderExtra)
		if err != nil {
			return 0, fmt.Errorf("file %s: %w", m.Name, err)
		}
		extra, err := encodeExtra(m.Extra)
		if err != nil {
			return 0, fmt.Errorf("file %s: %w", m.Name, err)
		}
		if _, err := stmtFile.Exec(m.Path.String(), string(m.Lang), m.Name, nullable(m.LinkedVariable), nullable(m.Version), headerExtra, extra); err != nil {
			return 0, fmt.Errorf("insert file %s: %w", m.Name, err)
		}
	}

	n := 0
	for _, r := range t.Flatten() {
		var entryID any
		if r.EntryID != nil {
			entryID = *r.EntryID
		}
		for _, lang := range api.Languages {
			desc, ok := r.Descriptions[lang]
			if !ok {
				continue
			}
			extra, err := encodeExtra(r.Extra[lang])
			if err != nil {
				return 0, fmt.Errorf("%s: %w", r.Code, err)
			}
			if _, err := stmtFault.Exec(r.Code, r.File.String(), r.Depth, r.Index, entryID, string(lang), desc, r.Expandable, extra); err != nil {
				return 0, fmt.Errorf("insert %s: %w", r.Code, err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func nullable(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// encodeExtra renders unmodelled keys as a JSON object, NULL when empty.
func encodeExtra(m map[string]json.RawMessage) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode extra keys: %w", err)
	}
	return string(data), nil
}

func decodeExtra(col sql.NullString) (map[string]json.RawMessage, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(col.String), &m); err != nil {
		return nil, fmt.Errorf("decode extra keys: %w", err)
	}
	return m, nil
}

// Read loads rows and file metadata back from a database written by Export.
func Read(dbPath string) ([]tree.Row, []tree.FileMeta, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	files, err := readFiles(db)
	if err != nil {
		return nil, nil, err
	}

	rows, err := db.Query(`SELECT code, file, depth, idx, entry_id, lang, description, expandable, extra FROM faults`)
	if err != nil {
		return nil, nil, fmt.Errorf("query faults: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	type key struct {
		file codepath.Path
		idx  int
	}
	byKey := make(map[key]*tree.Row)
	for rows.Next() {
		var (
			code, file, lang, desc string
			depth, idx             int
			entryID                sql.NullInt64
			expandable             bool
			extraCol               sql.NullString
		)
		if err := rows.Scan(&code, &file, &depth, &idx, &entryID, &lang, &desc, &expandable, &extraCol); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		p, err := codepath.ParseList(file)
		if err != nil {
			return nil, nil, fmt.Errorf("row %s: %w", code, err)
		}
		l, err := api.ParseLanguage(lang)
		if err != nil {
			return nil, nil, fmt.Errorf("row %s: %w", code, err)
		}
		k := key{file: p, idx: idx}
		r, ok := byKey[k]
		if !ok {
			r = &tree.Row{Code: code, File: p, Depth: depth, Index: idx, Expandable: expandable,
				Descriptions: make(map[api.Language]string, len(api.Languages))}
			if entryID.Valid {
				id := int(entryID.Int64)
				r.EntryID = &id
			}
			byKey[k] = r
		}
		r.Descriptions[l] = desc
		extra, err := decodeExtra(extraCol)
		if err != nil {
			return nil, nil, fmt.Errorf("row %s: %w", code, err)
		}
		if extra != nil {
			if r.Extra == nil {
				r.Extra = make(map[api.Language]map[string]json.RawMessage, len(api.Languages))
			}
			r.Extra[l] = extra
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]tree.Row, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File.Less(out[j].File)
		}
		return out[i].Index < out[j].Index
	})
	return out, files, nil
}

func readFiles(db *sql.DB) ([]tree.FileMeta, error) {
	rows, err := db.Query(`SELECT file, lang, filename, linked_variable, version, header_extra, extra FROM files ORDER BY file, lang`)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []tree.FileMeta
	for rows.Next() {
		var (
			file, lang, name string
			linked, version  sql.NullString
			hextra, extra    sql.NullString
		)
		if err := rows.Scan(&file, &lang, &name, &linked, &version, &hextra, &extra); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		p, err := codepath.ParseList(file)
		if err != nil {
			return nil, err
		}
		l, err := api.ParseLanguage(lang)
		if err != nil {
			return nil, err
		}
		m := tree.FileMeta{Path: p, Lang: l, Name: name}
		if linked.Valid {
			m.LinkedVariable = []byte(linked.String)
		}
		if version.Valid {
			m.Version = []byte(version.String)
		}
		if m.HeaderExtra, err = decodeExtra(hextra); err != nil {
			return nil, fmt.Errorf("file %s: %w", name, err)
		}
		if m.Extra, err = decodeExtra(extra); err != nil {
			return nil, fmt.Errorf("file %s: %w", name, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Import rebuilds every file recorded in the database and writes it to the
// store under its recorded name. It returns the written names.
func Import(dbPath string, store *catalog.Store) ([]string, error) {
	rows, files, err := Read(dbPath)
	if err != nil {
		return nil, err
	}
	docs, err := tree.Reconstruct(rows, files)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, m := range files {
		doc := docs[m.Path][m.Lang]
		name := m.Name
		if name == "" {
			name = m.Path.Filename(m.Lang)
		}
		if err := store.Write(name, doc); err != nil {
			return written, err
		}
		metrics.FilesWrittenTotal.WithLabelValues("import").Inc()
		written = append(written, name)
	}
	return written, nil
}
