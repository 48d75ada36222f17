package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"depgraph/internal/graph"
	"depgraph/internal/syntax"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// idNamespace derives stable blob ids for entities and contents written by
// SaveGraph.
var idNamespace = uuid.MustParse("5b0f3c0e-6a43-4c8e-9a3f-2f0d8c1e7a52")

type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

type entityRow struct {
	ID        []byte         `db:"id"`
	ParentID  []byte         `db:"parent_id"`
	Name      string         `db:"name"`
	Kind      string         `db:"kind"`
	StartRow  int            `db:"start_row"`
	EndRow    int            `db:"end_row"`
	ContentID []byte         `db:"content_id"`
	Content   sql.NullString `db:"content"`
}

type depRow struct {
	Src  []byte `db:"src"`
	Tgt  []byte `db:"tgt"`
	Kind string `db:"kind"`
	Row  int    `db:"row"`
}

// NewSQLiteStore creates or opens a store at path.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			id BLOB PRIMARY KEY,
			parent_id BLOB,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			start_row INTEGER NOT NULL DEFAULT 0,
			end_row INTEGER NOT NULL DEFAULT 0,
			content_id BLOB
		);`,
		`CREATE TABLE IF NOT EXISTS contents (
			id BLOB PRIMARY KEY,
			content TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS deps (
			src BLOB NOT NULL,
			tgt BLOB NOT NULL,
			kind TEXT NOT NULL,
			row INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entities_parent ON entities(parent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_deps_src ON deps(src, tgt, kind);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// blobID maps an entity id to its stored key. Ids read from a store are hex
// and decode back; ids from a fresh run contain a file path and are hashed.
func blobID(id graph.EntityID) []byte {
	if raw, err := hex.DecodeString(string(id)); err == nil && len(raw) > 0 {
		return raw
	}
	u := uuid.NewSHA1(idNamespace, []byte(id))
	return u[:]
}

func entityID(blob []byte) graph.EntityID {
	return graph.EntityID(hex.EncodeToString(blob))
}

// SaveGraph replaces the store contents with g. contents maps file entity ids
// to their source text.
func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.Graph, contents map[graph.EntityID]string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"deps", "entities", "contents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	contentIDs := make(map[graph.EntityID][]byte, len(contents))
	files := make([]graph.EntityID, 0, len(contents))
	for id := range contents {
		files = append(files, id)
	}
	sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })
	for _, id := range files {
		cid := uuid.NewSHA1(idNamespace, []byte(contents[id]))
		contentIDs[id] = cid[:]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contents (id, content) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
			cid[:], contents[id]); err != nil {
			return fmt.Errorf("save content of %s: %w", id, err)
		}
	}

	for _, e := range g.Forest.Entities() {
		row := entityRow{
			ID:        blobID(e.ID),
			Name:      e.Name,
			Kind:      string(e.Kind),
			StartRow:  e.Span.StartRow,
			EndRow:    e.Span.EndRow,
			ContentID: contentIDs[e.File],
		}
		if e.ParentID != "" {
			row.ParentID = blobID(e.ParentID)
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO entities (id, parent_id, name, kind, start_row, end_row, content_id)
			VALUES (:id, :parent_id, :name, :kind, :start_row, :end_row, :content_id)
		`, row); err != nil {
			return fmt.Errorf("save entity %s: %w", e.ID, err)
		}
	}

	for _, e := range g.Edges.Sorted() {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO deps (src, tgt, kind, row) VALUES (:src, :tgt, :kind, :row)`,
			depRow{Src: blobID(e.Src), Tgt: blobID(e.Tgt), Kind: string(e.Kind)}); err != nil {
			return fmt.Errorf("save edge %s -> %s: %w", e.Src, e.Tgt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"entities": g.Forest.Len(),
		"edges":    g.Edges.Len(),
		"files":    len(contents),
	}).Info("saved graph")
	return nil
}

// LoadForest reads the entity forest. Rows of kinds the forest does not
// model are skipped along with their descendants. A Method parented directly
// by a File is a module-level function and loads as one.
func (s *SQLiteStore) LoadForest(ctx context.Context) (*graph.Forest, map[graph.EntityID]string, error) {
	var rows []entityRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT e.id, e.parent_id, e.name, e.kind, e.start_row, e.end_row, e.content_id, c.content
		FROM entities e
		LEFT JOIN contents c ON c.id = e.content_id
		ORDER BY e.rowid
	`); err != nil {
		return nil, nil, fmt.Errorf("failed to query entities: %w", err)
	}

	kinds := make(map[graph.EntityID]graph.Kind, len(rows))
	for _, r := range rows {
		kinds[entityID(r.ID)] = graph.Kind(r.Kind)
	}

	records := make([]*graph.Entity, 0, len(rows))
	contents := make(map[graph.EntityID]string)
	skipped := make(map[graph.EntityID]bool)
	for _, r := range rows {
		e := &graph.Entity{
			ID:   entityID(r.ID),
			Kind: graph.Kind(r.Kind),
			Name: r.Name,
			Span: syntax.Span{StartRow: r.StartRow, EndRow: r.EndRow},
		}
		if len(r.ParentID) > 0 {
			e.ParentID = entityID(r.ParentID)
		}
		if !e.Kind.Valid() {
			skipped[e.ID] = true
			continue
		}
		if e.Kind == graph.KindMethod && kinds[e.ParentID] == graph.KindFile {
			e.Kind = graph.KindFunction
		}
		if e.Kind == graph.KindFile && r.Content.Valid {
			contents[e.ID] = r.Content.String
		}
		records = append(records, e)
	}

	if len(skipped) > 0 {
		s.logger.WithField("skipped", len(skipped)).Warn("entities of unknown kind ignored")
		records = dropDescendants(records, skipped)
	}
	forest := graph.NewForest()
	if err := forest.AddAll(records); err != nil {
		return nil, nil, fmt.Errorf("load forest: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"entities": forest.Len(),
		"files":    len(contents),
	}).Debug("loaded forest")
	return forest, contents, nil
}

// dropDescendants removes records below a skipped entity. Parents that are
// missing from the table altogether are left for AddAll to report.
func dropDescendants(records []*graph.Entity, skipped map[graph.EntityID]bool) []*graph.Entity {
	for changed := true; changed; {
		changed = false
		kept := records[:0]
		for _, r := range records {
			if skipped[r.ParentID] {
				skipped[r.ID] = true
				changed = true
				continue
			}
			kept = append(kept, r)
		}
		records = kept
	}
	return records
}

// LoadEdges returns the distinct deps whose kind is one the graph models.
func (s *SQLiteStore) LoadEdges(ctx context.Context) ([]graph.Edge, error) {
	var rows []depRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT DISTINCT src, tgt, kind FROM deps`); err != nil {
		return nil, fmt.Errorf("failed to query deps: %w", err)
	}
	out := make([]graph.Edge, 0, len(rows))
	for _, r := range rows {
		kind, ok := graph.ParseEdgeKind(r.Kind)
		if !ok {
			continue
		}
		out = append(out, graph.Edge{Src: entityID(r.Src), Tgt: entityID(r.Tgt), Kind: kind})
	}
	graph.SortEdges(out)
	return out, nil
}

// AppendEdges inserts the edges that are not already stored.
func (s *SQLiteStore) AppendEdges(ctx context.Context, edges []graph.Edge) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, e := range edges {
		row := depRow{Src: blobID(e.Src), Tgt: blobID(e.Tgt), Kind: string(e.Kind)}
		var n int
		if err := tx.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM deps WHERE src = ? AND tgt = ? AND kind = ?`,
			row.Src, row.Tgt, row.Kind); err != nil {
			return 0, fmt.Errorf("lookup edge %s -> %s: %w", e.Src, e.Tgt, err)
		}
		if n > 0 {
			continue
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO deps (src, tgt, kind, row) VALUES (:src, :tgt, :kind, :row)`, row); err != nil {
			return 0, fmt.Errorf("append edge %s -> %s: %w", e.Src, e.Tgt, err)
		}
		added++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"offered": len(edges), "added": added}).Info("appended deps")
	return added, nil
}

type misplacedField struct {
	FieldID    []byte `db:"field_id"`
	FieldName  string `db:"field_name"`
	MethodName string `db:"method_name"`
	ClassID    []byte `db:"class_id"`
	ClassName  string `db:"class_name"`
}

// FixFieldParents re-parents Field entities found under a Method or
// Constructor to the enclosing Class. When the class already has a field of
// the same name the misplaced one is merged into it: its deps are repointed,
// then it is deleted. Use deps that became duplicates or self-loops are
// removed. Running it twice changes nothing the second time.
func (s *SQLiteStore) FixFieldParents(ctx context.Context) (*FieldFixReport, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var misplaced []misplacedField
	if err := tx.SelectContext(ctx, &misplaced, `
		SELECT f.id AS field_id, f.name AS field_name, m.name AS method_name,
		       c.id AS class_id, c.name AS class_name
		FROM entities f
		JOIN entities m ON m.id = f.parent_id
		JOIN entities c ON c.id = m.parent_id
		WHERE f.kind = 'Field'
		  AND m.kind IN ('Method', 'Constructor')
		  AND c.kind = 'Class'
		ORDER BY f.rowid
	`); err != nil {
		return nil, fmt.Errorf("find misplaced fields: %w", err)
	}

	report := &FieldFixReport{}
	s.logger.WithField("misplaced", len(misplaced)).Info("fixing field parents")

	for _, f := range misplaced {
		var canonical []byte
		err := tx.GetContext(ctx, &canonical, `
			SELECT id FROM entities
			WHERE kind = 'Field' AND parent_id = ? AND name = ? AND id != ?
			ORDER BY rowid
			LIMIT 1
		`, f.ClassID, f.FieldName, f.FieldID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, `UPDATE entities SET parent_id = ? WHERE id = ?`, f.ClassID, f.FieldID); err != nil {
				return nil, fmt.Errorf("move field %s.%s: %w", f.ClassName, f.FieldName, err)
			}
			report.Moved++
			s.logger.WithFields(logrus.Fields{
				"field": f.ClassName + "." + f.FieldName, "from": f.MethodName,
			}).Debug("moved field")
		case err != nil:
			return nil, fmt.Errorf("find canonical field %s.%s: %w", f.ClassName, f.FieldName, err)
		default:
			for _, q := range []string{
				`UPDATE deps SET src = ? WHERE src = ?`,
				`UPDATE deps SET tgt = ? WHERE tgt = ?`,
			} {
				res, err := tx.ExecContext(ctx, q, canonical, f.FieldID)
				if err != nil {
					return nil, fmt.Errorf("repoint deps of %s.%s: %w", f.ClassName, f.FieldName, err)
				}
				n, _ := res.RowsAffected()
				report.Repointed += int(n)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, f.FieldID); err != nil {
				return nil, fmt.Errorf("delete field %s.%s: %w", f.ClassName, f.FieldName, err)
			}
			report.Merged++
			s.logger.WithFields(logrus.Fields{
				"field": f.ClassName + "." + f.FieldName, "from": f.MethodName,
			}).Debug("merged field")
		}
	}

	if report.Merged > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM deps
			WHERE kind = 'Use'
			  AND (src = tgt OR rowid NOT IN (
			      SELECT MIN(rowid) FROM deps WHERE kind = 'Use' GROUP BY src, tgt, kind
			  ))
		`)
		if err != nil {
			return nil, fmt.Errorf("dedupe use deps: %w", err)
		}
		n, _ := res.RowsAffected()
		report.DuplicatesRemoved = int(n)
	}

	if err := tx.GetContext(ctx, &report.SiblingUses, `
		SELECT COUNT(*)
		FROM deps d
		JOIN entities s ON s.id = d.src
		JOIN entities t ON t.id = d.tgt
		WHERE d.kind = 'Use'
		  AND s.kind IN ('Method', 'Constructor')
		  AND t.kind = 'Field'
		  AND s.parent_id = t.parent_id
	`); err != nil {
		return nil, fmt.Errorf("count sibling uses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"moved":              report.Moved,
		"merged":             report.Merged,
		"repointed":          report.Repointed,
		"duplicates_removed": report.DuplicatesRemoved,
		"sibling_uses":       report.SiblingUses,
	}).Info("field parents fixed")
	return report, nil
}
