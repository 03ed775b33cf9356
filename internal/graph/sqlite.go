package graph

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papergraph/papergraph/internal/models"
)

// SQLiteStore implements Store on SQLite. Edges are stored once per
// unordered pair with chunk_id_1 < chunk_id_2.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if missing. Any failure here is a
// backend-connectivity failure: callers must treat it as fatal for indexing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrBackendUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrBackendUnavailable, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", ErrBackendUnavailable, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %v", ErrBackendUnavailable, err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		text TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		section TEXT,
		source TEXT,
		title TEXT,
		author_real TEXT,
		year TEXT,
		doi TEXT,
		orcids TEXT,
		emails TEXT,
		issn TEXT,
		abstract TEXT,
		tags TEXT,
		embedding BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);

	CREATE TABLE IF NOT EXISTS edges (
		chunk_id_1 TEXT NOT NULL,
		chunk_id_2 TEXT NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (chunk_id_1, chunk_id_2),
		CHECK (chunk_id_1 < chunk_id_2)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_chunk2 ON edges(chunk_id_2);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertChunks merges nodes by chunk_id inside one transaction.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrBackendUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, doc_id, text, page_number, chunk_index, section,
			source, title, author_real, year, doi, orcids, emails, issn, abstract, tags, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			doc_id = excluded.doc_id,
			text = excluded.text,
			page_number = excluded.page_number,
			chunk_index = excluded.chunk_index,
			section = excluded.section,
			source = excluded.source,
			title = excluded.title,
			author_real = excluded.author_real,
			year = excluded.year,
			doi = excluded.doi,
			orcids = excluded.orcids,
			emails = excluded.emails,
			issn = excluded.issn,
			abstract = excluded.abstract,
			tags = excluded.tags,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		m := ch.Metadata
		_, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocID, ch.Text, ch.PageNumber, ch.ChunkIndex, ch.Section,
			m.Source, m.Title, m.AuthorReal, m.Year, m.DOI,
			marshalList(m.ORCIDs), marshalList(m.Emails), m.ISSN, m.Abstract,
			marshalList(m.Tags), encodeVector(ch.Embedding),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertEdges merges undirected edges; the pair is canonicalized so that
// (a,b) and (b,a) hit the same row. Self-edges are rejected.
func (s *SQLiteStore) UpsertEdges(ctx context.Context, edges []models.SimilarityEdge) error {
	if len(edges) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrBackendUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (chunk_id_1, chunk_id_2, weight) VALUES (?, ?, ?)
		ON CONFLICT(chunk_id_1, chunk_id_2) DO UPDATE SET weight = excluded.weight`)
	if err != nil {
		return fmt.Errorf("prepare edge upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		a, b := e.ChunkID1, e.ChunkID2
		if a == b {
			return fmt.Errorf("self-edge rejected for chunk %s", a)
		}
		if a > b {
			a, b = b, a
		}
		if _, err := stmt.ExecContext(ctx, a, b, e.Weight); err != nil {
			return fmt.Errorf("upsert edge (%s, %s): %w", a, b, err)
		}
	}
	return tx.Commit()
}

// GetChunks returns stored chunks for the given IDs. Unknown IDs are simply
// absent from the result.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	out := make(map[string]*models.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, doc_id, text, page_number, chunk_index, section,
			source, title, author_real, year, doi, orcids, emails, issn, abstract, tags, embedding
		FROM chunks WHERE chunk_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query chunks: %v", ErrBackendUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[ch.ID] = ch
	}
	return out, rows.Err()
}

func scanChunk(rows *sql.Rows) (*models.Chunk, error) {
	var ch models.Chunk
	var orcids, emails, tags string
	var blob []byte
	err := rows.Scan(&ch.ID, &ch.DocID, &ch.Text, &ch.PageNumber, &ch.ChunkIndex, &ch.Section,
		&ch.Metadata.Source, &ch.Metadata.Title, &ch.Metadata.AuthorReal, &ch.Metadata.Year,
		&ch.Metadata.DOI, &orcids, &emails, &ch.Metadata.ISSN, &ch.Metadata.Abstract,
		&tags, &blob)
	if err != nil {
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	ch.Metadata.ORCIDs = unmarshalList(orcids)
	ch.Metadata.Emails = unmarshalList(emails)
	ch.Metadata.Tags = unmarshalList(tags)
	ch.Embedding = decodeVector(blob)
	return &ch, nil
}

// AllEmbeddings streams every node's ID and embedding in chunk_id order.
func (s *SQLiteStore) AllEmbeddings(ctx context.Context) ([]string, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, embedding FROM chunks ORDER BY chunk_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: query embeddings: %v", ErrBackendUnavailable, err)
	}
	defer rows.Close()
	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, fmt.Errorf("scan embedding: %w", err)
		}
		ids = append(ids, id)
		vecs = append(vecs, decodeVector(blob))
	}
	return ids, vecs, rows.Err()
}

// DeleteDocument removes a document's chunks and every edge touching them.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %v", ErrBackendUnavailable, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("query document chunks: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM edges WHERE chunk_id_1 = ? OR chunk_id_2 = ?`, id, id); err != nil {
			return nil, fmt.Errorf("delete edges for %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID); err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}
	return ids, tx.Commit()
}

// metadataColumns whitelists the fields DistinctMetadata may query. Field
// names come from user questions, so they never reach SQL unchecked.
var metadataColumns = map[string]string{
	"author_real": "author_real",
	"year":        "year",
	"doi":         "doi",
	"issn":        "issn",
	"title":       "title",
	"source":      "source",
	"section":     "section",
	"abstract":    "abstract",
	"tags":        "tags",
	"emails":      "emails",
	"orcids":      "orcids",
}

// DistinctMetadata returns up to limit distinct non-empty values of field.
func (s *SQLiteStore) DistinctMetadata(ctx context.Context, field string, limit int) ([]string, error) {
	col, ok := metadataColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown metadata field %q", field)
	}
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT `+col+` FROM chunks WHERE `+col+` IS NOT NULL AND `+col+` != '' LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query metadata: %v", ErrBackendUnavailable, err)
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan metadata value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Neighbors returns edges incident to chunkID, heaviest first.
func (s *SQLiteStore) Neighbors(ctx context.Context, chunkID string, limit int) ([]models.SimilarityEdge, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id_1, chunk_id_2, weight FROM edges
		WHERE chunk_id_1 = ? OR chunk_id_2 = ?
		ORDER BY weight DESC LIMIT ?`, chunkID, chunkID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query neighbors: %v", ErrBackendUnavailable, err)
	}
	defer rows.Close()
	var edges []models.SimilarityEdge
	for rows.Next() {
		var e models.SimilarityEdge
		if err := rows.Scan(&e.ChunkID1, &e.ChunkID2, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ChunkCount returns the number of nodes.
func (s *SQLiteStore) ChunkCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// EdgeCount returns the number of edges.
func (s *SQLiteStore) EdgeCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n)
	return n, err
}

// Clear removes all nodes and edges.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func unmarshalList(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(x))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
