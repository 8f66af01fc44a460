package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facelog/internal/database"
)

// Store is a database.Store backed by a *sql.DB.
// It holds one long-lived connection pool for the whole session.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	ts      string // quoted timestamp column
	now     func() time.Time
	dim     int // embedding dimension of stored rows, 0 until known
}

var _ database.Store = (*Store)(nil)

// New wraps an open *sql.DB. The table name must be a plain SQL identifier.
func New(db *sql.DB, dialect Dialect, table string) (*Store, error) {
	if err := database.ValidateTable(table); err != nil {
		return nil, err
	}
	return &Store{
		db:      db,
		dialect: dialect,
		table:   table,
		ts:      dialect.QuoteIdent("timestamp"),
		now:     time.Now,
	}, nil
}

// SetClock replaces the clock used to stamp appended records.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// DB returns the underlying sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Table returns the faces table name.
func (s *Store) Table() string {
	return s.table
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Initialize creates the faces table if absent. It never alters an existing table.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable(s.table)); err != nil {
		return database.NewStorageError("create table", err)
	}
	return nil
}

// VerifyTable checks that the faces table exists without creating it.
func (s *Store) VerifyTable(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.TableExists, s.table).Scan(&n); err != nil {
		return database.NewStorageError("verify table", err)
	}
	if n == 0 {
		return database.NewStorageError("verify table", fmt.Errorf("%w: %s", database.ErrTableNotFound, s.table))
	}
	return nil
}

// storedDim returns the embedding dimension of the oldest stored row, 0 for an empty table.
func (s *Store) storedDim(ctx context.Context) (int, error) {
	if s.dim > 0 {
		return s.dim, nil
	}

	query := fmt.Sprintf("SELECT fingerprint FROM %s WHERE fingerprint IS NOT NULL ORDER BY id LIMIT 1", s.table)
	var blob []byte
	err := s.db.QueryRowContext(ctx, query).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query stored dimension: %w", err)
	}

	s.dim = len(blob) / 8
	return s.dim, nil
}

// Append inserts one face in a single statement, so partial rows are never visible.
func (s *Store) Append(ctx context.Context, face database.FaceInput) (int64, error) {
	if len(face.Embedding) == 0 {
		return 0, database.NewStorageError("append", fmt.Errorf("%w: empty embedding", database.ErrDimensionMismatch))
	}

	dim, err := s.storedDim(ctx)
	if err != nil {
		return 0, database.NewStorageError("append", err)
	}
	if dim > 0 && dim != len(face.Embedding) {
		return 0, database.NewStorageError("append",
			fmt.Errorf("%w: got %d values, store has %d", database.ErrDimensionMismatch, len(face.Embedding), dim))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, name, fingerprint, image) VALUES (%s)",
		s.table, s.ts, s.dialect.bind(1, 4))
	args := []any{
		database.FormatTimestamp(s.now()),
		face.Label,
		database.EncodeEmbedding(face.Embedding),
		face.Image,
	}

	var id int64
	if s.dialect.ReturningID {
		if err := s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, database.NewStorageError("append", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, database.NewStorageError("append", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, database.NewStorageError("append", fmt.Errorf("read inserted id: %w", err))
		}
	}

	s.dim = len(face.Embedding)
	return id, nil
}

// LoadAll returns every stored label and embedding in ascending id order.
func (s *Store) LoadAll(ctx context.Context) ([]database.LabeledEmbedding, error) {
	query := fmt.Sprintf("SELECT id, name, fingerprint FROM %s ORDER BY id", s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, database.NewStorageError("load all", err)
	}
	defer rows.Close()

	result := []database.LabeledEmbedding{}
	for rows.Next() {
		var (
			row   database.LabeledEmbedding
			label sql.NullString
			blob  []byte
		)
		if err := rows.Scan(&row.ID, &label, &blob); err != nil {
			return nil, database.NewStorageError("load all", fmt.Errorf("scan face: %w", err))
		}
		row.Label = label.String
		row.Embedding, err = database.DecodeEmbedding(blob)
		if err != nil {
			return nil, database.NewStorageError("load all", fmt.Errorf("face %d: %w", row.ID, err))
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStorageError("load all", fmt.Errorf("iterate faces: %w", err))
	}

	return result, nil
}

// ListImages returns id, label and image bytes of every stored face in ascending id order.
func (s *Store) ListImages(ctx context.Context) ([]database.FaceImage, error) {
	query := fmt.Sprintf("SELECT id, name, image FROM %s ORDER BY id", s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, database.NewStorageError("list images", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// ListImagesPage returns up to limit faces with id greater than afterID.
func (s *Store) ListImagesPage(ctx context.Context, afterID int64, limit int) ([]database.FaceImage, error) {
	if limit <= 0 {
		limit = database.DefaultPageSize
	}
	query := fmt.Sprintf("SELECT id, name, image FROM %s WHERE id > %s ORDER BY id LIMIT %s",
		s.table, s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	rows, err := s.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, database.NewStorageError("list images page", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

func scanImages(rows *sql.Rows) ([]database.FaceImage, error) {
	result := []database.FaceImage{}
	for rows.Next() {
		var (
			img   database.FaceImage
			label sql.NullString
		)
		if err := rows.Scan(&img.ID, &label, &img.Image); err != nil {
			return nil, database.NewStorageError("list images", fmt.Errorf("scan face: %w", err))
		}
		img.Label = label.String
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStorageError("list images", fmt.Errorf("iterate faces: %w", err))
	}
	return result, nil
}

// Get retrieves a face by id, returns nil if not found.
func (s *Store) Get(ctx context.Context, id int64) (*database.StoredFace, error) {
	query := fmt.Sprintf("SELECT id, %s, name, fingerprint, image FROM %s WHERE id = %s",
		s.ts, s.table, s.dialect.Placeholder(1))

	var (
		face  database.StoredFace
		ts    sql.NullString
		label sql.NullString
		blob  []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&face.ID, &ts, &label, &blob, &face.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.NewStorageError("get", err)
	}

	face.Label = label.String
	if ts.Valid && ts.String != "" {
		if face.Timestamp, err = database.ParseTimestamp(ts.String); err != nil {
			return nil, database.NewStorageError("get", err)
		}
	}
	if face.Embedding, err = database.DecodeEmbedding(blob); err != nil {
		return nil, database.NewStorageError("get", fmt.Errorf("face %d: %w", face.ID, err))
	}

	return &face, nil
}

// Count returns the total number of faces stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count)
	if err != nil {
		return 0, database.NewStorageError("count", err)
	}
	return count, nil
}

// LabelCounts returns sightings per label ordered by the label's first sighting.
func (s *Store) LabelCounts(ctx context.Context) ([]database.LabelCount, error) {
	query := fmt.Sprintf(`
		SELECT name, COUNT(*), MIN(id), MIN(%[1]s), MAX(%[1]s)
		FROM %[2]s
		GROUP BY name
		ORDER BY MIN(id)
	`, s.ts, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, database.NewStorageError("label counts", err)
	}
	defer rows.Close()

	result := []database.LabelCount{}
	for rows.Next() {
		var (
			lc          database.LabelCount
			label       sql.NullString
			first, last sql.NullString
		)
		if err := rows.Scan(&label, &lc.Count, &lc.FirstID, &first, &last); err != nil {
			return nil, database.NewStorageError("label counts", fmt.Errorf("scan label: %w", err))
		}
		lc.Label = label.String
		// Unparseable timestamps leave the zero time; counts are still useful.
		if first.Valid {
			lc.FirstSeen, _ = database.ParseTimestamp(first.String)
		}
		if last.Valid {
			lc.LastSeen, _ = database.ParseTimestamp(last.String)
		}
		result = append(result, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStorageError("label counts", fmt.Errorf("iterate labels: %w", err))
	}

	return result, nil
}
