// Package sqlstore is a remote.Store backed by a SQL database through bun.
//
// Records are kept as a JSON property bag in the records table. Every
// filterable or sortable value is also projected into record_fields so that
// queries can be answered in SQL. SQLite is used for file and in-memory DSNs;
// postgres:// DSNs are served through pgx.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/gymcoding/invoice-web/remote"
)

type recordRow struct {
	bun.BaseModel `bun:"table:records,alias:r"`

	ID           string    `bun:"id,pk"`
	DataSourceID string    `bun:"data_source_id,notnull"`
	Archived     bool      `bun:"archived,notnull"`
	Body         string    `bun:"body,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

type fieldRow struct {
	bun.BaseModel `bun:"table:record_fields,alias:f"`

	RecordID    string   `bun:"record_id,pk"`
	Name        string   `bun:"name,pk"`
	Kind        string   `bun:"kind,notnull"`
	TextValue   *string  `bun:"text_value"`
	NumberValue *float64 `bun:"number_value"`
	DateValue   *string  `bun:"date_value"`
}

// Store implements remote.Store over a bun.DB.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

var _ remote.Store = (*Store)(nil)

// Open connects to dsn and creates the schema if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openDB(dsn string) (*bun.DB, error) {
	if dsn == "" {
		return nil, errors.New("sqlstore: empty dsn")
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		sqldb.SetMaxOpenConns(25)
		sqldb.SetMaxIdleConns(5)
		sqldb.SetConnMaxLifetime(5 * time.Minute)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open("sqlite3", strings.TrimPrefix(dsn, "sqlite://"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		// In-memory databases live and die with their connections.
		sqldb.SetMaxOpenConns(1)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// New wraps an existing bun.DB. Call Migrate before first use.
func New(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying handle.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, model := range []any{(*recordRow)(nil), (*fieldRow)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		name    string
		model   any
		columns []string
	}{
		{"idx_records_data_source", (*recordRow)(nil), []string{"data_source_id", "archived"}},
		{"idx_record_fields_name", (*fieldRow)(nil), []string{"name", "record_id"}},
	}
	for _, idx := range indexes {
		_, err := s.db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// Put inserts or replaces rec in dataSourceID.
func (s *Store) Put(ctx context.Context, dataSourceID string, rec remote.Record) error {
	if rec.ID == "" {
		return errors.New("sqlstore: record id is required")
	}

	body, err := json.Marshal(rec.Properties)
	if err != nil {
		return fmt.Errorf("encode properties of %s: %w", rec.ID, err)
	}

	row := &recordRow{
		ID:           rec.ID,
		DataSourceID: dataSourceID,
		Archived:     rec.Archived,
		Body:         string(body),
		UpdatedAt:    s.now().UTC(),
	}
	fields := project(rec)

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("data_source_id = EXCLUDED.data_source_id").
			Set("archived = EXCLUDED.archived").
			Set("body = EXCLUDED.body").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}

		if _, err := tx.NewDelete().Model((*fieldRow)(nil)).Where("record_id = ?", rec.ID).Exec(ctx); err != nil {
			return fmt.Errorf("clear fields of %s: %w", rec.ID, err)
		}
		if len(fields) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&fields).Exec(ctx); err != nil {
			return fmt.Errorf("insert fields of %s: %w", rec.ID, err)
		}
		return nil
	})
}

// Archive marks the record with id as archived. Archived records are returned
// without properties and never appear in query results.
func (s *Store) Archive(ctx context.Context, id string) error {
	res, err := s.db.NewUpdate().
		Model((*recordRow)(nil)).
		Set("archived = ?", true).
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive record %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return remote.NotFound(id)
	}
	return nil
}

// GetRecord implements remote.Store.
func (s *Store) GetRecord(ctx context.Context, id string) (remote.Record, error) {
	row := new(recordRow)
	err := s.db.NewSelect().Model(row).Where("r.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.Record{}, remote.NotFound(id)
	}
	if err != nil {
		return remote.Record{}, unavailable(err)
	}

	return decode(row)
}

// QueryDataSource implements remote.Store. Archived records are excluded.
// Sorted properties order numbers and dates with missing values last, and
// ties fall back to the record id.
func (s *Store) QueryDataSource(ctx context.Context, q remote.Query) (remote.QueryResult, error) {
	if q.PageSize < 1 || q.PageSize > remote.MaxPageSize {
		return remote.QueryResult{}, invalid("page_size should be between 1 and %d, got %d", remote.MaxPageSize, q.PageSize)
	}
	offset, err := decodeCursor(q.Cursor)
	if err != nil {
		return remote.QueryResult{}, invalid("malformed start_cursor")
	}

	var rows []recordRow
	sel := s.db.NewSelect().
		Model(&rows).
		Where("r.data_source_id = ?", q.DataSourceID).
		Where("r.archived = ?", false)

	if q.Filter != nil {
		expr, args, err := compile(q.Filter)
		if err != nil {
			return remote.QueryResult{}, invalid("%v", err)
		}
		if expr != "" {
			sel = sel.Where(expr, args...)
		}
	}

	for _, sort := range q.Sorts {
		dir := "ASC"
		if sort.Direction == remote.Descending {
			dir = "DESC"
		}
		sel = sel.
			OrderExpr("(SELECT f.number_value FROM record_fields AS f WHERE f.record_id = r.id AND f.name = ?) "+dir+" NULLS LAST", sort.Property).
			OrderExpr("(SELECT f.date_value FROM record_fields AS f WHERE f.record_id = r.id AND f.name = ?) "+dir+" NULLS LAST", sort.Property)
	}
	sel = sel.OrderExpr("r.id ASC").Limit(q.PageSize + 1).Offset(offset)

	if err := sel.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return remote.QueryResult{}, unavailable(err)
	}

	res := remote.QueryResult{Results: make([]remote.Record, 0, min(len(rows), q.PageSize))}
	if len(rows) > q.PageSize {
		rows = rows[:q.PageSize]
		res.HasMore = true
		res.NextCursor = encodeCursor(offset + q.PageSize)
	}
	for i := range rows {
		rec, err := decode(&rows[i])
		if err != nil {
			return remote.QueryResult{}, err
		}
		res.Results = append(res.Results, rec)
	}
	return res, nil
}

func decode(row *recordRow) (remote.Record, error) {
	rec := remote.Record{ID: row.ID, Archived: row.Archived}
	if row.Archived {
		return rec, nil
	}
	if err := json.Unmarshal([]byte(row.Body), &rec.Properties); err != nil {
		return remote.Record{}, &remote.ProviderError{
			Status:  http.StatusInternalServerError,
			Code:    remote.CodeInternal,
			Message: fmt.Sprintf("decode record %s: %v", row.ID, err),
		}
	}
	return rec, nil
}

// project extracts the values queries can filter and sort on.
func project(rec remote.Record) []fieldRow {
	fields := make([]fieldRow, 0, len(rec.Properties))
	for name, prop := range rec.Properties {
		f := fieldRow{RecordID: rec.ID, Name: name, Kind: string(prop.Type)}
		switch prop.Type {
		case remote.PropertyTitle, remote.PropertyRichText:
			text := prop.PlainText()
			f.TextValue = &text
		case remote.PropertyNumber:
			f.NumberValue = prop.Number
		case remote.PropertyDate:
			if prop.Date != nil && prop.Date.Start != "" {
				day := dayOf(prop.Date.Start)
				f.DateValue = &day
			}
		case remote.PropertySelect:
			if prop.Select != nil {
				name := prop.Select.Name
				f.TextValue = &name
			}
		default:
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func dayOf(start string) string {
	if len(start) > len(time.DateOnly) {
		return start[:len(time.DateOnly)]
	}
	return start
}

func invalid(format string, args ...any) *remote.ProviderError {
	return &remote.ProviderError{
		Status:  http.StatusBadRequest,
		Code:    remote.CodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

func unavailable(err error) *remote.ProviderError {
	return &remote.ProviderError{
		Status:  http.StatusServiceUnavailable,
		Code:    remote.CodeServiceUnavailable,
		Message: err.Error(),
	}
}
