// Package postgres implements the prediction warehouse on PostgreSQL.
//
// A table identifier project.dataset.table maps onto schema dataset and
// table table of the connected database. The project part is carried for
// logging only; one pool serves one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/domain/table"
)

// Queryer is the subset of pgxpool.Pool and pgx.Tx used by the warehouse.
type Queryer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Conn is a Queryer that can run a function inside a transaction.
type Conn interface {
	Queryer
	InTx(ctx context.Context, fn func(Queryer) error) error
}

// Warehouse reads and writes frames as PostgreSQL tables.
type Warehouse struct {
	conn   Conn
	logger *zap.Logger
}

// New creates a warehouse over conn.
func New(conn Conn, logger *zap.Logger) *Warehouse {
	return &Warehouse{conn: conn, logger: logger}
}

// Pool adapts *pgxpool.Pool to Conn.
type Pool struct {
	*pgxpool.Pool
}

// InTx runs fn in a transaction committed when fn returns nil.
func (p Pool) InTx(ctx context.Context, fn func(Queryer) error) error {
	return p.BeginFunc(ctx, func(tx pgx.Tx) error { return fn(tx) })
}

// Connect opens a pool to dsn and waits until the server answers.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return Pool{}, fmt.Errorf("connect warehouse: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return Pool{}, fmt.Errorf("ping warehouse: %w", err)
	}
	return Pool{Pool: pool}, nil
}

// EnsureDataset creates the schema holding id if it does not exist.
func (w *Warehouse) EnsureDataset(ctx context.Context, id table.ID) error {
	sql := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{id.Dataset()}.Sanitize()
	if _, err := w.conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create dataset %s: %w: %w", id.DatasetID(), domain.ErrDestinationProvisioning, err)
	}
	w.logger.Info("Dataset ready", zap.String("dataset", id.DatasetID()))
	return nil
}

// Read returns every row of id.
func (w *Warehouse) Read(ctx context.Context, id table.ID) (*frame.Frame, error) {
	rows, err := w.conn.Query(ctx, "SELECT * FROM "+ident(id))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, classify(err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = string(fd.Name)
	}
	out, err := frame.New(names...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read %s: decode row: %w", id, err)
		}
		for i, v := range vals {
			vals[i] = cellValue(v)
		}
		if err := out.AppendRow(vals...); err != nil {
			return nil, fmt.Errorf("read %s: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", id, classify(err))
	}
	return out, nil
}

// Load writes rows into id in a single transaction. WRITE_TRUNCATE replaces
// the table, schema included; WRITE_APPEND creates it when missing and adds
// rows. The schema is used only when the table is created.
func (w *Warehouse) Load(
	ctx context.Context,
	id table.ID,
	schema []table.Field,
	rows *frame.Frame,
	disposition table.WriteDisposition,
) (int64, error) {
	var written int64
	err := w.conn.InTx(ctx, func(q Queryer) error {
		if disposition == table.WriteTruncate {
			if _, err := q.Exec(ctx, "DROP TABLE IF EXISTS "+ident(id)); err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
		}
		if _, err := q.Exec(ctx, createTableSQL(id, schema)); err != nil {
			return fmt.Errorf("create table: %w: %w", domain.ErrDestinationProvisioning, err)
		}

		columns := make([]string, len(schema))
		for i, f := range schema {
			columns[i] = f.Name
		}
		n, err := q.CopyFrom(ctx, pgx.Identifier{id.Dataset(), id.Table()}, columns, &frameSource{rows: rows, schema: schema, next: -1})
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", id, classify(err))
	}
	return written, nil
}

func ident(id table.ID) string {
	return pgx.Identifier{id.Dataset(), id.Table()}.Sanitize()
}

func createTableSQL(id table.ID, schema []table.Field) string {
	cols := make([]string, len(schema))
	for i, f := range schema {
		cols[i] = pgx.Identifier{f.Name}.Sanitize() + " " + sqlType(f.Kind)
	}
	return "CREATE TABLE IF NOT EXISTS " + ident(id) + " (" + strings.Join(cols, ", ") + ")"
}

func sqlType(k frame.Kind) string {
	switch k {
	case frame.KindInt:
		return "BIGINT"
	case frame.KindFloat:
		return "DOUBLE PRECISION"
	case frame.KindBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// classify maps PostgreSQL error codes onto domain errors.
func classify(err error) error {
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) {
		return err
	}
	switch pgerr.Code {
	case pgerrcode.UndefinedTable, pgerrcode.InvalidSchemaName:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case pgerrcode.InsufficientPrivilege:
		if errors.Is(err, domain.ErrDestinationProvisioning) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrDestinationProvisioning, err)
	default:
		return err
	}
}

// cellValue converts a decoded column value to a frame cell.
func cellValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case interface{ AssignTo(dst interface{}) error }:
		var f float64
		if err := x.AssignTo(&f); err == nil {
			return f
		}
		return frame.Normalize(v)
	default:
		return frame.Normalize(v)
	}
}

// frameSource streams frame rows to COPY, coercing cells to the schema.
type frameSource struct {
	rows   *frame.Frame
	schema []table.Field
	next   int
	err    error
}

func (s *frameSource) Next() bool {
	if s.err != nil {
		return false
	}
	s.next++
	return s.next < s.rows.Len()
}

func (s *frameSource) Values() ([]interface{}, error) {
	out := make([]interface{}, len(s.schema))
	for j, f := range s.schema {
		col, ok := s.rows.Column(f.Name)
		if !ok {
			s.err = domain.NewMissingColumn(f.Name)
			return nil, s.err
		}
		v, err := coerce(col[s.next], f.Kind)
		if err != nil {
			s.err = fmt.Errorf("row %d column %q: %w", s.next, f.Name, err)
			return nil, s.err
		}
		out[j] = v
	}
	return out, nil
}

func (s *frameSource) Err() error { return s.err }

func coerce(v any, k frame.Kind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case frame.KindInt:
		if i, ok := v.(int64); ok {
			return i, nil
		}
	case frame.KindFloat:
		if f, ok := frame.ToFloat(v); ok {
			return f, nil
		}
	case frame.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	default:
		return frame.Format(v), nil
	}
	return nil, fmt.Errorf("value %v does not fit %s column: %w", v, k, domain.ErrInvalidInput)
}
