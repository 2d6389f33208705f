package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"
)

// QueryParams encapsulates all query parameters
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword
	// Example: "Page > ? AND Dirty = ?"
	Where string

	// Args holds the arguments for the placeholders in Where
	Args []any

	// Limit is the maximum number of records to return (pagination)
	// Set to 0 for no limit
	Limit int

	// Offset is the number of records to skip (pagination)
	Offset int

	// OrderBy specifies sorting, without the "ORDER BY" keywords
	// Example: "Access DESC"
	OrderBy string
}

// DataReader can read back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable establishes a mapping between a database table and a Go struct
	// type. This mapping is required before querying a table.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables that exist in the recording,
	// sorted by name.
	ListTables() []string

	// Query executes a query on a table and returns pointers to the mapped
	// struct type, plus the number of rows matching the filter. A mapped
	// table missing from the recording has no rows.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader
	Close() error
}

type sqliteReader struct {
	*sql.DB

	mappings map[string]tableMapping
}

// tableMapping ties a table to the struct its rows are scanned into. The
// columns are the struct's field names, as the recorder wrote them.
type tableMapping struct {
	structType reflect.Type
	columns    []string
	fields     [][]int
}

// NewReader opens a recording file for reading.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", "file:"+dbFilename+"?mode=ro")
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a new DataReader with a given database
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:       db,
		mappings: make(map[string]tableMapping),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	m := tableMapping{
		structType: t,
		columns:    structs.Names(sampleEntry),
	}

	for _, c := range m.columns {
		f, ok := t.FieldByName(c)
		if !ok {
			panic(fmt.Sprintf("column %s of table %s has no field in %s",
				c, tableName, t))
		}

		m.fields = append(m.fields, f.Index)
	}

	r.mappings[tableName] = m
}

// ListTables returns the mapped tables that the recording holds.
func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.mappings))

	for table := range r.mappings {
		exists, err := r.tableExists(context.Background(), table)
		if err == nil && exists {
			tables = append(tables, table)
		}
	}

	sort.Strings(tables)

	return tables
}

// Query returns the rows of a mapped table. A mapped table that the
// recording does not hold reads as empty.
func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	m, ok := r.mappings[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	exists, err := r.tableExists(ctx, tableName)
	if err != nil {
		return nil, 0, err
	}

	if !exists {
		return nil, 0, nil
	}

	where := ""
	if params.Where != "" {
		where = " WHERE " + params.Where
	}

	var total int

	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+where, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT " + strings.Join(m.columns, ", ") +
		" FROM " + tableName + where + pageClause(params)

	rows, err := r.DB.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := m.scan(rows)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// pageClause renders ORDER BY, LIMIT, and OFFSET. SQLite needs a LIMIT
// before an OFFSET, and -1 means no limit.
func pageClause(params QueryParams) string {
	clause := ""

	if params.OrderBy != "" {
		clause += " ORDER BY " + params.OrderBy
	}

	switch {
	case params.Limit > 0:
		clause += fmt.Sprintf(" LIMIT %d", params.Limit)
	case params.Offset > 0:
		clause += " LIMIT -1"
	}

	if params.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", params.Offset)
	}

	return clause
}

func (r *sqliteReader) tableExists(
	ctx context.Context,
	tableName string,
) (bool, error) {
	var n int

	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		tableName).Scan(&n)
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (m tableMapping) scan(rows *sql.Rows) ([]any, error) {
	var results []any

	for rows.Next() {
		ptr := reflect.New(m.structType)
		targets := make([]any, len(m.fields))

		for i, index := range m.fields {
			targets[i] = ptr.Elem().FieldByIndex(index).Addr().Interface()
		}

		err := rows.Scan(targets...)
		if err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}
