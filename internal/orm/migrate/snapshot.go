package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/litemap/litemap/internal/database"
	"github.com/litemap/litemap/internal/orm/codegen"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/schema"
)

// Snapshot is the schema as it exists in the store: the tables listed in the metadata
// table, plus any table of the current model that exists without being listed.
type Snapshot struct {
	Version int

	tables map[string]*schema.Table
}

// Table looks a table up by name, ignoring case
func (s *Snapshot) Table(name string) (*schema.Table, bool) {
	t, ok := s.tables[strings.ToLower(name)]
	return t, ok
}

// Tables returns every table sorted by name
func (s *Snapshot) Tables() []*schema.Table {
	out := make([]*schema.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Empty reports whether the store holds none of the tables
func (s *Snapshot) Empty() bool {
	return len(s.tables) == 0
}

// LoadSnapshot reads the stored version and the column details of every known table.
// current supplies the model tables to look for when the metadata table misses them.
func LoadSnapshot(ctx context.Context, exec database.Executor, current *schema.Schema) (*Snapshot, error) {
	snap := &Snapshot{tables: make(map[string]*schema.Table)}

	version, err := database.UserVersion(ctx, exec)
	if err != nil {
		return nil, ormerrors.Store("inspect", "", err)
	}
	snap.Version = version

	kinds := make(map[string]schema.TableKind)
	known := func(name string) bool {
		for k := range kinds {
			if strings.EqualFold(k, name) {
				return true
			}
		}
		return false
	}
	metaExists, err := tableExists(ctx, exec, schema.MetadataTable)
	if err != nil {
		return nil, err
	}
	if metaExists {
		listed, err := listTables(ctx, exec)
		if err != nil {
			return nil, err
		}
		for name, kind := range listed {
			kinds[name] = kind
		}
		kinds[schema.MetadataTable] = schema.TableNormal
	}

	if current != nil {
		for _, t := range current.Tables() {
			if known(t.Name) {
				continue
			}
			exists, err := tableExists(ctx, exec, t.Name)
			if err != nil {
				return nil, err
			}
			if exists {
				kinds[t.Name] = t.Kind
			}
		}
	}

	for name, kind := range kinds {
		table, err := readTable(ctx, exec, name, kind)
		if err != nil {
			return nil, err
		}
		if table != nil {
			snap.tables[strings.ToLower(table.Name)] = table
		}
	}
	return snap, nil
}

func tableExists(ctx context.Context, exec database.Executor, name string) (bool, error) {
	exists, err := database.TableExists(ctx, exec, name)
	if err != nil {
		return false, ormerrors.Store("inspect", name, err)
	}
	return exists, nil
}

func listTables(ctx context.Context, exec database.Executor) (map[string]schema.TableKind, error) {
	rows, err := exec.QueryContext(ctx, fmt.Sprintf("SELECT name, type FROM %s", codegen.QuoteIdentifier(schema.MetadataTable)))
	if err != nil {
		return nil, ormerrors.Store("inspect", schema.MetadataTable, err)
	}
	defer rows.Close()

	out := make(map[string]schema.TableKind)
	for rows.Next() {
		var (
			name string
			kind sql.NullInt64
		)
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, ormerrors.Store("inspect", schema.MetadataTable, err)
		}
		out[name] = schema.TableKind(kind.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, ormerrors.Store("inspect", schema.MetadataTable, err)
	}
	return out, nil
}

// readTable rebuilds a table description from PRAGMA table_info and its single-column
// unique indexes. A listed table that no longer exists yields nil.
func readTable(ctx context.Context, exec database.Executor, name string, kind schema.TableKind) (*schema.Table, error) {
	rows, err := exec.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", codegen.QuoteIdentifier(name)))
	if err != nil {
		return nil, ormerrors.Store("inspect", name, err)
	}
	defer rows.Close()

	table := schema.NewTable(name, "", kind)
	for rows.Next() {
		var (
			cid      int
			colName  string
			declared string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &colName, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, ormerrors.Store("inspect", name, err)
		}
		c := schema.NewColumn(colName, schema.ParseStorageType(declared))
		c.Nullable = notNull == 0 && pk == 0
		if dflt.Valid {
			c.Default = dflt.String
		}
		table.AddColumn(c)
	}
	if err := rows.Err(); err != nil {
		return nil, ormerrors.Store("inspect", name, err)
	}
	rows.Close()

	if len(table.Columns()) == 0 {
		return nil, nil
	}

	unique, err := uniqueColumns(ctx, exec, name)
	if err != nil {
		return nil, err
	}
	for _, col := range unique {
		if c, ok := table.Column(col); ok && !c.IsIdentity() {
			c.Unique = true
		}
	}
	return table, nil
}

// uniqueColumns lists the columns carrying a single-column UNIQUE constraint
func uniqueColumns(ctx context.Context, exec database.Executor, table string) ([]string, error) {
	rows, err := exec.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", codegen.QuoteIdentifier(table)))
	if err != nil {
		return nil, ormerrors.Store("inspect", table, err)
	}

	var indexes []string
	for rows.Next() {
		columns, err := rows.Columns()
		if err != nil {
			rows.Close()
			return nil, ormerrors.Store("inspect", table, err)
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			rows.Close()
			return nil, ormerrors.Store("inspect", table, err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		if asString(row["unique"]) == "1" && asString(row["origin"]) == "u" {
			indexes = append(indexes, asString(row["name"]))
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, ormerrors.Store("inspect", table, err)
	}

	var out []string
	for _, index := range indexes {
		cols, err := indexColumns(ctx, exec, table, index)
		if err != nil {
			return nil, err
		}
		if len(cols) == 1 {
			out = append(out, cols[0])
		}
	}
	return out, nil
}

func indexColumns(ctx context.Context, exec database.Executor, table, index string) ([]string, error) {
	rows, err := exec.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", codegen.QuoteIdentifier(index)))
	if err != nil {
		return nil, ormerrors.Store("inspect", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, ormerrors.Store("inspect", table, err)
		}
		cols = append(cols, name.String)
	}
	return cols, rows.Err()
}

func asString(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
