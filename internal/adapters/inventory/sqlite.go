package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/logger"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const defaultBusyTimeoutMS = 5000

// tables maps each category to its inventory table.
var tables = map[model.Category]string{
	model.CategoryCPU:         "CPUtable",
	model.CategoryGPU:         "GPUtable",
	model.CategoryMotherboard: "motherboardtable",
	model.CategoryRAM:         "RAMtable",
	model.CategoryStorage:     "storagetable",
	model.CategoryPSU:         "PSUtable",
	model.CategoryCase:        "casetable",
	model.CategoryCooling:     "coolingtable",
}

type column struct {
	name string
	kind string
}

var commonColumns = []column{{"model_name", "TEXT"}, {"brand", "TEXT"}, {"price", "REAL"}}

// specColumns lists the category specific columns created by EnsureSchema.
var specColumns = map[model.Category][]column{
	model.CategoryCPU: {
		{"socket", "TEXT"}, {"cores", "REAL"}, {"threads", "REAL"}, {"baseclock", "REAL"},
		{"boostclock", "REAL"}, {"tdp", "REAL"}, {"integratedgraphics", "TEXT"},
	},
	model.CategoryGPU: {
		{"vram", "REAL"}, {"core_clock", "REAL"}, {"boostclock", "REAL"}, {"tdp", "REAL"}, {"length_mm", "REAL"},
	},
	model.CategoryMotherboard: {
		{"socket", "TEXT"}, {"chipset", "TEXT"}, {"form_factor", "TEXT"}, {"memory_type", "TEXT"},
		{"memory_slots", "REAL"}, {"max_memory", "REAL"}, {"m2_slots", "REAL"}, {"sata_ports", "REAL"},
	},
	model.CategoryRAM: {
		{"memory_type", "TEXT"}, {"capacity", "REAL"}, {"speed", "REAL"}, {"modules", "TEXT"},
	},
	model.CategoryStorage: {
		{"interface", "TEXT"}, {"capacity", "TEXT"}, {"type", "TEXT"},
	},
	model.CategoryPSU: {
		{"wattage", "REAL"}, {"form_factor", "TEXT"}, {"efficiency_rating", "TEXT"},
	},
	model.CategoryCase: {
		{"form_factor", "TEXT"}, {"max_gpu_length", "REAL"}, {"estimated_power", "REAL"},
		{"drive_bays_3_5", "REAL"}, {"radiator_support", "TEXT"}, {"max_cpu_cooler_height", "REAL"},
	},
	model.CategoryCooling: {
		{"type", "TEXT"}, {"supported_sockets", "TEXT"}, {"radiator_size", "TEXT"}, {"height_mm", "REAL"},
	},
}

// TableName returns the inventory table of c.
func TableName(c model.Category) (string, bool) {
	t, ok := tables[c]
	return t, ok
}

// SQLiteInventory is the live store inventory kept in a SQLite file.
type SQLiteInventory struct {
	db  *sql.DB
	log logger.Logger
}

// SQLiteOption configures Open.
type SQLiteOption func(*SQLiteInventory)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) SQLiteOption {
	return func(s *SQLiteInventory) {
		if l != nil {
			s.log = l
		}
	}
}

// Open opens (creating if needed) the inventory database at path.
func Open(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteInventory, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, defaultBusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open inventory %s: %w", path, err)
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping inventory %s: %w", path, err)
	}
	s := &SQLiteInventory{db: db, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteInventory) Close() error {
	return s.db.Close()
}

// EnsureSchema creates missing inventory tables.
func (s *SQLiteInventory) EnsureSchema(ctx context.Context) error {
	for _, c := range model.Categories() {
		cols := []string{`"id" INTEGER PRIMARY KEY AUTOINCREMENT`}
		for _, col := range append(append([]column{}, commonColumns...), specColumns[c]...) {
			cols = append(cols, fmt.Sprintf("%q %s", col.name, col.kind))
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", tables[c], strings.Join(cols, ", "))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", tables[c], err)
		}
	}
	return nil
}

// Exists implements Oracle. A missing table means the component is absent.
func (s *SQLiteInventory) Exists(ctx context.Context, id int, category model.Category) (bool, error) {
	table, ok := tables[category]
	if !ok {
		return false, nil
	}
	present, err := s.hasTable(ctx, table)
	if err != nil || !present {
		return false, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q WHERE id = ?", table), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup %s %d: %w", category, id, err)
	}
	return n > 0, nil
}

// Load reads every inventory table into purchasable components. Rows that
// cannot be decoded are logged and skipped.
func (s *SQLiteInventory) Load(ctx context.Context) ([]model.Component, error) {
	var out []model.Component
	for _, c := range model.Categories() {
		present, err := s.hasTable(ctx, tables[c])
		if err != nil {
			return nil, err
		}
		if !present {
			s.log.Debug(ctx, "inventory table missing", logger.String("table", tables[c]))
			continue
		}
		comps, err := s.loadTable(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, comps...)
	}
	return out, nil
}

func (s *SQLiteInventory) loadTable(ctx context.Context, c model.Category) ([]model.Component, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %q ORDER BY id", tables[c]))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tables[c], err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", tables[c], err)
	}
	var out []model.Component
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tables[c], err)
		}
		fields := make(map[string]string, len(names))
		for i, n := range names {
			if v, ok := toText(vals[i]); ok {
				fields[n] = v
			}
		}
		comp, err := model.Decode(c, fields)
		if err != nil {
			s.log.Warn(ctx, "skipping inventory row", logger.String("table", tables[c]), logger.Error(err))
			continue
		}
		comp.Availability = model.AvailabilityPurchasable
		out = append(out, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", tables[c], err)
	}
	return out, nil
}

// Add inserts a component into the table of category, keeping only the
// fields that match the table's columns. A missing or null id lets the
// database assign one. It returns the stored id.
func (s *SQLiteInventory) Add(ctx context.Context, category model.Category, fields map[string]any) (int, error) {
	table, ok := tables[category]
	if !ok {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownCategory, string(category))
	}
	cols, err := s.columns(ctx, table)
	if err != nil {
		return 0, err
	}

	values := make(map[string]any, len(fields))
	for k, v := range fields {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "drive_bays_3.5" {
			k = "drive_bays_3_5"
		}
		if _, ok := cols[k]; !ok {
			continue
		}
		if sv, ok := sqlValue(v); ok {
			values[k] = sv
		}
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoColumns, table)
	}

	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	quoted := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
		args[i] = values[n]
	}
	stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert id for %s: %w", table, err)
	}
	s.log.Info(ctx, "inventory component added",
		logger.String("table", table), logger.Int64("id", id), logger.Int("columns", len(names)))
	return int(id), nil
}

// columns returns the column names of table, lowercased.
func (s *SQLiteInventory) columns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid     int
			name    string
			kind    string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &kind, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		cols[strings.ToLower(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return cols, nil
}

func toText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return model.FormatNumber(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprint(x), true
	}
}

// sqlValue keeps scalar values that the driver can bind.
func sqlValue(v any) (any, bool) {
	switch x := v.(type) {
	case string, float64, float32, int, int64, int32, bool:
		return x, true
	case fmt.Stringer:
		return x.String(), true
	}
	return nil, false
}

// hasTable reports whether the schema defines table as a table or view.
func (s *SQLiteInventory) hasTable(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect schema for %s: %w", table, err)
	}
	return n > 0, nil
}

var _ Oracle = (*SQLiteInventory)(nil)
