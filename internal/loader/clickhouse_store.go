// clickhouse_store.go is the contracts.Store implementation over the
// analytical store (§6's target driver), backed by gorm.io/gorm and the
// ClickHouse dialect. It replaces the teacher's benchmark postgres row
// store (cmd/benchmark/models_postgres.go used database/sql directly);
// this driver goes through gorm's Exec/Raw so the same connection pool
// serves script execution, batch insert, and scalar validation queries.
package loader

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cuong/dayetl/internal/contracts"
)

// ClickHouseStore is the concrete contracts.Store for this driver.
type ClickHouseStore struct{}

// gormHandle adapts *gorm.DB to contracts.Handle.
type gormHandle struct {
	db *gorm.DB
}

func (h *gormHandle) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return fmt.Errorf("loader: resolve underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (ClickHouseStore) Connect(ctx context.Context, connectionString string) (contracts.Handle, error) {
	db, err := gorm.Open(clickhouse.Open(connectionString), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("loader: connect to clickhouse: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("loader: resolve underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("loader: ping clickhouse: %w", err)
	}
	return &gormHandle{db: db}, nil
}

func (ClickHouseStore) ExecuteScript(ctx context.Context, h contracts.Handle, script string) error {
	gh, ok := h.(*gormHandle)
	if !ok {
		return fmt.Errorf("loader: ExecuteScript called with foreign handle type %T", h)
	}
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := gh.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("loader: execute script statement: %w", err)
		}
	}
	return nil
}

// InsertBatch builds one multi-row INSERT from the column vectors and
// executes it. columnOrder[j] names the column that columnVectors[j] holds
// values for; every vector has the same length (the row count).
func (ClickHouseStore) InsertBatch(ctx context.Context, h contracts.Handle, table string, columnOrder []string, columnVectors [][]any) error {
	gh, ok := h.(*gormHandle)
	if !ok {
		return fmt.Errorf("loader: InsertBatch called with foreign handle type %T", h)
	}
	if len(columnOrder) == 0 {
		return nil
	}
	rowCount := len(columnVectors[0])
	if rowCount == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columnOrder, ", "))

	args := make([]any, 0, rowCount*len(columnOrder))
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range columnOrder {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, columnVectors[j][i])
		}
		sb.WriteString(")")
	}

	if err := gh.db.WithContext(ctx).Exec(sb.String(), args...).Error; err != nil {
		return fmt.Errorf("loader: insert batch into %s: %w", table, err)
	}
	return nil
}

func (ClickHouseStore) RunScalarQuery(ctx context.Context, h contracts.Handle, query string) (int64, error) {
	gh, ok := h.(*gormHandle)
	if !ok {
		return 0, fmt.Errorf("loader: RunScalarQuery called with foreign handle type %T", h)
	}
	var result int64
	if err := gh.db.WithContext(ctx).Raw(query).Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("loader: run scalar query: %w", err)
	}
	return result, nil
}

func (ClickHouseStore) Close(h contracts.Handle) error {
	return h.Close()
}

var _ contracts.Store = ClickHouseStore{}
