package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/model"
)

// databaseExtractor implements the §4.3.1 database sub-protocol: a
// pooled connection, a SQL template rendered with the business date, and
// cursor iteration into OrderEvent records (the `db` source type).
type databaseExtractor struct {
	cfg config.SourceConfig
	db  *sql.DB
}

// NewDatabaseExtractor is the registry.ExtractorFactory for the "db"
// source type.
func NewDatabaseExtractor(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
	return &databaseExtractor{cfg: sc}, nil
}

func (e *databaseExtractor) Category() string { return e.cfg.Category }
func (e *databaseExtractor) Name() string      { return e.cfg.Name }

func (e *databaseExtractor) Setup(ctx context.Context, ec *etlcontext.ETLContext) error {
	db, err := sql.Open("mysql", e.cfg.DBURL)
	if err != nil {
		return fmt.Errorf("database: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("database: ping: %w", err)
	}
	e.db = db
	return nil
}

func (e *databaseExtractor) Validate(ctx context.Context, ec *etlcontext.ETLContext) error {
	if e.cfg.SQLTemplate == "" {
		return fmt.Errorf("database: source %q missing sql.template", e.cfg.Name)
	}
	if !strings.Contains(e.cfg.SQLTemplate, "{businessDate}") {
		return fmt.Errorf("database: source %q sql.template has no {businessDate} placeholder", e.cfg.Name)
	}
	return nil
}

func (e *databaseExtractor) Extract(ctx context.Context, ec *etlcontext.ETLContext) (<-chan contracts.Payload, error) {
	businessDate := ec.CurrentDate.Format("2006-01-02")
	query := strings.ReplaceAll(e.cfg.SQLTemplate, "{businessDate}", businessDate)

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("database: query: %w", err)
	}

	ch := make(chan contracts.Payload, 256)
	go func() {
		defer close(ch)
		defer rows.Close()

		for rows.Next() {
			var orderID, userID, currency string
			var amountCents int64
			var placedAt time.Time
			if err := rows.Scan(&orderID, &userID, &amountCents, &currency, &placedAt); err != nil {
				select {
				case ch <- contracts.Payload{Err: fmt.Errorf("database: scan: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			evt := model.OrderEvent{
				OrderID:     orderID,
				UserID:      userID,
				AmountCents: amountCents,
				Currency:    currency,
				PlacedAt:    placedAt,
			}
			select {
			case ch <- contracts.Payload{Data: evt}:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			select {
			case ch <- contracts.Payload{Err: fmt.Errorf("database: rows: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

func (e *databaseExtractor) Cleanup() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}
