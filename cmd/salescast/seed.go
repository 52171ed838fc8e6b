// backend-go/cmd/salescast/seed.go
package main

import (
	"bytes"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/ingest"
)

func parseDateFlag(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// runSeed parses a sales CSV and loads it straight into the database so
// the server can pick it up after a restart.
func runSeed(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("input"))
	if err != nil {
		return err
	}

	parsed, err := ingest.Parse(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if len(parsed.Records) == 0 {
		return fmt.Errorf("no usable rows in %s", c.String("input"))
	}

	name := c.String("name")
	if name == "" {
		name = filepath.Base(c.String("input"))
	}

	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ensureSeedSchema(c, db); err != nil {
		return err
	}

	sum := sha1.Sum(raw)
	ds := &domain.Dataset{
		ID:               uuid.NewString(),
		Name:             name,
		Fingerprint:      hex.EncodeToString(sum[:]),
		UploadedAt:       time.Now().UTC(),
		Rows:             parsed.Rows,
		DroppedBadDate:   parsed.DroppedBadDate,
		DroppedBadAmount: parsed.DroppedBadAmount,
		Axes:             parsed.Axes,
		Records:          parsed.Records,
	}

	if err := insertDataset(c, db, ds); err != nil {
		return err
	}

	log.Printf("seeded dataset %s (%s): %d records from %d rows",
		ds.ID, name, len(ds.Records), ds.Rows)
	return nil
}

func ensureSeedSchema(c *cli.Context, db *sql.DB) error {
	_, err := db.ExecContext(c.Context, `
		CREATE TABLE IF NOT EXISTS datasets (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			fingerprint        TEXT NOT NULL,
			uploaded_at        TIMESTAMPTZ NOT NULL,
			rows               INTEGER NOT NULL,
			dropped_bad_date   INTEGER NOT NULL,
			dropped_bad_amount INTEGER NOT NULL,
			has_department     BOOLEAN NOT NULL,
			has_order_method   BOOLEAN NOT NULL,
			has_product        BOOLEAN NOT NULL
		);
		CREATE TABLE IF NOT EXISTS transactions (
			id                BIGSERIAL PRIMARY KEY,
			dataset_id        TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			sale_date         DATE NOT NULL,
			quantity          DOUBLE PRECISION NOT NULL,
			net_amount        NUMERIC(18,2) NOT NULL,
			department_code   TEXT NOT NULL DEFAULT '',
			department_name   TEXT NOT NULL DEFAULT '',
			order_method_code TEXT NOT NULL DEFAULT '',
			order_method_name TEXT NOT NULL DEFAULT '',
			product_code      TEXT NOT NULL DEFAULT '',
			product_name      TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_dataset_date
			ON transactions (dataset_id, sale_date);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func insertDataset(c *cli.Context, db *sql.DB, ds *domain.Dataset) error {
	tx, err := db.BeginTx(c.Context, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(c.Context, `
		INSERT INTO datasets (
			id, name, fingerprint, uploaded_at, rows,
			dropped_bad_date, dropped_bad_amount,
			has_department, has_order_method, has_product
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		ds.ID, ds.Name, ds.Fingerprint, ds.UploadedAt, ds.Rows,
		ds.DroppedBadDate, ds.DroppedBadAmount,
		ds.Axes.Department, ds.Axes.OrderMethod, ds.Axes.Product,
	); err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(c.Context, `
		INSERT INTO transactions (
			dataset_id, sale_date, quantity, net_amount,
			department_code, department_name,
			order_method_code, order_method_name,
			product_code, product_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range ds.Records {
		if _, err := stmt.ExecContext(c.Context,
			ds.ID, rec.SaleDate, rec.Quantity, rec.NetAmount,
			rec.DepartmentCode, rec.DepartmentName,
			rec.OrderMethodCode, rec.OrderMethodName,
			rec.ProductCode, rec.ProductName,
		); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
