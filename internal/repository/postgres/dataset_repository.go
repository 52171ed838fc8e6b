package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/repository"
)

const insertBatchSize = 500

type DatasetRepository struct {
	db *DB
}

func NewDatasetRepository(db *DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

var _ repository.DatasetRepository = (*DatasetRepository)(nil)

// EnsureSchema creates the tables on first use. The schema is small
// enough that a migration tool would be overhead.
func (r *DatasetRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
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

func (r *DatasetRepository) SaveDataset(ctx context.Context, ds *domain.Dataset) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO datasets (
				id, name, fingerprint, uploaded_at, rows,
				dropped_bad_date, dropped_bad_amount,
				has_department, has_order_method, has_product
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				fingerprint = EXCLUDED.fingerprint,
				uploaded_at = EXCLUDED.uploaded_at,
				rows = EXCLUDED.rows,
				dropped_bad_date = EXCLUDED.dropped_bad_date,
				dropped_bad_amount = EXCLUDED.dropped_bad_amount,
				has_department = EXCLUDED.has_department,
				has_order_method = EXCLUDED.has_order_method,
				has_product = EXCLUDED.has_product
		`,
			ds.ID, ds.Name, ds.Fingerprint, ds.UploadedAt, ds.Rows,
			ds.DroppedBadDate, ds.DroppedBadAmount,
			ds.Axes.Department, ds.Axes.OrderMethod, ds.Axes.Product,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert dataset: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE dataset_id = $1`, ds.ID); err != nil {
			return fmt.Errorf("failed to clear transactions: %w", err)
		}

		for start := 0; start < len(ds.Records); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(ds.Records) {
				end = len(ds.Records)
			}
			if err := insertTransactionBatch(ctx, tx, ds.ID, ds.Records[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertTransactionBatch(ctx context.Context, tx *sql.Tx, datasetID string, records []domain.TransactionRecord) error {
	const cols = 10
	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO transactions (
			dataset_id, sale_date, quantity, net_amount,
			department_code, department_name,
			order_method_code, order_method_name,
			product_code, product_name
		) VALUES `)

	args := make([]interface{}, 0, len(records)*cols)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * cols
		sb.WriteString("(")
		for c := 1; c <= cols; c++ {
			if c > 1 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, "$%d", base+c)
		}
		sb.WriteString(")")
		args = append(args,
			datasetID, rec.SaleDate, rec.Quantity, rec.NetAmount,
			rec.DepartmentCode, rec.DepartmentName,
			rec.OrderMethodCode, rec.OrderMethodName,
			rec.ProductCode, rec.ProductName,
		)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert transaction batch: %w", err)
	}
	return nil
}

func (r *DatasetRepository) GetDataset(ctx context.Context, id string) (*domain.Dataset, error) {
	var row struct {
		ID               string `db:"id"`
		Name             string `db:"name"`
		Fingerprint      string `db:"fingerprint"`
		UploadedAt       sql.NullTime
		Rows             int  `db:"rows"`
		DroppedBadDate   int  `db:"dropped_bad_date"`
		DroppedBadAmount int  `db:"dropped_bad_amount"`
		HasDepartment    bool `db:"has_department"`
		HasOrderMethod   bool `db:"has_order_method"`
		HasProduct       bool `db:"has_product"`
	}
	err := r.db.QueryRowxContext(ctx, `
		SELECT id, name, fingerprint, uploaded_at, rows,
		       dropped_bad_date, dropped_bad_amount,
		       has_department, has_order_method, has_product
		FROM datasets WHERE id = $1
	`, id).Scan(
		&row.ID, &row.Name, &row.Fingerprint, &row.UploadedAt, &row.Rows,
		&row.DroppedBadDate, &row.DroppedBadAmount,
		&row.HasDepartment, &row.HasOrderMethod, &row.HasProduct,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	ds := &domain.Dataset{
		ID:               row.ID,
		Name:             row.Name,
		Fingerprint:      row.Fingerprint,
		UploadedAt:       row.UploadedAt.Time,
		Rows:             row.Rows,
		DroppedBadDate:   row.DroppedBadDate,
		DroppedBadAmount: row.DroppedBadAmount,
		Axes: domain.AxisAvailability{
			Department:  row.HasDepartment,
			OrderMethod: row.HasOrderMethod,
			Product:     row.HasProduct,
		},
	}

	if err := r.db.SelectContext(ctx, &ds.Records, `
		SELECT sale_date, quantity, net_amount,
		       department_code, department_name,
		       order_method_code, order_method_name,
		       product_code, product_name
		FROM transactions
		WHERE dataset_id = $1
		ORDER BY sale_date, id
	`, id); err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	return ds, nil
}

func (r *DatasetRepository) ListDatasets(ctx context.Context) ([]domain.DatasetInfo, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT d.id, d.name, d.fingerprint, d.uploaded_at, d.rows,
		       d.dropped_bad_date, d.dropped_bad_amount,
		       d.has_department, d.has_order_method, d.has_product,
		       MIN(t.sale_date) AS first_date,
		       MAX(t.sale_date) AS last_date
		FROM datasets d
		LEFT JOIN transactions t ON t.dataset_id = d.id
		GROUP BY d.id
		ORDER BY d.uploaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var out []domain.DatasetInfo
	for rows.Next() {
		var info domain.DatasetInfo
		var uploadedAt sql.NullTime
		var first, last sql.NullTime
		var hasDept, hasMethod, hasProduct bool
		if err := rows.Scan(
			&info.ID, &info.Name, &info.Fingerprint, &uploadedAt, &info.Rows,
			&info.DroppedBadDate, &info.DroppedBadAmount,
			&hasDept, &hasMethod, &hasProduct,
			&first, &last,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		info.UploadedAt = uploadedAt.Time
		info.Axes = domain.AxisAvailability{
			Department:  hasDept,
			OrderMethod: hasMethod,
			Product:     hasProduct,
		}
		if first.Valid && last.Valid {
			info.FirstDate = first.Time.Format("2006-01-02")
			info.LastDate = last.Time.Format("2006-01-02")
			info.Days = int(last.Time.Sub(first.Time).Hours()/24) + 1
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *DatasetRepository) DeleteDataset(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDatasetNotFound
	}
	return nil
}
