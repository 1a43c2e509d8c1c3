package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// ProductBookingRecord は商品(購入型)に紐づく予約レコードです
type ProductBookingRecord struct {
	ID        int64         `db:"id"`
	ProductID string        `db:"product_id"`
	StartAt   time.Time     `db:"start_at"`
	EndAt     time.Time     `db:"end_at"`
	Persons   int           `db:"persons"`
	Cost      float64       `db:"cost"`
	Status    string        `db:"status"` // unpaid, pending-confirmation, confirmed, paid, complete, in-cart, cancelled, trash, was-in-cart
	OrderID   sql.NullInt64 `db:"order_id"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// OrderRecord は予約に紐づく注文の請求先情報です
type OrderRecord struct {
	ID               int64          `db:"id"`
	BillingEmail     sql.NullString `db:"billing_email"`
	BillingPhone     sql.NullString `db:"billing_phone"`
	BillingFirstName sql.NullString `db:"billing_first_name"`
	BillingLastName  sql.NullString `db:"billing_last_name"`
}

// ProductBookingRepository は商品予約の永続化を担当するインターフェースです
type ProductBookingRepository interface {
	GetByID(ctx context.Context, id int64) (*ProductBookingRecord, error)
	GetOrder(ctx context.Context, orderID int64) (*OrderRecord, error)
	Create(ctx context.Context, rec *ProductBookingRecord) (int64, error)
	Update(ctx context.Context, rec *ProductBookingRecord) error
	Delete(ctx context.Context, id int64) error
	ListFrom(ctx context.Context, cutoff time.Time) ([]ProductBookingRecord, error)
}

// ProductBookingRepositoryImpl はProductBookingRepositoryの実装です
type ProductBookingRepositoryImpl struct {
	db *DB
}

// NewProductBookingRepository は新しいProductBookingRepositoryを作成します
func NewProductBookingRepository(db *DB) *ProductBookingRepositoryImpl {
	return &ProductBookingRepositoryImpl{db: db}
}

const productBookingColumns = `
	id, product_id, start_at, end_at, persons, cost, status, order_id,
	created_at, updated_at`

// GetByID は指定されたIDの予約を取得します
// レコードが存在しない場合は(nil, nil)を返します
func (r *ProductBookingRepositoryImpl) GetByID(ctx context.Context, id int64) (*ProductBookingRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProductBookingRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT` + productBookingColumns + `
		FROM product_bookings
		WHERE id = $1`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query product booking %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("error reading product booking %d: %w", id, err)
		}
		return nil, nil
	}

	var rec ProductBookingRecord
	if err := rows.StructScan(&rec); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to scan product booking row: %w", err)
	}

	return &rec, nil
}

// GetOrder は予約に紐づく注文を取得します
// 注文が存在しない場合は(nil, nil)を返します
func (r *ProductBookingRepositoryImpl) GetOrder(ctx context.Context, orderID int64) (*OrderRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProductBookingRepository.GetOrder")
	defer seg.Close(nil)

	query := `
		SELECT id, billing_email, billing_phone, billing_first_name, billing_last_name
		FROM orders
		WHERE id = $1`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query order %d: %w", orderID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("error reading order %d: %w", orderID, err)
		}
		return nil, nil
	}

	var rec OrderRecord
	if err := rows.StructScan(&rec); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to scan order row: %w", err)
	}

	return &rec, nil
}

// Create は予約レコードを作成してIDを返します
func (r *ProductBookingRepositoryImpl) Create(ctx context.Context, rec *ProductBookingRecord) (int64, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProductBookingRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO product_bookings (
			product_id, start_at, end_at, persons, cost, status, order_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id`

	now := time.Now()
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.ProductID,
		rec.StartAt,
		rec.EndAt,
		rec.Persons,
		rec.Cost,
		rec.Status,
		rec.OrderID,
		now,
		now,
	).Scan(&id)

	if err != nil {
		seg.Close(err)
		return 0, fmt.Errorf("failed to create product booking: %w", err)
	}

	rec.ID = id
	return id, nil
}

// Update は予約レコードを上書き更新します
func (r *ProductBookingRepositoryImpl) Update(ctx context.Context, rec *ProductBookingRecord) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ProductBookingRepository.Update")
	defer seg.Close(nil)

	query := `
		UPDATE product_bookings
		SET start_at = $1,
			end_at = $2,
			persons = $3,
			cost = $4,
			status = $5,
			updated_at = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		rec.StartAt,
		rec.EndAt,
		rec.Persons,
		rec.Cost,
		rec.Status,
		time.Now(),
		rec.ID,
	)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update product booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("product booking with id %d not found", rec.ID)
		seg.Close(err)
		return err
	}

	return nil
}

// Delete は予約レコードを削除します
// 既に存在しない場合も成功として扱います
func (r *ProductBookingRepositoryImpl) Delete(ctx context.Context, id int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ProductBookingRepository.Delete")
	defer seg.Close(nil)

	query := `
		DELETE FROM product_bookings
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to delete product booking: %w", err)
	}

	return nil
}

// ListFrom は開始日時がcutoff以降の予約を取得します
func (r *ProductBookingRepositoryImpl) ListFrom(ctx context.Context, cutoff time.Time) ([]ProductBookingRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProductBookingRepository.ListFrom")
	defer seg.Close(nil)

	query := `
		SELECT` + productBookingColumns + `
		FROM product_bookings
		WHERE start_at >= $1
		ORDER BY start_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query product bookings from %v: %w", cutoff, err)
	}
	defer rows.Close()

	var records []ProductBookingRecord
	for rows.Next() {
		var rec ProductBookingRecord
		if err := rows.StructScan(&rec); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("failed to scan product booking row: %w", err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("error iterating product booking rows: %w", err)
	}

	return records, nil
}
