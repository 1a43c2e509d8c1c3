package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// AppointmentRecord はアポイントメント型の予約レコードです
// ゲスト情報が空の場合はアカウント情報(user_*)へフォールバックします
type AppointmentRecord struct {
	ID         int64          `db:"id"`
	CalendarID string         `db:"calendar_id"`
	Timeslot   string         `db:"timeslot"` // 例: "1000-1030"
	StartAt    time.Time      `db:"start_at"`
	GuestName  sql.NullString `db:"guest_name"`
	GuestEmail sql.NullString `db:"guest_email"`
	UserName   sql.NullString `db:"user_name"`
	UserEmail  sql.NullString `db:"user_email"`
	UserPhone  sql.NullString `db:"user_phone"`
	Status     string         `db:"status"` // publish, future, draft, pending, trash
	Source     sql.NullString `db:"source"` // 同期起源のレコードはリモートサービス名が入る
	Details    sql.NullString `db:"details"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// SlotDefaults はカレンダーのスロット表です
// キーは正確な日付(20060102形式)または曜日名(Mon形式)、
// 値はスロット開始時刻キー("1000"等)から定員へのマップです
type SlotDefaults map[string]map[string]int

// AppointmentRepository はアポイントメント予約の永続化を担当するインターフェースです
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*AppointmentRecord, error)
	Create(ctx context.Context, rec *AppointmentRecord) (int64, error)
	Update(ctx context.Context, rec *AppointmentRecord) error
	UpdateDetails(ctx context.Context, id int64, details string) error
	Delete(ctx context.Context, id int64) error
	ListFrom(ctx context.Context, cutoff time.Time) ([]AppointmentRecord, error)
	SlotDefaults(ctx context.Context, calendarID string) (SlotDefaults, error)
}

// AppointmentRepositoryImpl はAppointmentRepositoryの実装です
type AppointmentRepositoryImpl struct {
	db *DB
}

// NewAppointmentRepository は新しいAppointmentRepositoryを作成します
func NewAppointmentRepository(db *DB) *AppointmentRepositoryImpl {
	return &AppointmentRepositoryImpl{db: db}
}

const appointmentColumns = `
	id, calendar_id, timeslot, start_at,
	guest_name, guest_email, user_name, user_email, user_phone,
	status, source, details, created_at, updated_at`

// GetByID は指定されたIDの予約を取得します
// レコードが存在しない場合は(nil, nil)を返します
func (r *AppointmentRepositoryImpl) GetByID(ctx context.Context, id int64) (*AppointmentRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "AppointmentRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE id = $1`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query appointment %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("error reading appointment %d: %w", id, err)
		}
		return nil, nil
	}

	var rec AppointmentRecord
	if err := rows.StructScan(&rec); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to scan appointment row: %w", err)
	}

	return &rec, nil
}

// Create は予約レコードを作成してIDを返します
func (r *AppointmentRepositoryImpl) Create(ctx context.Context, rec *AppointmentRecord) (int64, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "AppointmentRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO appointments (
			calendar_id, timeslot, start_at,
			guest_name, guest_email,
			status, source, details, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING id`

	now := time.Now()
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.CalendarID,
		rec.Timeslot,
		rec.StartAt,
		rec.GuestName,
		rec.GuestEmail,
		rec.Status,
		rec.Source,
		rec.Details,
		now,
		now,
	).Scan(&id)

	if err != nil {
		seg.Close(err)
		return 0, fmt.Errorf("failed to create appointment: %w", err)
	}

	rec.ID = id
	return id, nil
}

// Update は予約レコードを上書き更新します
func (r *AppointmentRepositoryImpl) Update(ctx context.Context, rec *AppointmentRecord) error {
	ctx, seg := xray.BeginSubsegment(ctx, "AppointmentRepository.Update")
	defer seg.Close(nil)

	query := `
		UPDATE appointments
		SET timeslot = $1,
			start_at = $2,
			guest_name = $3,
			guest_email = $4,
			status = $5,
			updated_at = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		rec.Timeslot,
		rec.StartAt,
		rec.GuestName,
		rec.GuestEmail,
		rec.Status,
		time.Now(),
		rec.ID,
	)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("appointment with id %d not found", rec.ID)
		seg.Close(err)
		return err
	}

	return nil
}

// UpdateDetails は表示用の付加情報のみを更新します
func (r *AppointmentRepositoryImpl) UpdateDetails(ctx context.Context, id int64, details string) error {
	ctx, seg := xray.BeginSubsegment(ctx, "AppointmentRepository.UpdateDetails")
	defer seg.Close(nil)

	query := `
		UPDATE appointments
		SET details = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, details, id); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update appointment details: %w", err)
	}

	return nil
}

// Delete は予約レコードを削除します
// 既に存在しない場合も成功として扱います
func (r *AppointmentRepositoryImpl) Delete(ctx context.Context, id int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "AppointmentRepository.Delete")
	defer seg.Close(nil)

	query := `
		DELETE FROM appointments
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	return nil
}

// ListFrom は開始日時がcutoff以降の予約を取得します
func (r *AppointmentRepositoryImpl) ListFrom(ctx context.Context, cutoff time.Time) ([]AppointmentRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "AppointmentRepository.ListFrom")
	defer seg.Close(nil)

	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE start_at >= $1
		ORDER BY start_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query appointments from %v: %w", cutoff, err)
	}
	defer rows.Close()

	var records []AppointmentRecord
	for rows.Next() {
		var rec AppointmentRecord
		if err := rows.StructScan(&rec); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("failed to scan appointment row: %w", err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("error iterating appointment rows: %w", err)
	}

	return records, nil
}

// SlotDefaults はカレンダーのスロット表を取得します
// カレンダー個別の設定がない場合は既定のスロット表(calendar_id空文字の行)に
// フォールバックします
func (r *AppointmentRepositoryImpl) SlotDefaults(ctx context.Context, calendarID string) (SlotDefaults, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "AppointmentRepository.SlotDefaults")
	defer seg.Close(nil)

	query := `
		SELECT slots
		FROM slot_defaults
		WHERE calendar_id = $1`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, calendarID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.QueryRowContext(ctx, query, "").Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return SlotDefaults{}, nil
		}
	}
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query slot defaults for calendar %q: %w", calendarID, err)
	}

	var defaults SlotDefaults
	if err := json.Unmarshal(raw, &defaults); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to decode slot defaults: %w", err)
	}

	return defaults, nil
}
