package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uma-arai/resvsync/internal/model"
	"github.com/uma-arai/resvsync/internal/repository"
)

// appointmentOriginTag は同期起源のレコードに付ける印です
// この印を持つレコードに限り、表示用の付加情報を上書きします
// (手動編集されたレコードのメタ情報を壊さないため)
const appointmentOriginTag = "remote"

// アポイントメントソースのステータス語彙と正規化ステータスの対応表
var appointmentStatusNorm = map[string]model.Status{
	"publish": model.StatusConfirmed,
	"future":  model.StatusConfirmed,
	"draft":   model.StatusPending,
	"pending": model.StatusPending,
	"trash":   model.StatusPending,
}

var appointmentStatusNative = map[model.Status]string{
	model.StatusConfirmed: "publish",
	model.StatusPending:   "draft",
}

// AppointmentAdapter はスロット表つきカレンダーに紐づく
// アポイントメント型予約ソースのSourceAdapter実装です
type AppointmentAdapter struct {
	repo       repository.AppointmentRepository
	anonymizer Anonymizer
}

// NewAppointmentAdapter は新しいAppointmentAdapterを作成します
func NewAppointmentAdapter(repo repository.AppointmentRepository, anonymizer Anonymizer) *AppointmentAdapter {
	if anonymizer == nil {
		anonymizer = PassthroughAnonymizer{}
	}
	return &AppointmentAdapter{
		repo:       repo,
		anonymizer: anonymizer,
	}
}

func (a *AppointmentAdapter) Name() string {
	return "appointment"
}

// Extract はアポイントメントレコードを正規化表現へ変換します
func (a *AppointmentAdapter) Extract(ctx context.Context, localID string, mapping model.RoomMapping) (*model.ReservationData, error) {
	id, err := strconv.ParseInt(localID, 10, 64)
	if err != nil {
		// 数値でないIDはこのソースのレコードではない
		return nil, nil
	}

	rec, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	roomID := mapping.RoomFor(rec.CalendarID)
	if roomID == 0 {
		// マッピング未設定のカレンダーは同期対象外
		return nil, nil
	}

	name := rec.GuestName.String
	if name == "" {
		name = rec.UserName.String
	}
	email := rec.GuestEmail.String
	if email == "" {
		email = rec.UserEmail.String
	}

	data := &model.ReservationData{
		RoomID:  roomID,
		LocalID: localID,
		Date:    rec.StartAt.Format("2006-01-02"),
		Hour:    timeslotHour(rec),
		Name:    name,
		Email:   email,
		Phone:   rec.UserPhone.String,
		Status:  a.StatusToRemote(rec.Status),
		ExtID:   localID,
		Pricer:  "API",
	}

	return a.anonymizer.Anonymize(data), nil
}

// IsDeleted はレコードが削除済みかを返します
func (a *AppointmentAdapter) IsDeleted(ctx context.Context, localID string) (bool, error) {
	id, err := strconv.ParseInt(localID, 10, 64)
	if err != nil {
		return false, nil
	}

	rec, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return true, nil
	}

	return rec.Status == "trash", nil
}

// Create は受信メッセージからアポイントメントレコードを作成します
// メッセージの時刻に一致するスロットが見つからない場合はErrNoTimeSlotを返し、
// レコードは一切作成しません
func (a *AppointmentAdapter) Create(ctx context.Context, calendarID string, msg *model.RemoteMessage) (string, error) {
	slot, start, err := a.resolveSlot(ctx, calendarID, msg)
	if err != nil {
		return "", err
	}

	rec := &repository.AppointmentRecord{
		CalendarID: calendarID,
		Timeslot:   slot,
		StartAt:    start,
		GuestName:  nullString(guestName(msg)),
		GuestEmail: nullString(msg.Data.Email),
		Status:     a.StatusFromRemote(msg.Data.Status),
		Source:     nullString(appointmentOriginTag),
		Details:    nullString(BuildDetails(msg)),
	}

	id, err := a.repo.Create(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLocalSave, err)
	}

	return strconv.FormatInt(id, 10), nil
}

// Update は受信メッセージの内容でアポイントメントレコードを更新します
// 表示用の付加情報は、このシンクロナイザが作成したレコードに限り上書きします
func (a *AppointmentAdapter) Update(ctx context.Context, calendarID, localID string, msg *model.RemoteMessage) error {
	id, err := strconv.ParseInt(localID, 10, 64)
	if err != nil {
		return ErrRecordMissing
	}

	rec, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrRecordMissing
	}

	slot, start, err := a.resolveSlot(ctx, calendarID, msg)
	if err != nil {
		return err
	}

	rec.Timeslot = slot
	rec.StartAt = start
	rec.GuestName = nullString(guestName(msg))
	rec.GuestEmail = nullString(msg.Data.Email)
	rec.Status = a.StatusFromRemote(msg.Data.Status)

	if err := a.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalSave, err)
	}

	if rec.Source.String == appointmentOriginTag {
		if err := a.repo.UpdateDetails(ctx, id, BuildDetails(msg)); err != nil {
			return fmt.Errorf("%w: %v", ErrLocalSave, err)
		}
	}

	return nil
}

// Delete はアポイントメントレコードを削除します
func (a *AppointmentAdapter) Delete(ctx context.Context, localID string) error {
	id, err := strconv.ParseInt(localID, 10, 64)
	if err != nil {
		return ErrRecordMissing
	}

	if err := a.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalSave, err)
	}

	return nil
}

// ListFrom は開始日時がcutoff以降のレコードIDを列挙します
func (a *AppointmentAdapter) ListFrom(ctx context.Context, cutoff time.Time) ([]string, error) {
	records, err := a.repo.ListFrom(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = strconv.FormatInt(rec.ID, 10)
	}
	return ids, nil
}

func (a *AppointmentAdapter) StatusFromRemote(confirmed bool) string {
	if confirmed {
		return appointmentStatusNative[model.StatusConfirmed]
	}
	return appointmentStatusNative[model.StatusPending]
}

func (a *AppointmentAdapter) StatusToRemote(native string) bool {
	return appointmentStatusNorm[native].Confirmed()
}

// resolveSlot はメッセージの日付・時刻からスロットと開始日時を解決します
func (a *AppointmentAdapter) resolveSlot(ctx context.Context, calendarID string, msg *model.RemoteMessage) (string, time.Time, error) {
	date, err := time.Parse("2006-01-02", msg.Data.Date)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: invalid date %q", ErrNoTimeSlot, msg.Data.Date)
	}

	defaults, err := a.repo.SlotDefaults(ctx, calendarID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load slot defaults: %w", err)
	}

	slot, ok := ResolveSlot(defaults, date, msg.Data.Hour)
	if !ok {
		return "", time.Time{}, ErrNoTimeSlot
	}

	start, err := parseStart(msg.Data.Date, msg.Data.Hour)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: invalid hour %q", ErrNoTimeSlot, msg.Data.Hour)
	}

	return slot, start, nil
}

// parseStart は日付と時刻を開始日時として解釈します
func parseStart(date, hour string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", date+" "+hour)
	if err != nil {
		t, err = time.Parse("2006-01-02 15:04", date+" "+hour)
	}
	return t, err
}

// timeslotHour はタイムスロット("1000-1030"形式)の前半から開始時刻を復元します
// スロットが不正な形の場合は開始日時から導出します
func timeslotHour(rec *repository.AppointmentRecord) string {
	ts := strings.SplitN(rec.Timeslot, "-", 2)[0]
	if len(ts) >= 4 {
		return ts[:2] + ":" + ts[2:4] + ":00"
	}
	return rec.StartAt.Format("15:04:05")
}

// guestName は姓名を表示用の1フィールドへ結合します
func guestName(msg *model.RemoteMessage) string {
	return strings.TrimSpace(msg.Data.Name + " " + msg.Data.Surname)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
