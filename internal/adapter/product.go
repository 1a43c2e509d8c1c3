package adapter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/uma-arai/resvsync/internal/model"
	"github.com/uma-arai/resvsync/internal/repository"
)

// 商品予約ソースのステータス語彙と正規化ステータスの対応表
// カート内(in-cart)のみ未確定として送信します
var productStatusNorm = map[string]model.Status{
	"unpaid":               model.StatusConfirmed,
	"pending-confirmation": model.StatusConfirmed,
	"confirmed":            model.StatusConfirmed,
	"paid":                 model.StatusConfirmed,
	"complete":             model.StatusConfirmed,
	"in-cart":              model.StatusPending,
	"cancelled":            model.StatusPending,
	"trash":                model.StatusPending,
	"was-in-cart":          model.StatusPending,
}

var productStatusNative = map[model.Status]string{
	model.StatusConfirmed: "confirmed",
	model.StatusPending:   "pending-confirmation",
}

// 削除扱いとなるステータスの集合
var productDeletedStatuses = map[string]bool{
	"cancelled":   true,
	"trash":       true,
	"was-in-cart": true,
}

// ProductAdapter は購入可能な商品に紐づく予約ソースのSourceAdapter実装です
// 連絡先情報は予約本体ではなく紐づく注文の請求先から取得します
type ProductAdapter struct {
	repo       repository.ProductBookingRepository
	anonymizer Anonymizer
	slotLength time.Duration
}

// NewProductAdapter は新しいProductAdapterを作成します
// slotLengthは受信メッセージから終了日時を導出するための1スロットの長さです
func NewProductAdapter(repo repository.ProductBookingRepository, anonymizer Anonymizer, slotLength time.Duration) *ProductAdapter {
	if anonymizer == nil {
		anonymizer = PassthroughAnonymizer{}
	}
	return &ProductAdapter{
		repo:       repo,
		anonymizer: anonymizer,
		slotLength: slotLength,
	}
}

func (a *ProductAdapter) Name() string {
	return "product"
}

// Extract は商品予約レコードを正規化表現へ変換します
func (a *ProductAdapter) Extract(ctx context.Context, localID string, mapping model.RoomMapping) (*model.ReservationData, error) {
	id, err := strconv.ParseInt(localID, 10, 64)
	if err != nil {
		return nil, nil
	}

	rec, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	roomID := mapping.RoomFor(rec.ProductID)
	if roomID == 0 {
		return nil, nil
	}

	data := &model.ReservationData{
		RoomID:  roomID,
		LocalID: localID,
		Date:    rec.StartAt.Format("2006-01-02"),
		Hour:    rec.StartAt.Format("15:04:05"),
		People:  rec.Persons,
		Price:   rec.Cost,
		Status:  a.StatusToRemote(rec.Status),
		ExtID:   localID,
		Pricer:  "API",
	}

	if rec.OrderID.Valid {
		order, err := a.repo.GetOrder(ctx, rec.OrderID.Int64)
		if err != nil {
			return nil, err
		}
		if order != nil {
			data.Name = order.BillingFirstName.String
			data.Surname = order.BillingLastName.String
			data.Email = order.BillingEmail.String
			data.Phone = order.BillingPhone.String
		}
	}

	return a.anonymizer.Anonymize(data), nil
}

// IsDeleted はレコードが削除済み(キャンセル・ゴミ箱・カート落ち)かを返します
func (a *ProductAdapter) IsDeleted(ctx context.Context, localID string) (bool, error) {
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

	return productDeletedStatuses[rec.Status], nil
}

// Create は受信メッセージから商品予約レコードを作成します
// 終了日時は開始日時にスロット長を加えて導出します
func (a *ProductAdapter) Create(ctx context.Context, calendarID string, msg *model.RemoteMessage) (string, error) {
	start, err := parseStart(msg.Data.Date, msg.Data.Hour)
	if err != nil {
		return "", fmt.Errorf("%w: invalid start %q %q", ErrNoTimeSlot, msg.Data.Date, msg.Data.Hour)
	}

	rec := &repository.ProductBookingRecord{
		ProductID: calendarID,
		StartAt:   start,
		EndAt:     start.Add(a.slotLength),
		Persons:   msg.Data.People,
		Cost:      msg.Data.Price,
		Status:    productStatusNative[model.StatusPending],
	}

	id, err := a.repo.Create(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLocalSave, err)
	}

	return strconv.FormatInt(id, 10), nil
}

// Update は受信メッセージの内容で商品予約レコードを更新します
// 確定フラグが立っている場合のみ未確定ステータスを確定へ引き上げます
func (a *ProductAdapter) Update(ctx context.Context, calendarID, localID string, msg *model.RemoteMessage) error {
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

	start, err := parseStart(msg.Data.Date, msg.Data.Hour)
	if err != nil {
		return fmt.Errorf("%w: invalid start %q %q", ErrNoTimeSlot, msg.Data.Date, msg.Data.Hour)
	}

	if msg.Data.Status && rec.Status != "confirmed" {
		rec.Status = "confirmed"
	}
	rec.StartAt = start
	rec.EndAt = start.Add(a.slotLength)
	rec.Persons = msg.Data.People
	rec.Cost = msg.Data.Price

	if err := a.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalSave, err)
	}

	return nil
}

// Delete は商品予約レコードを削除します
func (a *ProductAdapter) Delete(ctx context.Context, localID string) error {
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
func (a *ProductAdapter) ListFrom(ctx context.Context, cutoff time.Time) ([]string, error) {
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

func (a *ProductAdapter) StatusFromRemote(confirmed bool) string {
	if confirmed {
		return productStatusNative[model.StatusConfirmed]
	}
	return productStatusNative[model.StatusPending]
}

func (a *ProductAdapter) StatusToRemote(native string) bool {
	return productStatusNorm[native].Confirmed()
}
