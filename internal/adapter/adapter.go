// Package adapter はローカル予約ストアと正規化表現の間の変換を提供します
// 予約ソース(プラグイン)ごとに1実装を持ち、設定時に選択されます
package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/uma-arai/resvsync/internal/model"
)

var (
	// ErrNoTimeSlot は受信メッセージの時刻に一致するスロットが
	// スロット表に存在しないことを表します。部分的なレコードは作成されません
	ErrNoTimeSlot = errors.New("no time slot")

	// ErrRecordMissing は操作対象のローカルレコードが存在しないことを表します
	// 受信パスではエラーではなく「適用対象なし」(false)として扱われます
	ErrRecordMissing = errors.New("local record missing")

	// ErrLocalSave はローカルストアへの保存失敗を表します
	// 受信パスでは呼び出し元へ伝播する必要があります
	ErrLocalSave = errors.New("local save failed")
)

// SourceAdapter はローカル予約ソース1種に対する読み書きの抽象です
// 全実装で同一の契約を持ちます
type SourceAdapter interface {
	// Name はソース識別子を返します
	Name() string

	// Extract はローカルレコードを正規化表現へ変換します
	// レコードが存在しない、型が異なる、部屋マッピングが未設定のいずれかの
	// 場合は(nil, nil)を返し、呼び出し側は同期をスキップします
	Extract(ctx context.Context, localID string, mapping model.RoomMapping) (*model.ReservationData, error)

	// IsDeleted はレコードが削除済み(ゴミ箱・キャンセル等)かを返します
	IsDeleted(ctx context.Context, localID string) (bool, error)

	// Create は受信メッセージからローカルレコードを作成してIDを返します
	Create(ctx context.Context, calendarID string, msg *model.RemoteMessage) (string, error)

	// Update は受信メッセージの内容でローカルレコードを更新します
	Update(ctx context.Context, calendarID, localID string, msg *model.RemoteMessage) error

	// Delete はローカルレコードを削除します
	Delete(ctx context.Context, localID string) error

	// ListFrom は開始日時がcutoff以降のローカルレコードIDを列挙します
	ListFrom(ctx context.Context, cutoff time.Time) ([]string, error)

	// StatusFromRemote はリモートの確定フラグをソース固有のステータス語彙へ変換します
	StatusFromRemote(confirmed bool) string

	// StatusToRemote はソース固有のステータスをリモートの確定フラグへ変換します
	StatusToRemote(native string) bool
}

// Anonymizer は送信前に連絡先フィールドへ適用する匿名化フックです
// 具体的なルールは別のコラボレータが所有します
type Anonymizer interface {
	Anonymize(d *model.ReservationData) *model.ReservationData
}

// PassthroughAnonymizer は何も加工しない既定の実装です
type PassthroughAnonymizer struct{}

func (PassthroughAnonymizer) Anonymize(d *model.ReservationData) *model.ReservationData {
	return d
}
