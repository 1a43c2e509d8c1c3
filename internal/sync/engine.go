package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/resvsync/internal/adapter"
	"github.com/uma-arai/resvsync/internal/model"
	"github.com/uma-arai/resvsync/internal/remote"
	"github.com/uma-arai/resvsync/internal/repository"
)

// Engine はローカル予約ストアとリモート予約サービスの間の照合処理を担当します
//
// エラーポリシーは方向で異なります:
//   - 送信(ローカル→リモート): ベストエフォート。リモートAPIの失敗は全て
//     ログに残して握りつぶし、ローカルの予約フローを決してブロックしない
//   - 受信(リモート→ローカル): リモート側が同期的に応答を待っているため、
//     処理エラー(スロット未解決・保存失敗)は型付きエラーとして伝播する
type Engine struct {
	api        remote.Api
	source     adapter.SourceAdapter
	mappings   repository.MappingRepository
	anonymizer adapter.Anonymizer
	guard      *Guard
}

// NewEngine は新しいEngineを作成します
func NewEngine(api remote.Api, source adapter.SourceAdapter, mappings repository.MappingRepository, anonymizer adapter.Anonymizer) *Engine {
	if anonymizer == nil {
		anonymizer = adapter.PassthroughAnonymizer{}
	}
	return &Engine{
		api:        api,
		source:     source,
		mappings:   mappings,
		anonymizer: anonymizer,
		guard:      &Guard{},
	}
}

// Guard はループガードを返します
// ホスト側が独自のイベント配送でガード状態を確認する場合に使います
func (e *Engine) Guard() *Guard {
	return e.guard
}

// OnCreate はローカル予約の作成イベントを処理します
// 作成と変更は同一の照合パスを通るため、重複して発火しても
// 存在チェックにより自然に吸収されます
func (e *Engine) OnCreate(ctx context.Context, localID string) {
	e.OnChange(ctx, localID)
}

// OnChange はローカル予約の変更イベントを処理します
// レコードが解決できない(型違い・マッピング未設定)場合はno-opです
func (e *Engine) OnChange(ctx context.Context, localID string) {
	if e.guard.Held() {
		return
	}

	ctx, seg := xray.BeginSubsegment(ctx, "SyncEngine.OnChange")
	defer seg.Close(nil)

	data, err := e.extract(ctx, localID)
	if err != nil {
		log.Printf("Failed to extract local record %s: %v", localID, err)
		return
	}
	if data == nil {
		return
	}

	deleted, err := e.source.IsDeleted(ctx, localID)
	if err != nil {
		log.Printf("Failed to check deletion of local record %s: %v", localID, err)
		return
	}
	if deleted {
		e.deleteRemote(ctx, data)
		return
	}

	e.pushRemote(ctx, data)
}

// OnDelete はローカル予約の削除イベントを処理します
// マッピングが既に失われている場合は静かにno-opになります
// レコードがまだ削除済みステータスになっていない場合は送信パスへ回します
// (ホストの削除トリガは実際の削除前に発火することがあるため)
func (e *Engine) OnDelete(ctx context.Context, localID string) {
	if e.guard.Held() {
		return
	}

	ctx, seg := xray.BeginSubsegment(ctx, "SyncEngine.OnDelete")
	defer seg.Close(nil)

	data, err := e.extract(ctx, localID)
	if err != nil {
		log.Printf("Failed to extract local record %s: %v", localID, err)
		return
	}
	if data == nil {
		return
	}

	deleted, err := e.source.IsDeleted(ctx, localID)
	if err != nil {
		log.Printf("Failed to check deletion of local record %s: %v", localID, err)
		return
	}
	if !deleted {
		e.pushRemote(ctx, data)
		return
	}

	e.deleteRemote(ctx, data)
}

// HandleMessage はリモートからのプッシュ通知1件をローカルストアへ適用します
// 戻り値のboolは適用できたかどうかで、extid欠落のような「適用対象なし」は
// (false, nil)を返します。実際の処理エラー(スロット未解決・保存失敗)は
// 型付きエラーとして返します
func (e *Engine) HandleMessage(ctx context.Context, msg *model.RemoteMessage) (bool, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SyncEngine.HandleMessage")
	defer seg.Close(nil)

	// 適用中に発火するローカルイベントが送信パスへ流れないようにする
	release := e.guard.Acquire()
	defer release()

	mapping, err := e.mappings.Load(ctx)
	if err != nil {
		seg.Close(err)
		return false, fmt.Errorf("failed to load room mappings: %w", err)
	}

	switch msg.Action {
	case model.ActionAdd:
		return e.applyAdd(ctx, mapping, msg)
	case model.ActionEdit:
		return e.applyEdit(ctx, mapping, msg)
	case model.ActionDelete:
		return e.applyDelete(ctx, msg)
	default:
		log.Printf("Unknown remote message action %q", msg.Action)
		return false, nil
	}
}

// ExportAll はcutoff以降の全ローカルレコードを送信パスへ流します
// 個々のレコードの同期失敗は送信パスのポリシーに従って握りつぶされ、
// バッチ全体は中断しません
func (e *Engine) ExportAll(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SyncEngine.ExportAll")
	defer seg.Close(nil)

	ids, err := e.source.ListFrom(ctx, cutoff)
	if err != nil {
		seg.Close(err)
		return 0, fmt.Errorf("failed to list local records: %w", err)
	}

	log.Printf("Exporting %d local records from %v", len(ids), cutoff.Format("2006-01-02"))

	for _, id := range ids {
		e.OnChange(ctx, id)
	}

	return len(ids), nil
}

// extract はマッピングを読み込んだ上でローカルレコードを解決します
func (e *Engine) extract(ctx context.Context, localID string) (*model.ReservationData, error) {
	mapping, err := e.mappings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load room mappings: %w", err)
	}

	return e.source.Extract(ctx, localID, mapping)
}

// pushRemote はレコードをリモートへ作成または上書き更新します
// 冪等性は相関タグによる存在チェックで保証します
func (e *Engine) pushRemote(ctx context.Context, data *model.ReservationData) {
	tag := model.ExternalTag(data.LocalID)

	existing, err := e.api.FindReservation(ctx, data.RoomID, tag)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		// 検索失敗は「存在しない」とみなして作成側に倒す
		// 一時障害の後に重複が生じうる点は受容済みのリスク
		log.Printf("Remote lookup failed for %s in room %d, treating as missing: %v", tag, data.RoomID, err)
		existing = nil
	}

	payload := remote.PayloadFrom(data)
	if existing == nil {
		if _, err := e.api.AddReservation(ctx, payload); err != nil {
			log.Printf("Failed to add remote reservation %s in room %d: %v", tag, data.RoomID, err)
		}
		return
	}

	if err := e.api.EditReservation(ctx, data.RoomID, tag, payload); err != nil {
		log.Printf("Failed to edit remote reservation %s in room %d: %v", tag, data.RoomID, err)
	}
}

// deleteRemote はリモート側の予約を削除します
// 失敗はログに残すだけで呼び出し元には返しません
func (e *Engine) deleteRemote(ctx context.Context, data *model.ReservationData) {
	tag := model.ExternalTag(data.LocalID)

	if err := e.api.DeleteReservation(ctx, data.RoomID, tag); err != nil {
		log.Printf("Failed to delete remote reservation %s in room %d: %v", tag, data.RoomID, err)
	}
}

// applyAdd は受信したaddメッセージからローカルレコードを作成し、
// 新しいローカルIDをリモート側へextidとして刻印して相関ループを閉じます
func (e *Engine) applyAdd(ctx context.Context, mapping model.RoomMapping, msg *model.RemoteMessage) (bool, error) {
	calendarID, ok := mapping.CalendarFor(msg.RoomID)
	if !ok {
		log.Printf("No calendar mapped to room %d, ignoring add message", msg.RoomID)
		return false, nil
	}

	localID, err := e.source.Create(ctx, calendarID, msg)
	if err != nil {
		return false, err
	}

	// 刻印の失敗はリモート作成済みレコードを壊さないため握りつぶす
	stamp := e.anonymizer.Anonymize(&model.ReservationData{ExtID: localID})
	payload := &remote.ReservationPayload{ExtID: stamp.ExtID}
	if err := e.api.EditReservation(ctx, msg.RoomID, msg.ReservationID, payload); err != nil {
		log.Printf("Failed to stamp extid %s on remote reservation %s: %v", localID, msg.ReservationID, err)
	}

	return true, nil
}

// applyEdit は受信したeditメッセージをローカルレコードへ適用します
// extidが無い場合は適用先が特定できないため(false, nil)を返します
func (e *Engine) applyEdit(ctx context.Context, mapping model.RoomMapping, msg *model.RemoteMessage) (bool, error) {
	if msg.Data.ExtID == "" {
		return false, nil
	}

	calendarID, _ := mapping.CalendarFor(msg.RoomID)

	err := e.source.Update(ctx, calendarID, msg.Data.ExtID, msg)
	if errors.Is(err, adapter.ErrRecordMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// applyDelete は受信したdeleteメッセージをローカルレコードへ適用します
func (e *Engine) applyDelete(ctx context.Context, msg *model.RemoteMessage) (bool, error) {
	if msg.Data.ExtID == "" {
		return false, nil
	}

	err := e.source.Delete(ctx, msg.Data.ExtID)
	if errors.Is(err, adapter.ErrRecordMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
