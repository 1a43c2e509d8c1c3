package sync

import "sync/atomic"

// Guard は受信メッセージ適用中の再送出を抑止するプロセス全体のフラグです
//
// 受信メッセージの適用はローカルストアの変更イベントを発火させるため、
// そのまま送信パスに流れると適用したばかりの変更をリモートへ送り返す
// ピンポンループになります。ホストはイベントを直列に処理する前提ですが、
// 並行ホストでも壊れないようatomicで保持します
type Guard struct {
	held atomic.Bool
}

// Acquire はガードを取得し、解放関数を返します
// 解放は全ての経路(エラー時を含む)でdeferにより保証する必要があります
// 既に取得済みの場合は何もしない解放関数を返し、外側の取得を維持します
func (g *Guard) Acquire() func() {
	if g.held.CompareAndSwap(false, true) {
		return func() { g.held.Store(false) }
	}
	return func() {}
}

// Held は受信メッセージの適用中かを返します
// 送信パスの全エントリポイントはまずこれを確認し、保持中はno-opになります
func (g *Guard) Held() bool {
	return g.held.Load()
}
