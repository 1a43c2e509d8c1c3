package model

import "sort"

// RoomMapping はローカルのカレンダー/商品IDからリモートの部屋IDへの対応表です
// リクエストごとに読み込まれ、読み取り専用の設定として扱われます
// 対応が存在しないカレンダーは同期対象外を意味します(エラーではない)
type RoomMapping map[string]int64

// RoomFor はローカルIDに対応する部屋IDを返します
// 未設定の場合は0を返し、呼び出し側は同期をスキップします
func (m RoomMapping) RoomFor(localID string) int64 {
	return m[localID]
}

// CalendarFor は部屋IDから逆引きでローカルIDを解決します
// 決定的な結果になるようキー順で走査します
func (m RoomMapping) CalendarFor(roomID int64) (string, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] == roomID {
			return k, true
		}
	}
	return "", false
}
