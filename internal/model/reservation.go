package model

import (
	"fmt"
	"time"
)

// ReservationData は予約の正規化された中間表現です
// 同期処理のたびにローカルレコードまたは受信メッセージから組み立て直され、
// API呼び出しの完了後には破棄されます
type ReservationData struct {
	RoomID  int64   `json:"roomid"`
	LocalID string  `json:"-"`
	Date    string  `json:"date"` // YYYY-MM-DD
	Hour    string  `json:"hour"` // HH:MM:SS
	Name    string  `json:"name"`
	Surname string  `json:"surname"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	People  int     `json:"people"`
	Price   float64 `json:"price"`
	Status  bool    `json:"status"` // true = confirmed
	ExtID   string  `json:"extid"`
	Pricer  string  `json:"pricer"`
	Source  string  `json:"source"`
}

// StartAt はDateとHourを日時として解釈します
func (d *ReservationData) StartAt() (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", d.Date+" "+d.Hour)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reservation date/hour %q %q: %w", d.Date, d.Hour, err)
	}
	return t, nil
}

// ExternalTag はローカルレコードIDからリモート側の相関タグを組み立てます
// このタグが唯一の相関キーであり、日時での突き合わせは行いません
func ExternalTag(localID string) string {
	return "ext/" + localID
}

// Status は各アダプタ固有のステータス語彙を正規化した列挙です
type Status int

const (
	// StatusPending は未確定(下書き・仮予約)の予約を表します
	StatusPending Status = iota
	// StatusConfirmed は確定済みの予約を表します
	StatusConfirmed
)

// Confirmed はリモート側のステータスフラグに変換します
func (s Status) Confirmed() bool {
	return s == StatusConfirmed
}
