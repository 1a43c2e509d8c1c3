package model

// MessageAction はリモートサービスから通知される操作種別です
type MessageAction string

const (
	ActionAdd    MessageAction = "add"
	ActionEdit   MessageAction = "edit"
	ActionDelete MessageAction = "delete"
)

// MessageData はリモートメッセージに含まれる予約フィールドです
type MessageData struct {
	Date     string  `json:"date"`
	Hour     string  `json:"hour"`
	People   int     `json:"people"`
	Price    float64 `json:"price"`
	Status   bool    `json:"status"`
	ExtID    string  `json:"extid"`
	Name     string  `json:"name"`
	Surname  string  `json:"surname"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Comment  string  `json:"comment"`
	Language string  `json:"language"`
	Invoice  string  `json:"invoice"`
	Source   string  `json:"source"` // web, panel, api, widget
}

// RemoteMessage はリモートサービスからのプッシュ通知1件を表します
type RemoteMessage struct {
	Action        MessageAction `json:"action"`
	RoomID        int64         `json:"roomid"`
	ReservationID string        `json:"reservationid"`
	Data          MessageData   `json:"data"`
}
