package adapter

import (
	"fmt"
	"strings"

	"github.com/uma-arai/resvsync/internal/model"
)

// BuildDetails は受信メッセージから表示用の付加情報テキストを組み立てます
// リモート側でしか分からない情報(申込経路・支払い状態など)を
// ローカルの担当者向けに残します
func BuildDetails(msg *model.RemoteMessage) string {
	d := msg.Data

	var b strings.Builder
	fmt.Fprintf(&b, "Source: remote (%s)\n", d.Source)
	fmt.Fprintf(&b, "Phone: %s\n", d.Phone)
	fmt.Fprintf(&b, "People: %d\n", d.People)
	fmt.Fprintf(&b, "Price: %.2f\n", d.Price)
	fmt.Fprintf(&b, "Comment: %s\n", d.Comment)
	fmt.Fprintf(&b, "Language: %s\n", d.Language)

	switch d.Source {
	case "web":
		if d.Status {
			b.WriteString("Status: Paid\n")
		} else {
			b.WriteString("Status: Block (max. 20 minutes)\n")
		}
	case "panel":
		b.WriteString("Status: Booking from operator panel - check status in panel\n")
	case "api":
		b.WriteString("Status: Booking from API\n")
	case "widget":
		b.WriteString("Status: Booking from widget\n")
	}

	if d.Invoice != "" {
		fmt.Fprintf(&b, "Invoice: %s\n", d.Invoice)
	}

	return b.String()
}
