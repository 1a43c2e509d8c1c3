package adapter

import (
	"strings"
	"testing"

	"github.com/uma-arai/resvsync/internal/model"
)

func TestBuildDetails(t *testing.T) {
	tests := []struct {
		name         string
		data         model.MessageData
		wantContains []string
		wantMissing  []string
	}{
		{
			name: "Web経由の支払い済み予約",
			data: model.MessageData{
				Source:  "web",
				Phone:   "123456789",
				People:  2,
				Price:   49.99,
				Comment: "window seat",
				Status:  true,
			},
			wantContains: []string{
				"Source: remote (web)",
				"Phone: 123456789",
				"People: 2",
				"Price: 49.99",
				"Comment: window seat",
				"Status: Paid",
			},
			wantMissing: []string{"Invoice:"},
		},
		{
			name: "Web経由の未払い予約は仮押さえ扱い",
			data: model.MessageData{
				Source: "web",
				Status: false,
			},
			wantContains: []string{"Status: Block (max. 20 minutes)"},
		},
		{
			name: "オペレータパネル経由",
			data: model.MessageData{
				Source: "panel",
			},
			wantContains: []string{"Status: Booking from operator panel - check status in panel"},
		},
		{
			name: "請求書番号つき",
			data: model.MessageData{
				Source:  "api",
				Invoice: "INV-42",
			},
			wantContains: []string{
				"Status: Booking from API",
				"Invoice: INV-42",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildDetails(&model.RemoteMessage{Data: tt.data})
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("BuildDetails() missing %q in:\n%s", want, got)
				}
			}
			for _, missing := range tt.wantMissing {
				if strings.Contains(got, missing) {
					t.Errorf("BuildDetails() should not contain %q in:\n%s", missing, got)
				}
			}
		})
	}
}
