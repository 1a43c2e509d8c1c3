package adapter

import (
	"testing"
	"time"

	"github.com/uma-arai/resvsync/internal/repository"
)

func TestResolveSlot(t *testing.T) {
	// 2025-06-02は月曜日
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		defaults repository.SlotDefaults
		date     time.Time
		hour     string
		want     string
		wantOK   bool
	}{
		{
			name: "曜日キーで前方一致",
			defaults: repository.SlotDefaults{
				"Mon": {"1000": 5, "1030": 3},
			},
			date:   monday,
			hour:   "10:00:00",
			want:   "1000",
			wantOK: true,
		},
		{
			name: "正確な日付のキーを曜日より優先",
			defaults: repository.SlotDefaults{
				"20250602": {"1015": 2},
				"Mon":      {"1000": 5},
			},
			date:   monday,
			hour:   "10:15:00",
			want:   "1015",
			wantOK: true,
		},
		{
			name: "正確な日付のキーがあれば曜日側は見ない",
			defaults: repository.SlotDefaults{
				"20250602": {"0900": 2},
				"Mon":      {"1000": 5},
			},
			date:   monday,
			hour:   "10:00:00",
			wantOK: false,
		},
		{
			name: "秒なしの時刻も受け付ける",
			defaults: repository.SlotDefaults{
				"Mon": {"1030": 3},
			},
			date:   monday,
			hour:   "10:30",
			want:   "1030",
			wantOK: true,
		},
		{
			name: "一致するスロットなし",
			defaults: repository.SlotDefaults{
				"Mon": {"1000": 5},
			},
			date:   monday,
			hour:   "11:00:00",
			wantOK: false,
		},
		{
			name:     "スロット表が空",
			defaults: repository.SlotDefaults{},
			date:     monday,
			hour:     "10:00:00",
			wantOK:   false,
		},
		{
			name: "不正な時刻",
			defaults: repository.SlotDefaults{
				"Mon": {"1000": 5},
			},
			date:   monday,
			hour:   "not-a-time",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveSlot(tt.defaults, tt.date, tt.hour)
			if ok != tt.wantOK {
				t.Errorf("ResolveSlot() ok = %v, want %v", ok, tt.wantOK)
				return
			}
			if ok && got != tt.want {
				t.Errorf("ResolveSlot() = %v, want %v", got, tt.want)
			}
		})
	}
}

// 複数スロットが前方一致する場合はキー順で最初のものが選ばれる
func TestResolveSlotDeterministic(t *testing.T) {
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	defaults := repository.SlotDefaults{
		"Mon": {"1000-b": 1, "1000-a": 1},
	}

	for i := 0; i < 10; i++ {
		got, ok := ResolveSlot(defaults, monday, "10:00:00")
		if !ok || got != "1000-a" {
			t.Fatalf("ResolveSlot() = %v, %v, want 1000-a, true", got, ok)
		}
	}
}
