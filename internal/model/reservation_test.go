package model

import (
	"testing"
	"time"
)

func TestReservationDataStartAt(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		hour    string
		want    time.Time
		wantErr bool
	}{
		{
			name: "正常な日付と時刻",
			date: "2025-06-01",
			hour: "10:00:00",
			want: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "秒のない時刻はエラー",
			date:    "2025-06-01",
			hour:    "10:00",
			wantErr: true,
		},
		{
			name:    "不正な日付",
			date:    "notadate",
			hour:    "10:00:00",
			wantErr: true,
		},
		{
			name:    "空の日時",
			date:    "",
			hour:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &ReservationData{Date: tt.date, Hour: tt.hour}
			got, err := d.StartAt()
			if (err != nil) != tt.wantErr {
				t.Errorf("StartAt() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("StartAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExternalTag(t *testing.T) {
	if got := ExternalTag("123"); got != "ext/123" {
		t.Errorf("ExternalTag() = %v, want ext/123", got)
	}
	if got := ExternalTag(""); got != "ext/" {
		t.Errorf("ExternalTag() = %v, want ext/", got)
	}
}

func TestStatusConfirmed(t *testing.T) {
	if StatusPending.Confirmed() {
		t.Error("StatusPending.Confirmed() should be false")
	}
	if !StatusConfirmed.Confirmed() {
		t.Error("StatusConfirmed.Confirmed() should be true")
	}
}
