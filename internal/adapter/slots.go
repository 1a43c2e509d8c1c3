package adapter

import (
	"sort"
	"strings"
	"time"

	"github.com/uma-arai/resvsync/internal/repository"
)

// ResolveSlot はスロット表から指定時刻に一致するスロットキーを探します
// その日のスロットは正確な日付(20060102)のキーを優先し、なければ曜日名(Mon)
// のキーを使います。スロットキーは時刻の前方一致("10:00:00" → "1000")で
// 照合します。結果が決定的になるようキー順で走査します
func ResolveSlot(defaults repository.SlotDefaults, date time.Time, hour string) (string, bool) {
	day, ok := defaults[date.Format("20060102")]
	if !ok {
		day, ok = defaults[date.Format("Mon")]
	}
	if !ok || len(day) == 0 {
		return "", false
	}

	prefix, ok := hourPrefix(hour)
	if !ok {
		return "", false
	}

	keys := make([]string, 0, len(day))
	for k := range day {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			return k, true
		}
	}

	return "", false
}

// hourPrefix は"10:00:00"形式の時刻を"1000"形式のスロット接頭辞へ変換します
func hourPrefix(hour string) (string, bool) {
	t, err := time.Parse("15:04:05", hour)
	if err != nil {
		t, err = time.Parse("15:04", hour)
		if err != nil {
			return "", false
		}
	}
	return t.Format("1504"), true
}
