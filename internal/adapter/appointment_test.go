package adapter

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uma-arai/resvsync/internal/model"
	"github.com/uma-arai/resvsync/internal/repository"
)

// MockAppointmentRepository はテスト用のモックリポジトリです
type MockAppointmentRepository struct {
	records        map[int64]*repository.AppointmentRecord
	slots          repository.SlotDefaults
	nextID         int64
	created        []*repository.AppointmentRecord
	updated        []*repository.AppointmentRecord
	detailsByID    map[int64]string
	deletedIDs     []int64
	listRecords    []repository.AppointmentRecord
	createError    error
	getError       error
	listFromCutoff time.Time
}

func newMockAppointmentRepository() *MockAppointmentRepository {
	return &MockAppointmentRepository{
		records:     map[int64]*repository.AppointmentRecord{},
		slots:       repository.SlotDefaults{},
		nextID:      100,
		detailsByID: map[int64]string{},
	}
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id int64) (*repository.AppointmentRecord, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.records[id], nil
}

func (m *MockAppointmentRepository) Create(ctx context.Context, rec *repository.AppointmentRecord) (int64, error) {
	if m.createError != nil {
		return 0, m.createError
	}
	m.nextID++
	rec.ID = m.nextID
	m.created = append(m.created, rec)
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *MockAppointmentRepository) Update(ctx context.Context, rec *repository.AppointmentRecord) error {
	m.updated = append(m.updated, rec)
	return nil
}

func (m *MockAppointmentRepository) UpdateDetails(ctx context.Context, id int64, details string) error {
	m.detailsByID[id] = details
	return nil
}

func (m *MockAppointmentRepository) Delete(ctx context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	delete(m.records, id)
	return nil
}

func (m *MockAppointmentRepository) ListFrom(ctx context.Context, cutoff time.Time) ([]repository.AppointmentRecord, error) {
	m.listFromCutoff = cutoff
	return m.listRecords, nil
}

func (m *MockAppointmentRepository) SlotDefaults(ctx context.Context, calendarID string) (repository.SlotDefaults, error) {
	return m.slots, nil
}

func testAppointmentRecord() *repository.AppointmentRecord {
	return &repository.AppointmentRecord{
		ID:         42,
		CalendarID: "calendar-1",
		Timeslot:   "1000-1030",
		StartAt:    time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		GuestName:  sql.NullString{String: "Taro Yamada", Valid: true},
		GuestEmail: sql.NullString{String: "taro@example.com", Valid: true},
		Status:     "publish",
	}
}

func TestAppointmentAdapterExtract(t *testing.T) {
	ctx := context.Background()
	mapping := model.RoomMapping{"calendar-1": 7}

	t.Run("正常系", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.records[42] = testAppointmentRecord()
		a := NewAppointmentAdapter(repo, nil)

		data, err := a.Extract(ctx, "42", mapping)
		require.NoError(t, err)
		require.NotNil(t, data)

		assert.Equal(t, int64(7), data.RoomID)
		assert.Equal(t, "42", data.LocalID)
		assert.Equal(t, "2025-06-02", data.Date)
		assert.Equal(t, "10:00:00", data.Hour)
		assert.Equal(t, "Taro Yamada", data.Name)
		assert.Equal(t, "taro@example.com", data.Email)
		assert.True(t, data.Status)
		assert.Equal(t, "42", data.ExtID)
	})

	t.Run("ゲスト情報が空ならアカウント情報へフォールバック", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		rec := testAppointmentRecord()
		rec.GuestName = sql.NullString{}
		rec.GuestEmail = sql.NullString{}
		rec.UserName = sql.NullString{String: "Hanako", Valid: true}
		rec.UserEmail = sql.NullString{String: "hanako@example.com", Valid: true}
		rec.UserPhone = sql.NullString{String: "0120-000-000", Valid: true}
		repo.records[42] = rec
		a := NewAppointmentAdapter(repo, nil)

		data, err := a.Extract(ctx, "42", mapping)
		require.NoError(t, err)
		require.NotNil(t, data)

		assert.Equal(t, "Hanako", data.Name)
		assert.Equal(t, "hanako@example.com", data.Email)
		assert.Equal(t, "0120-000-000", data.Phone)
	})

	t.Run("マッピング未設定のカレンダーは対象外", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		rec := testAppointmentRecord()
		rec.CalendarID = "calendar-unmapped"
		repo.records[42] = rec
		a := NewAppointmentAdapter(repo, nil)

		data, err := a.Extract(ctx, "42", mapping)
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("存在しないレコードは対象外", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		a := NewAppointmentAdapter(repo, nil)

		data, err := a.Extract(ctx, "42", mapping)
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("数値でないIDはこのソースのレコードではない", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		a := NewAppointmentAdapter(repo, nil)

		data, err := a.Extract(ctx, "not-a-number", mapping)
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestAppointmentAdapterIsDeleted(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status string
		exists bool
		want   bool
	}{
		{
			name:   "公開中のレコードは未削除",
			status: "publish",
			exists: true,
			want:   false,
		},
		{
			name:   "ゴミ箱のレコードは削除扱い",
			status: "trash",
			exists: true,
			want:   true,
		},
		{
			name:   "存在しないレコードは削除扱い",
			exists: false,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockAppointmentRepository()
			if tt.exists {
				rec := testAppointmentRecord()
				rec.Status = tt.status
				repo.records[42] = rec
			}
			a := NewAppointmentAdapter(repo, nil)

			got, err := a.IsDeleted(ctx, "42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppointmentAdapterCreate(t *testing.T) {
	ctx := context.Background()

	msg := &model.RemoteMessage{
		Action: model.ActionAdd,
		RoomID: 7,
		Data: model.MessageData{
			Date:    "2025-06-02", // 月曜日
			Hour:    "10:00:00",
			Name:    "Taro",
			Surname: "Yamada",
			Email:   "taro@example.com",
			Status:  true,
			Source:  "web",
		},
	}

	t.Run("スロットが解決できればレコードを作成", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.slots = repository.SlotDefaults{"Mon": {"1000": 5}}
		a := NewAppointmentAdapter(repo, nil)

		localID, err := a.Create(ctx, "calendar-1", msg)
		require.NoError(t, err)
		assert.NotEmpty(t, localID)

		require.Len(t, repo.created, 1)
		rec := repo.created[0]
		assert.Equal(t, "calendar-1", rec.CalendarID)
		assert.Equal(t, "1000", rec.Timeslot)
		assert.Equal(t, "Taro Yamada", rec.GuestName.String)
		assert.Equal(t, "publish", rec.Status)
		assert.Equal(t, "remote", rec.Source.String)
		assert.Contains(t, rec.Details.String, "Source: remote (web)")
	})

	t.Run("スロットが見つからなければ何も作成しない", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.slots = repository.SlotDefaults{"Mon": {"1400": 5}}
		a := NewAppointmentAdapter(repo, nil)

		_, err := a.Create(ctx, "calendar-1", msg)
		require.ErrorIs(t, err, ErrNoTimeSlot)
		assert.Empty(t, repo.created)
	})

	t.Run("保存失敗はErrLocalSaveとして返す", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.slots = repository.SlotDefaults{"Mon": {"1000": 5}}
		repo.createError = errors.New("db down")
		a := NewAppointmentAdapter(repo, nil)

		_, err := a.Create(ctx, "calendar-1", msg)
		require.ErrorIs(t, err, ErrLocalSave)
	})
}

func TestAppointmentAdapterUpdate(t *testing.T) {
	ctx := context.Background()

	msg := &model.RemoteMessage{
		Action: model.ActionEdit,
		RoomID: 7,
		Data: model.MessageData{
			Date:   "2025-06-02",
			Hour:   "10:00:00",
			Name:   "Jiro",
			Email:  "jiro@example.com",
			Status: false,
			Source: "panel",
		},
	}

	t.Run("存在しないレコードはErrRecordMissing", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.slots = repository.SlotDefaults{"Mon": {"1000": 5}}
		a := NewAppointmentAdapter(repo, nil)

		err := a.Update(ctx, "calendar-1", "42", msg)
		require.ErrorIs(t, err, ErrRecordMissing)
	})

	t.Run("同期起源のレコードは付加情報も上書きする", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.slots = repository.SlotDefaults{"Mon": {"1000": 5}}
		rec := testAppointmentRecord()
		rec.Source = sql.NullString{String: "remote", Valid: true}
		repo.records[42] = rec
		a := NewAppointmentAdapter(repo, nil)

		err := a.Update(ctx, "calendar-1", "42", msg)
		require.NoError(t, err)

		require.Len(t, repo.updated, 1)
		assert.Equal(t, "Jiro", repo.updated[0].GuestName.String)
		assert.Equal(t, "draft", repo.updated[0].Status)
		assert.Contains(t, repo.detailsByID[42], "operator panel")
	})

	t.Run("手動作成のレコードは付加情報を上書きしない", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.slots = repository.SlotDefaults{"Mon": {"1000": 5}}
		repo.records[42] = testAppointmentRecord()
		a := NewAppointmentAdapter(repo, nil)

		err := a.Update(ctx, "calendar-1", "42", msg)
		require.NoError(t, err)

		require.Len(t, repo.updated, 1)
		assert.Empty(t, repo.detailsByID)
	})

	t.Run("スロットが解決できなければ更新しない", func(t *testing.T) {
		repo := newMockAppointmentRepository()
		repo.records[42] = testAppointmentRecord()
		a := NewAppointmentAdapter(repo, nil)

		err := a.Update(ctx, "calendar-1", "42", msg)
		require.ErrorIs(t, err, ErrNoTimeSlot)
		assert.Empty(t, repo.updated)
	})
}

func TestAppointmentAdapterDelete(t *testing.T) {
	ctx := context.Background()

	repo := newMockAppointmentRepository()
	repo.records[42] = testAppointmentRecord()
	a := NewAppointmentAdapter(repo, nil)

	err := a.Delete(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, repo.deletedIDs)

	// 既に存在しないレコードの削除も成功扱い
	err = a.Delete(ctx, "42")
	require.NoError(t, err)
}

func TestAppointmentAdapterListFrom(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	repo := newMockAppointmentRepository()
	repo.listRecords = []repository.AppointmentRecord{
		{ID: 1}, {ID: 2}, {ID: 3},
	}
	a := NewAppointmentAdapter(repo, nil)

	ids, err := a.ListFrom(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, cutoff, repo.listFromCutoff)
}

func TestAppointmentAdapterStatusMapping(t *testing.T) {
	a := NewAppointmentAdapter(newMockAppointmentRepository(), nil)

	assert.Equal(t, "publish", a.StatusFromRemote(true))
	assert.Equal(t, "draft", a.StatusFromRemote(false))

	assert.True(t, a.StatusToRemote("publish"))
	assert.True(t, a.StatusToRemote("future"))
	assert.False(t, a.StatusToRemote("draft"))
	assert.False(t, a.StatusToRemote("pending"))
	assert.False(t, a.StatusToRemote("trash"))
	assert.False(t, a.StatusToRemote("unknown-status"))
}
