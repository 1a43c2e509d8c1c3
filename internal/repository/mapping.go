package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/resvsync/internal/model"
)

// MappingRepository は部屋マッピング設定の読み込みを担当するインターフェースです
// マッピングはローカルのカレンダー/商品ID1件につきリモートの部屋ID1件です
type MappingRepository interface {
	Load(ctx context.Context) (model.RoomMapping, error)
}

// MappingRepositoryImpl はMappingRepositoryの実装です
type MappingRepositoryImpl struct {
	db *DB
}

// NewMappingRepository は新しいMappingRepositoryを作成します
func NewMappingRepository(db *DB) MappingRepository {
	return &MappingRepositoryImpl{
		db: db,
	}
}

// Load はマッピング設定を全件読み込みます
// 呼び出し側では読み取り専用の設定として扱います
func (r *MappingRepositoryImpl) Load(ctx context.Context) (model.RoomMapping, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "MappingRepository.Load")
	defer seg.Close(nil)

	query := `
		SELECT calendar_id, room_id
		FROM room_mappings`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query room mappings: %w", err)
	}
	defer rows.Close()

	mapping := make(model.RoomMapping)
	for rows.Next() {
		var calendarID string
		var roomID int64
		if err := rows.Scan(&calendarID, &roomID); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("failed to scan room mapping: %w", err)
		}
		mapping[calendarID] = roomID
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("error iterating room mappings: %w", err)
	}

	return mapping, nil
}
