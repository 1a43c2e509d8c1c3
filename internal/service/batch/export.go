package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/resvsync/internal/adapter"
	"github.com/uma-arai/resvsync/internal/common/config"
	"github.com/uma-arai/resvsync/internal/common/database"
	"github.com/uma-arai/resvsync/internal/common/utils"
	"github.com/uma-arai/resvsync/internal/remote"
	"github.com/uma-arai/resvsync/internal/repository"
	"github.com/uma-arai/resvsync/internal/sync"
)

// ExportBatchService は一括エクスポートバッチ処理を担当します
// 対象は開始日時がcutoff以降のローカル予約全件で、1件ずつ送信パスへ流します
type ExportBatchService struct {
	db        *database.DB
	api       remote.Api
	engine    *sync.Engine
	sfnClient *sfn.Client
	cfg       *config.Config
	cutoff    time.Time
}

// NewExportBatchService は新しいExportBatchServiceを作成します
func NewExportBatchService(cfg *config.Config, sfnClient *sfn.Client) (*ExportBatchService, error) {
	db, err := database.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	// database.DBをrepository.DBに変換
	repoDb := &repository.DB{DB: db.DB}

	api := remote.NewClient(cfg.API.BaseURL, cfg.API.Token, cfg.EnableTracing)
	engine, err := newSyncEngine(cfg, repoDb, api)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ExportBatchService{
		db:        db,
		api:       api,
		engine:    engine,
		sfnClient: sfnClient,
		cfg:       cfg,
	}, nil
}

// newSyncEngine は設定に応じたソースアダプタを選択して同期エンジンを組み立てます
// アダプタの選択は設定時のみで、実行時の型判別は行いません
func newSyncEngine(cfg *config.Config, db *repository.DB, api remote.Api) (*sync.Engine, error) {
	var source adapter.SourceAdapter
	switch cfg.Source {
	case "appointment":
		source = adapter.NewAppointmentAdapter(repository.NewAppointmentRepository(db), nil)
	case "product":
		slotLength := time.Duration(cfg.SlotLengthMin) * time.Minute
		source = adapter.NewProductAdapter(repository.NewProductBookingRepository(db), nil, slotLength)
	default:
		return nil, fmt.Errorf("unknown reservation source %q", cfg.Source)
	}

	return sync.NewEngine(api, source, repository.NewMappingRepository(db), nil), nil
}

// Close は終了処理を行います
func (s *ExportBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetCutoff はエクスポート対象の下限日時を設定します
// 未設定の場合は当日の0時(「今日以降」)を使います
func (s *ExportBatchService) SetCutoff(cutoff time.Time) {
	s.cutoff = cutoff
}

// Rooms はリモート側の部屋一覧を返します
// オペレータがマッピング設定を作る際の参照用です
func (s *ExportBatchService) Rooms(ctx context.Context) ([]remote.Room, error) {
	return s.api.RoomList(ctx)
}

// Run は一括エクスポートバッチ処理を実行します
func (s *ExportBatchService) Run(ctx context.Context) error {
	// X-Rayセグメントの作成
	ctx, seg := xray.BeginSubsegment(ctx, "ExportBatchService.Run")
	defer seg.Close(nil)

	startTime := time.Now()

	cutoff := s.cutoff
	if cutoff.IsZero() {
		now := time.Now()
		cutoff = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}

	count, err := s.engine.ExportAll(ctx, cutoff)
	if err != nil {
		return utils.GetStackWithError(fmt.Errorf("failed to export reservations: %w", err))
	}

	if err := s.sendTaskSuccess(ctx, count); err != nil {
		return utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
	}

	endTime := time.Now()
	duration := endTime.Sub(startTime)

	// セグメントにメタデータを追加
	if err := seg.AddMetadata("duration", duration.String()); err != nil {
		log.Printf("Failed to add duration metadata: %v", err)
	}
	if err := seg.AddMetadata("exported_count", count); err != nil {
		log.Printf("Failed to add exported_count metadata: %v", err)
	}

	log.Printf("Export batch process completed successfully. Duration: %v", duration)
	return nil
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知します
func (s *ExportBatchService) sendTaskSuccess(ctx context.Context, count int) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || s.sfnClient == nil {
		log.Printf("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}

	output, err := json.Marshal(map[string]any{
		"exported": count,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal export result: %w", err)
	}

	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return fmt.Errorf("SFN task token is not set in config")
	}

	input := &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	}

	if _, err := s.sfnClient.SendTaskSuccess(ctx, input); err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	log.Printf("Successfully sent task success with output: %s", string(output))
	return nil
}
