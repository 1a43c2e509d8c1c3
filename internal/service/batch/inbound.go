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
	"github.com/google/uuid"
	"github.com/uma-arai/resvsync/internal/common/config"
	"github.com/uma-arai/resvsync/internal/common/database"
	"github.com/uma-arai/resvsync/internal/common/utils"
	"github.com/uma-arai/resvsync/internal/model"
	"github.com/uma-arai/resvsync/internal/remote"
	"github.com/uma-arai/resvsync/internal/repository"
	"github.com/uma-arai/resvsync/internal/sync"
)

// InboundResult は受信メッセージ1件の適用結果です
type InboundResult struct {
	ID      string              `json:"id"`
	Action  model.MessageAction `json:"action"`
	Applied bool                `json:"applied"`
}

// InboundBatchService はリモートからのプッシュ通知の適用を担当します
// リモート側は適用結果を同期的に待っているため、送信パスと異なり
// 処理エラーは握りつぶさず呼び出し元へ返します
type InboundBatchService struct {
	args      []model.RemoteMessage
	db        *database.DB
	engine    *sync.Engine
	sfnClient *sfn.Client
	cfg       *config.Config
}

// NewInboundBatchService は新しいInboundBatchServiceを作成します
func NewInboundBatchService(cfg *config.Config, sfnClient *sfn.Client) (*InboundBatchService, error) {
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

	return &InboundBatchService{
		db:        db,
		engine:    engine,
		sfnClient: sfnClient,
		cfg:       cfg,
	}, nil
}

// Close は終了処理を行います
func (s *InboundBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetArgs は適用する受信メッセージ群を設定します
func (s *InboundBatchService) SetArgs(args []model.RemoteMessage) {
	s.args = args
}

// Run は受信メッセージを順に適用します
// メッセージは1件ずつ直列に処理され、途中の処理エラーで中断します
func (s *InboundBatchService) Run(ctx context.Context) error {
	// X-Rayセグメントの作成
	ctx, seg := xray.BeginSubsegment(ctx, "InboundBatchService.Run")
	defer seg.Close(nil)

	messages := s.args
	log.Printf("Starting inbound batch process for %d messages...", len(messages))

	// セグメントにメタデータを追加
	if err := seg.AddMetadata("message_count", len(messages)); err != nil {
		log.Printf("Failed to add message_count metadata: %v", err)
	}

	startTime := time.Now()

	results := make([]InboundResult, 0, len(messages))
	for i := range messages {
		msg := &messages[i]

		applied, err := s.engine.HandleMessage(ctx, msg)
		if err != nil {
			seg.Close(err)
			return utils.GetStackWithError(fmt.Errorf("failed to apply %s message for room %d: %w", msg.Action, msg.RoomID, err))
		}
		if !applied {
			log.Printf("Skipped %s message for room %d (nothing to apply)", msg.Action, msg.RoomID)
		}

		results = append(results, InboundResult{
			ID:      uuid.NewString(),
			Action:  msg.Action,
			Applied: applied,
		})
	}

	if err := s.sendTaskSuccess(ctx, results); err != nil {
		return utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
	}

	endTime := time.Now()
	duration := endTime.Sub(startTime)

	// セグメントにメタデータを追加
	if err := seg.AddMetadata("duration", duration.String()); err != nil {
		log.Printf("Failed to add duration metadata: %v", err)
	}

	log.Printf("Inbound batch process completed successfully. Duration: %v", duration)
	return nil
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知し、適用結果を返却します
func (s *InboundBatchService) sendTaskSuccess(ctx context.Context, results []InboundResult) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || s.sfnClient == nil {
		log.Printf("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}

	output, err := json.Marshal(map[string]any{
		"results": results,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal inbound results: %w", err)
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

	log.Printf("Successfully sent task success with results: %s", string(output))
	return nil
}
