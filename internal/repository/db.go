package repository

import (
	"context"
	"database/sql"
	"log"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DB struct {
	*sqlx.DB
}

// QueryContext wraps sqlx.DB.QueryxContext with X-Ray tracing
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Query")
	if seg == nil {
		return db.DB.QueryxContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("Failed to add query metadata: %v", err)
	}

	rows, err := db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return rows, nil
}

// ExecContext wraps sqlx.DB.ExecContext with X-Ray tracing
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Exec")
	if seg == nil {
		return db.DB.ExecContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("Failed to add query metadata: %v", err)
	}

	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return result, nil
}
