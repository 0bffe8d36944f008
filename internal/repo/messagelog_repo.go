package repo

import (
	"context"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/docqa/docqa/internal/model"
)

type MessageLogRepo struct {
	db *sqlx.DB
}

func NewMessageLogRepo(db *sqlx.DB) *MessageLogRepo {
	return &MessageLogRepo{db: db}
}

func (r *MessageLogRepo) Save(ctx context.Context, entry *model.MessageLog) error {
	data := map[string]interface{}{
		"message_id":  entry.MessageID,
		"sender":      entry.Sender,
		"question":    entry.Question,
		"reply":       entry.Reply,
		"delivered":   entry.Delivered,
		"duration_ms": entry.DurationMS,
		"created_at":  entry.CreatedAt,
	}
	sqlStr, args, err := builder.BuildInsert("message_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *MessageLogRepo) ListRecent(ctx context.Context, limit int) ([]model.MessageLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	where := map[string]interface{}{
		"_orderby": "created_at desc",
		"_limit":   []uint{uint(limit)},
	}
	fields := []string{"id", "message_id", "sender", "question", "reply", "delivered", "duration_ms", "created_at"}
	sqlStr, args, err := builder.BuildSelect("message_logs", where, fields)
	if err != nil {
		return nil, err
	}
	var out []model.MessageLog
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// DailyStats aggregates per-day totals for the last `days` days.
func (r *MessageLogRepo) DailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)
	query := `SELECT date_trunc('day', created_at) AS day,
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE delivered) AS delivered
	FROM message_logs
	WHERE created_at >= $1
	GROUP BY day
	ORDER BY day DESC`
	var out []model.DailyStats
	if err := r.db.SelectContext(ctx, &out, query, since); err != nil {
		return nil, err
	}
	return out, nil
}
