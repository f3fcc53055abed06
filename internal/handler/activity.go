package handler

import (
	"context"
	"log/slog"

	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/storage"
)

// recordActivity は状態変更操作の監査レコードを追記する。
// 監査ログの書き込み失敗は元の操作を失敗させず、ログにのみ記録する。
func recordActivity(ctx context.Context, store storage.Store, collector metrics.MetricsCollector, in storage.CreateActivityInput) {
	if _, err := store.CreateActivity(ctx, in); err != nil {
		slog.Error("failed to record activity",
			slog.String("action", in.Action),
			slog.String("entity_type", in.EntityType),
			slog.Int("entity_id", in.EntityID),
			slog.String("error", err.Error()),
		)
		return
	}

	if collector != nil {
		collector.RecordActivityLogged(in.EntityType)
	}
}
