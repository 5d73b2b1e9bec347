package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nao1215/pushnotify/internal/subscription"
)

// DefaultTTL はセッションの有効期間の既定値。
const DefaultTTL = 24 * time.Hour

// ErrNoSession はセッションIDが空の場合に返されるエラー。
var ErrNoSession = errors.New("セッションIDがありません")

// Manager はセッションと購読ストアの対応を管理する。
type Manager struct {
	// backend は購読の保存先。
	backend subscription.Backend
	// ttl は最終アクセスからセッションが破棄されるまでの期間。
	ttl time.Duration
	// logger は掃除処理の結果を記録する。
	logger *zap.Logger
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// NewManager は新しい Manager を生成する。ttl が0以下の場合は DefaultTTL を使用する。
func NewManager(backend subscription.Backend, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		backend: backend,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// TTL はセッションの有効期間を返す。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Store はセッションの最終アクセス時刻を更新し、そのセッションの購読ストアを返す。
func (m *Manager) Store(ctx context.Context, sessionID string) (subscription.Store, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	if err := m.backend.Touch(ctx, sessionID, m.now()); err != nil {
		return nil, fmt.Errorf("セッションの更新に失敗: %w", err)
	}
	return m.backend.Store(sessionID), nil
}

// Sweep は有効期間を過ぎたセッションを破棄し、破棄した件数を返す。
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	expired, err := m.backend.Expire(ctx, m.now().Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("期限切れセッションの破棄に失敗: %w", err)
	}
	if len(expired) > 0 {
		m.logger.Info("期限切れセッションを破棄しました", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// Run は ctx がキャンセルされるまで interval ごとに Sweep を実行する。
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error("セッションの掃除に失敗しました", zap.Error(err))
			}
		}
	}
}
