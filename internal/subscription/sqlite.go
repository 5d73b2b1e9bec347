package subscription

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/pushnotify/pkg/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteBackend はSQLiteに購読を保持するバックエンド。
// セッションの寿命はメモリバックエンドと同じく sessions テーブルの最終アクセス時刻で管理する。
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite はDSNでSQLiteに接続し、マイグレーションを適用したバックエンドを返す。
func OpenSQLite(ctx context.Context, dsn string, logger *zap.Logger) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// インメモリDBは接続ごとに別のDBになるため接続を1本に絞る
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	b, err := NewSQLiteBackend(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLiteBackend は既存の接続にマイグレーションを適用してバックエンドを生成する。
func NewSQLiteBackend(ctx context.Context, db *sql.DB, logger *zap.Logger) (*SQLiteBackend, error) {
	if err := migration.Run(ctx, db, migrations, "migrations", logger); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Store はセッションに束縛された Store を返す。
func (b *SQLiteBackend) Store(sessionID string) Store {
	return &sqliteStore{db: b.db, sessionID: sessionID}
}

// Touch はセッションの最終アクセス時刻を記録する。
func (b *SQLiteBackend) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO sessions (id, last_seen) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen
	`, sessionID, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("セッションの更新に失敗: %w", err)
	}
	return nil
}

// Expire は before より前から利用されていないセッションと、その購読を削除する。
func (b *SQLiteBackend) Expire(ctx context.Context, before time.Time) ([]string, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, "SELECT id FROM sessions WHERE last_seen < ? ORDER BY id", before.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("期限切れセッションの取得に失敗: %w", err)
	}
	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("セッションIDの読み取りに失敗: %w", err)
		}
		expired = append(expired, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("期限切れセッションの取得に失敗: %w", err)
	}
	_ = rows.Close()

	for _, id := range expired {
		if err := dropSession(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return expired, nil
}

// Drop はセッションとその購読を削除する。
func (b *SQLiteBackend) Drop(ctx context.Context, sessionID string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := dropSession(ctx, tx, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// Close はデータベース接続を閉じる。
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func dropSession(ctx context.Context, tx *sql.Tx, sessionID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM subscriptions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("購読の削除に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗: %w", err)
	}
	return nil
}

// sqliteStore は1セッション分の購読を扱う Store 実装。
type sqliteStore struct {
	db        *sql.DB
	sessionID string
}

func (s *sqliteStore) Add(ctx context.Context, sub Subscription) error {
	var exp sql.NullInt64
	if sub.ExpirationTime != nil {
		exp = sql.NullInt64{Int64: *sub.ExpirationTime, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (session_id, endpoint, p256dh, auth, expiration_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			expiration_time = excluded.expiration_time,
			updated_at = datetime('now')
	`, s.sessionID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, exp)
	if err != nil {
		return fmt.Errorf("購読の登録に失敗: %w", err)
	}
	return nil
}

func (s *sqliteStore) Remove(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE session_id = ? AND endpoint = ?",
		s.sessionID, endpoint,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗: %w", err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, endpoint string) (Subscription, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT endpoint, p256dh, auth, expiration_time
		FROM subscriptions
		WHERE session_id = ? AND endpoint = ?
	`, s.sessionID, endpoint)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, false, nil
	}
	if err != nil {
		return Subscription{}, false, fmt.Errorf("購読の取得に失敗: %w", err)
	}
	return sub, true, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT endpoint, p256dh, auth, expiration_time
		FROM subscriptions
		WHERE session_id = ?
		ORDER BY endpoint
	`, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := make([]Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("購読の読み取りに失敗: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *sqliteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscriptions WHERE session_id = ?", s.sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("購読数の取得に失敗: %w", err)
	}
	return n, nil
}

// scanner は *sql.Row と *sql.Rows の共通インターフェース。
type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (Subscription, error) {
	var (
		sub Subscription
		exp sql.NullInt64
	)
	if err := row.Scan(&sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth, &exp); err != nil {
		return Subscription{}, err
	}
	if exp.Valid {
		v := exp.Int64
		sub.ExpirationTime = &v
	}
	return sub, nil
}
