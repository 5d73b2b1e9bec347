package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 購読の保存先として指定できるドライバー。
const (
	// DriverMemory はプロセス内メモリに購読を保持する。
	DriverMemory = "memory"
	// DriverSQLite はSQLiteに購読を保持する。
	DriverSQLite = "sqlite"
)

// sessionSecretBytes は生成するセッション署名鍵のバイト長。
const sessionSecretBytes = 32

// ErrInvalid は設定値が不正な場合に返されるエラー。
var ErrInvalid = errors.New("設定が不正です")

// Config はpushnotifyサーバーの設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// VAPIDPublicKey はVAPID公開鍵（URLセーフBase64）。空の場合は起動時に生成する。
	VAPIDPublicKey string
	// VAPIDPrivateKey はVAPID秘密鍵（URLセーフBase64）。
	VAPIDPrivateKey string
	// VAPIDSubscriber はVAPIDのsubクレームに入れる連絡先（メールアドレスまたはhttps URL）。
	VAPIDSubscriber string
	// SessionSecret はセッションCookieの署名鍵。空の場合は起動時に生成する。
	SessionSecret string
	// SessionTTL はセッションの有効期間。
	SessionTTL time.Duration
	// SessionSweepInterval は期限切れセッションを掃除する間隔。0の場合は掃除しない。
	SessionSweepInterval time.Duration
	// SecureCookie はセッションCookieにSecure属性を付与するかどうか。
	SecureCookie bool
	// StoreDriver は購読の保存先（memory または sqlite）。
	StoreDriver string
	// SQLiteDSN はSQLiteの接続文字列。
	SQLiteDSN string
	// PushTTL はプッシュサービスがメッセージを保持する秒数。
	PushTTL int
	// PushUrgency はプッシュメッセージの緊急度。
	PushUrgency string
	// PushTimeout は1回の配信試行のタイムアウト。
	PushTimeout time.Duration
	// PushConcurrency は一斉配信の同時配信数。
	PushConcurrency int
	// PruneExpired は失効した購読を配信後にストアから削除するかどうか。
	PruneExpired bool
	// CORSAllowedOrigins はCORSで許可するオリジン。
	CORSAllowedOrigins []string
	// PublicDir は静的ファイルのディレクトリ。空の場合は埋め込みのファイルを配信する。
	PublicDir string
}

// Load は環境変数から設定を読み込む。
// 数値や期間として解釈できない値はエラーになる。
func Load() (*Config, error) {
	c := &Config{
		Port:               getEnvOr("PORT", "3000"),
		VAPIDPublicKey:     os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:    os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubscriber:    getEnvOr("VAPID_SUBSCRIBER", "admin@example.com"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		StoreDriver:        getEnvOr("STORE_DRIVER", DriverMemory),
		SQLiteDSN:          getEnvOr("SQLITE_DSN", "file:pushnotify.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		PushUrgency:        getEnvOr("PUSH_URGENCY", "normal"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		PublicDir:          os.Getenv("PUBLIC_DIR"),
	}

	var errs []error
	c.SessionTTL = parseDuration("SESSION_TTL", 24*time.Hour, &errs)
	c.SessionSweepInterval = parseDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute, &errs)
	c.SecureCookie = parseBool("SECURE_COOKIE", false, &errs)
	c.PushTTL = parseInt("PUSH_TTL", 60, &errs)
	c.PushTimeout = parseDuration("PUSH_TIMEOUT", 10*time.Second, &errs)
	c.PushConcurrency = parseInt("PUSH_CONCURRENCY", 8, &errs)
	c.PruneExpired = parseBool("PRUNE_EXPIRED", false, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%w: PORTが空です", ErrInvalid))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: SESSION_TTLは正の期間である必要があります", ErrInvalid))
	}
	if c.SessionSweepInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: SESSION_SWEEP_INTERVALは0以上である必要があります", ErrInvalid))
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLiteDSN == "" {
			errs = append(errs, fmt.Errorf("%w: STORE_DRIVER=sqliteにはSQLITE_DSNが必要です", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: 未知のSTORE_DRIVERです: %q", ErrInvalid, c.StoreDriver))
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		errs = append(errs, fmt.Errorf("%w: VAPID_PUBLIC_KEYとVAPID_PRIVATE_KEYは両方指定する必要があります", ErrInvalid))
	}
	if c.VAPIDSubscriber == "" {
		errs = append(errs, fmt.Errorf("%w: VAPID_SUBSCRIBERが空です", ErrInvalid))
	}
	if c.PushTTL < 0 {
		errs = append(errs, fmt.Errorf("%w: PUSH_TTLは0以上である必要があります", ErrInvalid))
	}
	if c.PushTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: PUSH_TIMEOUTは0以上である必要があります", ErrInvalid))
	}
	if c.PushConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: PUSH_CONCURRENCYは1以上である必要があります", ErrInvalid))
	}
	return errors.Join(errs...)
}

// EnsureSessionSecret はセッション署名鍵が未設定であればランダムな鍵を生成して設定する。
// 生成した場合は true を返す。生成した鍵はプロセスの終了とともに失われる。
func (c *Config) EnsureSessionSecret() (bool, error) {
	if c.SessionSecret != "" {
		return false, nil
	}
	b := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return false, fmt.Errorf("セッション署名鍵の生成に失敗: %w", err)
	}
	c.SessionSecret = hex.EncodeToString(b)
	return true, nil
}

// HasVAPIDKeys はVAPID鍵が設定されているかどうかを返す。
func (c *Config) HasVAPIDKeys() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s: %w", ErrInvalid, key, err))
		return defaultValue
	}
	return d
}

func parseInt(key string, defaultValue int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s: %w", ErrInvalid, key, err))
		return defaultValue
	}
	return n
}

func parseBool(key string, defaultValue bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s: %w", ErrInvalid, key, err))
		return defaultValue
	}
	return b
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
