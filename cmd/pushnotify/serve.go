package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JulienBalestra/dry/pkg/signals"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nao1215/pushnotify/internal/config"
	"github.com/nao1215/pushnotify/internal/notify"
	"github.com/nao1215/pushnotify/internal/push"
	"github.com/nao1215/pushnotify/internal/session"
	"github.com/nao1215/pushnotify/internal/subscription"
	"github.com/nao1215/pushnotify/pkg/httpclient"
)

// newServeCommand はHTTPサーバーを起動するコマンドを生成する。
// 設定は環境変数から読み込み、明示的に指定されたフラグで上書きする。
func newServeCommand(ctx context.Context) *cobra.Command {
	serve := &cobra.Command{
		Use:     "serve",
		Short:   "HTTPサーバーを起動する",
		Aliases: []string{"s"},
		Args:    cobra.NoArgs,
	}

	flags := &config.Config{}
	serve.Flags().AddFlagSet(newServeFlagSet(flags))

	serve.RunE = func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd.Flags(), flags, conf)
		if err := conf.Validate(); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		waitGroup := &sync.WaitGroup{}
		waitGroup.Add(1)
		go func() {
			signals.NotifySignals(ctx, func() {})
			cancel()
			waitGroup.Done()
		}()

		err = serveWithConfig(ctx, conf, zap.L())
		cancel()
		waitGroup.Wait()
		return err
	}
	return serve
}

// newServeFlagSet は serve コマンドのフラグを flags に束縛して返す。
// 既定値は config.Load の既定値と揃えている。
func newServeFlagSet(flags *config.Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.StringVar(&flags.Port, "port", "3000", "リッスンポート (PORT)")
	fs.StringVar(&flags.VAPIDPublicKey, "vapid-public-key", "", "VAPID公開鍵 (VAPID_PUBLIC_KEY)")
	fs.StringVar(&flags.VAPIDPrivateKey, "vapid-private-key", "", "VAPID秘密鍵 (VAPID_PRIVATE_KEY)")
	fs.StringVar(&flags.VAPIDSubscriber, "vapid-subscriber", "admin@example.com", "VAPIDの連絡先 (VAPID_SUBSCRIBER)")
	fs.StringVar(&flags.SessionSecret, "session-secret", "", "セッションCookieの署名鍵 (SESSION_SECRET)")
	fs.DurationVar(&flags.SessionTTL, "session-ttl", 24*time.Hour, "セッションの有効期間 (SESSION_TTL)")
	fs.DurationVar(&flags.SessionSweepInterval, "session-sweep-interval", 10*time.Minute, "期限切れセッションの掃除間隔 (SESSION_SWEEP_INTERVAL)")
	fs.BoolVar(&flags.SecureCookie, "secure-cookie", false, "セッションCookieにSecure属性を付与する (SECURE_COOKIE)")
	fs.StringVar(&flags.StoreDriver, "store-driver", config.DriverMemory, "購読の保存先 memory|sqlite (STORE_DRIVER)")
	fs.StringVar(&flags.SQLiteDSN, "sqlite-dsn", "", "SQLiteの接続文字列 (SQLITE_DSN)")
	fs.IntVar(&flags.PushTTL, "push-ttl", 60, "プッシュサービスがメッセージを保持する秒数 (PUSH_TTL)")
	fs.StringVar(&flags.PushUrgency, "push-urgency", "normal", "緊急度 very-low|low|normal|high (PUSH_URGENCY)")
	fs.DurationVar(&flags.PushTimeout, "push-timeout", 10*time.Second, "1回の配信試行のタイムアウト (PUSH_TIMEOUT)")
	fs.IntVar(&flags.PushConcurrency, "push-concurrency", 8, "一斉配信の同時配信数 (PUSH_CONCURRENCY)")
	fs.BoolVar(&flags.PruneExpired, "prune-expired", false, "失効した購読を配信後に削除する (PRUNE_EXPIRED)")
	fs.StringSliceVar(&flags.CORSAllowedOrigins, "cors-allowed-origins", nil, "CORSで許可するオリジン (CORS_ALLOWED_ORIGINS)")
	fs.StringVar(&flags.PublicDir, "public-dir", "", "静的ファイルのディレクトリ。空の場合は埋め込みファイル (PUBLIC_DIR)")
	return fs
}

// applyFlags は明示的に指定されたフラグの値だけを conf に反映する。
func applyFlags(fs *pflag.FlagSet, flags, conf *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "port":
			conf.Port = flags.Port
		case "vapid-public-key":
			conf.VAPIDPublicKey = flags.VAPIDPublicKey
		case "vapid-private-key":
			conf.VAPIDPrivateKey = flags.VAPIDPrivateKey
		case "vapid-subscriber":
			conf.VAPIDSubscriber = flags.VAPIDSubscriber
		case "session-secret":
			conf.SessionSecret = flags.SessionSecret
		case "session-ttl":
			conf.SessionTTL = flags.SessionTTL
		case "session-sweep-interval":
			conf.SessionSweepInterval = flags.SessionSweepInterval
		case "secure-cookie":
			conf.SecureCookie = flags.SecureCookie
		case "store-driver":
			conf.StoreDriver = flags.StoreDriver
		case "sqlite-dsn":
			conf.SQLiteDSN = flags.SQLiteDSN
		case "push-ttl":
			conf.PushTTL = flags.PushTTL
		case "push-urgency":
			conf.PushUrgency = flags.PushUrgency
		case "push-timeout":
			conf.PushTimeout = flags.PushTimeout
		case "push-concurrency":
			conf.PushConcurrency = flags.PushConcurrency
		case "prune-expired":
			conf.PruneExpired = flags.PruneExpired
		case "cors-allowed-origins":
			conf.CORSAllowedOrigins = flags.CORSAllowedOrigins
		case "public-dir":
			conf.PublicDir = flags.PublicDir
		}
	})
}

// serveWithConfig は設定に従ってコンポーネントを組み立て、ctx がキャンセルされるまでサーバーを動かす。
func serveWithConfig(ctx context.Context, conf *config.Config, logger *zap.Logger) error {
	if !conf.HasVAPIDKeys() {
		publicKey, privateKey, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		conf.VAPIDPublicKey, conf.VAPIDPrivateKey = publicKey, privateKey
		logger.Warn("VAPID鍵が未設定のため一時的な鍵を生成しました。再起動すると既存の購読には配信できなくなります",
			zap.String("public_key", publicKey),
		)
	}
	generated, err := conf.EnsureSessionSecret()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("SESSION_SECRETが未設定のため一時的な署名鍵を生成しました。再起動すると既存のセッションは無効になります")
	}
	urgency, err := push.ParseUrgency(conf.PushUrgency)
	if err != nil {
		return err
	}

	backend, err := openBackend(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("購読ストアのクローズに失敗しました", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := push.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("メトリクスの登録に失敗: %w", err)
	}

	transport := push.NewWebPushTransport(push.VAPIDConfig{
		Subscriber: conf.VAPIDSubscriber,
		PublicKey:  conf.VAPIDPublicKey,
		PrivateKey: conf.VAPIDPrivateKey,
		TTL:        conf.PushTTL,
		Urgency:    urgency,
	}, httpclient.New(conf.PushTimeout))
	dispatcher := push.NewDispatcher(transport, logger.Named("push"),
		push.WithTimeout(conf.PushTimeout),
		push.WithConcurrency(conf.PushConcurrency),
		push.WithMetrics(metrics),
	)

	server := notify.NewServer(conf, notify.Deps{
		Sessions:   session.NewManager(backend, conf.SessionTTL, logger.Named("session")),
		Dispatcher: dispatcher,
		Gatherer:   reg,
		Logger:     logger.Named("http"),
	})
	return server.Run(ctx)
}

// openBackend は設定されたドライバーの購読ストアを開く。
func openBackend(ctx context.Context, conf *config.Config, logger *zap.Logger) (subscription.Backend, error) {
	switch conf.StoreDriver {
	case config.DriverSQLite:
		logger.Info("SQLiteに購読を保存します", zap.String("dsn", conf.SQLiteDSN))
		return subscription.OpenSQLite(ctx, conf.SQLiteDSN, logger.Named("sqlite"))
	default:
		logger.Info("メモリに購読を保存します")
		return subscription.NewMemoryBackend(), nil
	}
}
