package notify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pushnotify/internal/config"
	"github.com/nao1215/pushnotify/internal/push"
	"github.com/nao1215/pushnotify/internal/session"
	"github.com/nao1215/pushnotify/pkg/middleware"
	"github.com/nao1215/pushnotify/web"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// Server はpushnotifyのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// conf はサーバーの設定。
	conf *config.Config
	// sessions はセッションごとの購読ストアを払い出す。
	sessions *session.Manager
	// dispatcher は通知を購読へ配信する。
	dispatcher *push.Dispatcher
	// gatherer は /metrics で公開するメトリクスの収集元。
	gatherer prometheus.Gatherer
	// public は静的ファイルのファイルシステム。
	public fs.FS
	// logger はサーバーのログ出力先。
	logger *zap.Logger
}

// Deps はサーバーが依存するコンポーネント。
type Deps struct {
	// Sessions はセッションごとの購読ストアを払い出す。
	Sessions *session.Manager
	// Dispatcher は通知を購読へ配信する。
	Dispatcher *push.Dispatcher
	// Gatherer は /metrics で公開するメトリクスの収集元。nilの場合は既定のレジストリ。
	Gatherer prometheus.Gatherer
	// Logger はサーバーのログ出力先。
	Logger *zap.Logger
}

// NewServer は新しいpushnotifyサーバーを生成する。
func NewServer(conf *config.Config, deps Deps) *Server {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	public := web.Public()
	if conf.PublicDir != "" {
		public = os.DirFS(conf.PublicDir)
	}

	router := gin.New()
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(conf.CORSAllowedOrigins))

	s := &Server{
		router:     router,
		conf:       conf,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		gatherer:   gatherer,
		public:     public,
		logger:     deps.Logger,
	}
	s.setupRoutes()

	return s
}

// Handler はサーバーのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーとセッションの掃除処理を起動し、ctx がキャンセルされるまでブロックする。
// キャンセル後は処理中のリクエストの完了を待ってから終了する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.conf.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.sessions.Run(gctx, s.conf.SessionSweepInterval)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("pushnotifyサーバーを起動します", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("pushnotifyサーバーを停止します")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/")
	api.Use(middleware.Session(middleware.SessionConfig{
		Secret: s.conf.SessionSecret,
		TTL:    s.sessions.TTL(),
		Secure: s.conf.SecureCookie,
	}))
	{
		// 購読の登録と削除
		api.POST("/addsubscription", s.handleAddSubscription())
		api.POST("/removesubscription", s.handleRemoveSubscription())
		// 通知の配信
		api.POST("/notify-all", s.handleNotifyAll())
		api.POST("/notify-me", s.handleNotifyMe())
		// クライアントページ
		api.GET("/", s.handleIndex())
	}

	s.router.GET("/vapid-public-key", s.handleVAPIDPublicKey())
	s.router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pushnotify"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	// それ以外のGETは静的ファイルとして配信する
	fileServer := http.FileServer(http.FS(s.public))
	s.router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "見つかりません"})
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}
