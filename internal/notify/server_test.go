package notify

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/nao1215/pushnotify/internal/config"
	"github.com/nao1215/pushnotify/internal/push"
	"github.com/nao1215/pushnotify/internal/session"
	"github.com/nao1215/pushnotify/internal/subscription"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// sentPush はfakeTransportが受け取った送信1回分の記録。
type sentPush struct {
	sub     subscription.Subscription
	payload []byte
}

// fakeTransport はプッシュサービスの代わりに送信を記録するテスト用 Transport。
type fakeTransport struct {
	mu     sync.Mutex
	sent   []sentPush
	status map[string]int
}

func (f *fakeTransport) Send(ctx context.Context, sub subscription.Subscription, payload []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPush{sub: sub, payload: payload})
	if status, ok := f.status[sub.Endpoint]; ok {
		return status, &push.StatusError{StatusCode: status}
	}
	return http.StatusCreated, nil
}

func (f *fakeTransport) calls() []sentPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentPush(nil), f.sent...)
}

// setupTestServer はメモリバックエンドとfakeTransportでテスト用サーバーを構築する。
func setupTestServer(t *testing.T, modify func(c *config.Config)) (*Server, *fakeTransport) {
	t.Helper()

	conf := &config.Config{
		Port:                 "0",
		VAPIDPublicKey:       "test-public-key",
		VAPIDPrivateKey:      "test-private-key",
		VAPIDSubscriber:      "admin@example.com",
		SessionSecret:        "test-session-secret",
		SessionTTL:           time.Hour,
		StoreDriver:          config.DriverMemory,
		PushConcurrency:      4,
		PushTimeout:          time.Second,
		CORSAllowedOrigins:   []string{"http://localhost:3000"},
		SessionSweepInterval: 0,
	}
	if modify != nil {
		modify(conf)
	}

	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	metrics, err := push.NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() = %v", err)
	}
	transport := &fakeTransport{status: map[string]int{}}
	dispatcher := push.NewDispatcher(transport, logger,
		push.WithConcurrency(conf.PushConcurrency),
		push.WithTimeout(conf.PushTimeout),
		push.WithMetrics(metrics),
	)
	sessions := session.NewManager(subscription.NewMemoryBackend(), conf.SessionTTL, logger)

	s := NewServer(conf, Deps{
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Gatherer:   reg,
		Logger:     logger,
	})
	return s, transport
}

// browser はセッションCookieを引き継いでリクエストを送るテスト用クライアント。
type browser struct {
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(s *Server) *browser {
	return &browser{handler: s.Handler(), cookies: map[string]*http.Cookie{}}
}

// do はリクエストを実行し、発行されたCookieを保存する。
func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	return b.doWithContext(context.Background(), method, path, body)
}

// doWithContext は ctx を持つリクエストを実行する。
func (b *browser) doWithContext(ctx context.Context, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	switch v := body.(type) {
	case nil:
		reqBody = bytes.NewReader(nil)
	case string:
		reqBody = bytes.NewReader([]byte(v))
	default:
		jsonBytes, _ := json.Marshal(v)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequestWithContext(ctx, method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

// newTestSubscription は検証を通過する鍵を持つテスト用の購読を生成する。
func newTestSubscription(t *testing.T, endpoint string) subscription.Subscription {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("鍵の生成に失敗: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("認証シークレットの生成に失敗: %v", err)
	}
	return subscription.Subscription{
		Endpoint: endpoint,
		Keys: subscription.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
}

// testNotification は {title:"T", options:{body:"B"}} の通知リクエスト本文を返す。
func testNotification() map[string]any {
	return map[string]any{
		"title":   "T",
		"options": map[string]any{"body": "B"},
	}
}

// decodeNotifyResponse はレスポンスボディを notifyResponse にデコードする。
func decodeNotifyResponse(t *testing.T, w *httptest.ResponseRecorder) notifyResponse {
	t.Helper()
	var resp notifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	return resp
}

func TestHandleNotifyAll(t *testing.T) {
	t.Parallel()

	t.Run("登録した購読へちょうど1回配信されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		sub := newTestSubscription(t, "https://push.example/abc")

		if w := b.do(http.MethodPost, "/addsubscription", sub); w.Code != http.StatusOK {
			t.Fatalf("addsubscription: ステータスコード %d, body: %s", w.Code, w.Body.String())
		}
		w := b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if w.Code != http.StatusOK {
			t.Fatalf("notify-all: ステータスコード %d, body: %s", w.Code, w.Body.String())
		}
		calls := transport.calls()
		if len(calls) != 1 {
			t.Fatalf("送信回数: got %d, want 1", len(calls))
		}
		if calls[0].sub.Endpoint != sub.Endpoint || calls[0].sub.Keys != sub.Keys {
			t.Errorf("送信先: got %+v, want %+v", calls[0].sub, sub)
		}
		var payload push.Notification
		if err := json.Unmarshal(calls[0].payload, &payload); err != nil {
			t.Fatalf("ペイロードのデコードに失敗: %v", err)
		}
		if payload.Title != "T" || payload.Options.Body != "B" {
			t.Errorf("ペイロード: got %+v", payload)
		}

		resp := decodeNotifyResponse(t, w)
		if resp.Summary != (push.Summary{Total: 1, Delivered: 1}) {
			t.Errorf("summary: got %+v", resp.Summary)
		}
		if len(resp.Results) != 1 || resp.Results[0].Outcome != push.OutcomeDelivered {
			t.Errorf("results: got %+v", resp.Results)
		}
	})

	t.Run("登録と削除の後は何も配信されないこと", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		sub := newTestSubscription(t, "https://push.example/abc")

		b.do(http.MethodPost, "/addsubscription", sub)
		if w := b.do(http.MethodPost, "/removesubscription", sub); w.Code != http.StatusOK {
			t.Fatalf("removesubscription: ステータスコード %d", w.Code)
		}
		w := b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if w.Code != http.StatusOK {
			t.Fatalf("notify-all: ステータスコード %d", w.Code)
		}
		if n := len(transport.calls()); n != 0 {
			t.Errorf("送信回数: got %d, want 0", n)
		}
		if resp := decodeNotifyResponse(t, w); resp.Summary.Total != 0 || len(resp.Results) != 0 {
			t.Errorf("レスポンス: got %+v", resp)
		}
	})

	t.Run("2件のうち1件を削除すると残りの1件だけに配信されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		a := newTestSubscription(t, "https://push.example/a")
		other := newTestSubscription(t, "https://push.example/b")

		b.do(http.MethodPost, "/addsubscription", a)
		b.do(http.MethodPost, "/addsubscription", other)
		b.do(http.MethodPost, "/removesubscription", map[string]string{"endpoint": a.Endpoint})
		b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		calls := transport.calls()
		if len(calls) != 1 || calls[0].sub.Endpoint != other.Endpoint {
			t.Errorf("送信先: got %+v, want %s のみ", calls, other.Endpoint)
		}
	})

	t.Run("同じendpointの再登録は上書きされ重複しないこと", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		first := newTestSubscription(t, "https://push.example/abc")
		second := newTestSubscription(t, "https://push.example/abc")

		b.do(http.MethodPost, "/addsubscription", first)
		b.do(http.MethodPost, "/addsubscription", second)
		b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		calls := transport.calls()
		if len(calls) != 1 {
			t.Fatalf("送信回数: got %d, want 1", len(calls))
		}
		if calls[0].sub.Keys != second.Keys {
			t.Error("後から登録した購読の鍵で送信されていない")
		}
	})

	t.Run("別のセッションの購読には配信されないこと", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		alice := newBrowser(s)
		bob := newBrowser(s)

		alice.do(http.MethodPost, "/addsubscription", newTestSubscription(t, "https://push.example/alice"))
		w := bob.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if w.Code != http.StatusOK {
			t.Fatalf("notify-all: ステータスコード %d", w.Code)
		}
		if n := len(transport.calls()); n != 0 {
			t.Errorf("送信回数: got %d, want 0", n)
		}
	})

	t.Run("subscriptionフィールドが含まれていても受け付けること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		sub := newTestSubscription(t, "https://push.example/abc")

		b.do(http.MethodPost, "/addsubscription", sub)
		w := b.do(http.MethodPost, "/notify-all", map[string]any{
			"subscription": sub,
			"notification": testNotification(),
		})

		if w.Code != http.StatusOK {
			t.Fatalf("notify-all: ステータスコード %d, body: %s", w.Code, w.Body.String())
		}
		if n := len(transport.calls()); n != 1 {
			t.Errorf("送信回数: got %d, want 1", n)
		}
	})

	t.Run("配信の失敗があっても全件に1回ずつ送信され200が返ること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		transport.status["https://push.example/gone"] = http.StatusGone
		transport.status["https://push.example/down"] = http.StatusServiceUnavailable
		b := newBrowser(s)
		for _, ep := range []string{"https://push.example/ok", "https://push.example/gone", "https://push.example/down"} {
			b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, ep))
		}

		w := b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if w.Code != http.StatusOK {
			t.Fatalf("notify-all: ステータスコード %d", w.Code)
		}
		if n := len(transport.calls()); n != 3 {
			t.Errorf("送信回数: got %d, want 3", n)
		}
		resp := decodeNotifyResponse(t, w)
		if resp.Summary != (push.Summary{Total: 3, Delivered: 1, Expired: 1, Failed: 1}) {
			t.Errorf("summary: got %+v", resp.Summary)
		}
	})

	t.Run("notificationのJSONが未知のキーも含めてそのまま送信されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, "https://push.example/abc"))

		notification := `{"title":"T","options":{"body":"B","custom":"x","vibrate":200,"data":{"url":"/a"}}}`
		w := b.do(http.MethodPost, "/notify-all", `{"notification":`+notification+`}`)

		if w.Code != http.StatusOK {
			t.Fatalf("notify-all: ステータスコード %d, body: %s", w.Code, w.Body.String())
		}
		calls := transport.calls()
		if len(calls) != 1 {
			t.Fatalf("送信回数: got %d, want 1", len(calls))
		}
		if got := string(calls[0].payload); got != notification {
			t.Errorf("ペイロード: got %s, want %s", got, notification)
		}
	})

	t.Run("呼び出し元が切断しても全件に配信されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		for _, ep := range []string{"https://push.example/a", "https://push.example/b", "https://push.example/c"} {
			b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, ep))
		}

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		w := b.doWithContext(ctx, http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if n := len(transport.calls()); n != 3 {
			t.Errorf("送信回数: got %d, want 3", n)
		}
		if resp := decodeNotifyResponse(t, w); resp.Summary != (push.Summary{Total: 3, Delivered: 3}) {
			t.Errorf("summary: got %+v", resp.Summary)
		}
	})

	t.Run("PruneExpiredが無効なら失効した購読は残ること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		transport.status["https://push.example/gone"] = http.StatusGone
		b := newBrowser(s)
		b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, "https://push.example/gone"))

		b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})
		b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if n := len(transport.calls()); n != 2 {
			t.Errorf("送信回数: got %d, want 2", n)
		}
	})

	t.Run("PruneExpiredが有効なら失効した購読が削除されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, func(c *config.Config) { c.PruneExpired = true })
		transport.status["https://push.example/gone"] = http.StatusGone
		b := newBrowser(s)
		b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, "https://push.example/gone"))
		b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, "https://push.example/ok"))

		b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})
		w := b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if n := len(transport.calls()); n != 3 {
			t.Errorf("送信回数: got %d, want 3", n)
		}
		resp := decodeNotifyResponse(t, w)
		if len(resp.Results) != 1 || resp.Results[0].Endpoint != "https://push.example/ok" {
			t.Errorf("2回目の結果: got %+v", resp.Results)
		}
	})
}

func TestHandleNotifyMe(t *testing.T) {
	t.Parallel()

	t.Run("指定した購読へだけ配信されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)
		b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, "https://push.example/stored"))
		me := newTestSubscription(t, "https://push.example/me")

		w := b.do(http.MethodPost, "/notify-me", map[string]any{
			"subscription": me,
			"notification": testNotification(),
		})

		if w.Code != http.StatusOK {
			t.Fatalf("notify-me: ステータスコード %d, body: %s", w.Code, w.Body.String())
		}
		calls := transport.calls()
		if len(calls) != 1 || calls[0].sub.Endpoint != me.Endpoint {
			t.Errorf("送信先: got %+v, want %s のみ", calls, me.Endpoint)
		}
		resp := decodeNotifyResponse(t, w)
		if resp.Summary != (push.Summary{Total: 1, Delivered: 1}) {
			t.Errorf("summary: got %+v", resp.Summary)
		}
	})

	t.Run("呼び出し元が切断しても配信されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		b := newBrowser(s)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		w := b.doWithContext(ctx, http.MethodPost, "/notify-me", map[string]any{
			"subscription": newTestSubscription(t, "https://push.example/me"),
			"notification": testNotification(),
		})

		if n := len(transport.calls()); n != 1 {
			t.Errorf("送信回数: got %d, want 1", n)
		}
		if resp := decodeNotifyResponse(t, w); resp.Summary != (push.Summary{Total: 1, Delivered: 1}) {
			t.Errorf("summary: got %+v", resp.Summary)
		}
	})

	t.Run("失効した結果はstatus_code付きで返ること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, nil)
		transport.status["https://push.example/gone"] = http.StatusGone
		b := newBrowser(s)

		w := b.do(http.MethodPost, "/notify-me", map[string]any{
			"subscription": newTestSubscription(t, "https://push.example/gone"),
			"notification": testNotification(),
		})

		if w.Code != http.StatusOK {
			t.Fatalf("notify-me: ステータスコード %d", w.Code)
		}
		resp := decodeNotifyResponse(t, w)
		if len(resp.Results) != 1 {
			t.Fatalf("results: got %+v", resp.Results)
		}
		r := resp.Results[0]
		if r.Outcome != push.OutcomeExpired || r.StatusCode != http.StatusGone || r.Error == "" {
			t.Errorf("result: got %+v", r)
		}
	})

	t.Run("PruneExpiredが有効なら失効した購読がセッションから削除されること", func(t *testing.T) {
		t.Parallel()
		s, transport := setupTestServer(t, func(c *config.Config) { c.PruneExpired = true })
		transport.status["https://push.example/gone"] = http.StatusGone
		b := newBrowser(s)
		gone := newTestSubscription(t, "https://push.example/gone")
		b.do(http.MethodPost, "/addsubscription", gone)

		b.do(http.MethodPost, "/notify-me", map[string]any{"subscription": gone, "notification": testNotification()})
		w := b.do(http.MethodPost, "/notify-all", map[string]any{"notification": testNotification()})

		if resp := decodeNotifyResponse(t, w); resp.Summary.Total != 0 {
			t.Errorf("削除後のnotify-all: got %+v", resp.Summary)
		}
		if n := len(transport.calls()); n != 1 {
			t.Errorf("送信回数: got %d, want 1", n)
		}
	})
}

func TestHandleSubscription(t *testing.T) {
	t.Parallel()

	t.Run("存在しないendpointの削除は200を返すこと", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, nil)
		b := newBrowser(s)

		w := b.do(http.MethodPost, "/removesubscription", map[string]string{"endpoint": "https://push.example/none"})

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("セッションCookieが発行されること", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t, nil)
		b := newBrowser(s)

		b.do(http.MethodPost, "/addsubscription", newTestSubscription(t, "https://push.example/abc"))

		if len(b.cookies) == 0 {
			t.Error("セッションCookieが発行されていない")
		}
	})
}

func TestBadRequest(t *testing.T) {
	t.Parallel()

	valid := func(t *testing.T) subscription.Subscription {
		t.Helper()
		return newTestSubscription(t, "https://push.example/abc")
	}
	tests := []struct {
		name string
		path string
		body func(t *testing.T) any
	}{
		{name: "addsubscriptionが壊れたJSON", path: "/addsubscription", body: func(*testing.T) any { return "{" }},
		{name: "addsubscriptionのendpointが空", path: "/addsubscription", body: func(t *testing.T) any {
			sub := valid(t)
			sub.Endpoint = ""
			return sub
		}},
		{name: "addsubscriptionの鍵が不正", path: "/addsubscription", body: func(t *testing.T) any {
			sub := valid(t)
			sub.Keys.Auth = "short"
			return sub
		}},
		{name: "removesubscriptionのendpointが空", path: "/removesubscription", body: func(*testing.T) any {
			return map[string]string{}
		}},
		{name: "notify-allのnotificationが空", path: "/notify-all", body: func(*testing.T) any {
			return map[string]any{}
		}},
		{name: "notify-allのtitleが空", path: "/notify-all", body: func(*testing.T) any {
			return map[string]any{"notification": map[string]any{"options": map[string]any{"body": "B"}}}
		}},
		{name: "notify-meのsubscriptionが空", path: "/notify-me", body: func(*testing.T) any {
			return map[string]any{"notification": testNotification()}
		}},
		{name: "notify-meのsubscriptionが不正", path: "/notify-me", body: func(*testing.T) any {
			return map[string]any{
				"subscription": map[string]any{"endpoint": "not-a-url"},
				"notification": testNotification(),
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name+"の場合は400を返すこと", func(t *testing.T) {
			t.Parallel()
			s, transport := setupTestServer(t, nil)
			b := newBrowser(s)

			w := b.do(http.MethodPost, tt.path, tt.body(t))

			if w.Code != http.StatusBadRequest {
				t.Errorf("ステータスコード: got %d, want %d, body: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("errorフィールドがない: %s", w.Body.String())
			}
			if n := len(transport.calls()); n != 0 {
				t.Errorf("送信回数: got %d, want 0", n)
			}
		})
	}
}

func TestStaticRoutes(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, nil)
	b := newBrowser(s)

	tests := []struct {
		name     string
		path     string
		wantCode int
		contains string
	}{
		{name: "クライアントページ", path: "/", wantCode: http.StatusOK, contains: "/index.js"},
		{name: "クライアントスクリプト", path: "/index.js", wantCode: http.StatusOK, contains: "/vapid-public-key"},
		{name: "Service Worker", path: "/serviceworker.js", wantCode: http.StatusOK, contains: "showNotification"},
		{name: "favicon", path: "/favicon.ico", wantCode: http.StatusOK},
		{name: "VAPID公開鍵", path: "/vapid-public-key", wantCode: http.StatusOK, contains: "test-public-key"},
		{name: "ヘルスチェック", path: "/health", wantCode: http.StatusOK, contains: "pushnotify"},
		{name: "メトリクス", path: "/metrics", wantCode: http.StatusOK, contains: "pushnotify_deliveries_total"},
		{name: "存在しないファイル", path: "/missing.js", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := b.do(http.MethodGet, tt.path, nil)
			if w.Code != tt.wantCode {
				t.Errorf("ステータスコード: got %d, want %d", w.Code, tt.wantCode)
			}
			if tt.contains != "" && !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("レスポンスに %q が含まれていない", tt.contains)
			}
		})
	}
}

func TestVAPIDPublicKeyUnavailable(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, func(c *config.Config) {
		c.VAPIDPublicKey = ""
		c.VAPIDPrivateKey = ""
	})
	w := newBrowser(s).do(http.MethodGet, "/vapid-public-key", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
