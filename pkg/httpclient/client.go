package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout はタイムアウト未指定時に使用する値。
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent はUser-Agent未指定時に付与する値。
const DefaultUserAgent = "pushnotify/1.0"

// ErrRequest はリクエストが相手に届かなかった、または応答を受け取れなかったことを表す。
var ErrRequest = errors.New("HTTPリクエストの送信に失敗")

// Client は外部サービス通信用のHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// userAgent はリクエストに付与するUser-Agent。
	userAgent string
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithUserAgent はUser-Agentを設定する。
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTransport は下位のRoundTripperを差し替える。
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// New は新しいHTTPクライアントを生成する。
// timeoutが0以下の場合は DefaultTimeout を使用する。
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout はリクエスト全体のタイムアウトを返す。
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Do はリクエストを送信する。
// 送信に失敗した場合は ErrRequest をラップしたエラーを返す。
// ステータスコードの解釈は呼び出し側が行う。
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	return resp, nil
}
