package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/nao1215/pushnotify/internal/subscription"
	"github.com/nao1215/pushnotify/pkg/httpclient"
)

// ErrEncoding はメッセージの暗号化や鍵の解釈に失敗し、送信に至らなかったことを表す。
var ErrEncoding = errors.New("プッシュメッセージの生成に失敗")

// maxErrorBodySize はエラー応答から読み取るボディの上限。
const maxErrorBodySize = 1024

// Transport はプッシュサービスへの1回の送信を行う。
// 応答を受け取れた場合はそのステータスコードを返す。
type Transport interface {
	Send(ctx context.Context, sub subscription.Subscription, payload []byte) (int, error)
}

// VAPIDConfig はVAPID(RFC 8292)による送信者認証とメッセージ属性の設定。
type VAPIDConfig struct {
	// Subscriber はプッシュサービスに通知する連絡先(メールアドレスまたはhttps URL)。
	// メールアドレスには送信時に mailto: が付与される。
	Subscriber string
	// PublicKey はVAPID公開鍵(base64url)。
	PublicKey string
	// PrivateKey はVAPID秘密鍵(base64url)。
	PrivateKey string
	// TTL はプッシュサービスがメッセージを保持する秒数。
	TTL int
	// Urgency はメッセージの緊急度。
	Urgency webpush.Urgency
	// Topic は同じトピックの未配信メッセージを置き換えるためのトピック名。
	Topic string
}

// StatusError はプッシュサービスが2xx以外を返したことを表す。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("プッシュサービスがエラーを返しました: status=%d, body=%s", e.StatusCode, e.Body)
}

// WebPushTransport はwebpush-goを使ってメッセージを暗号化・送信する Transport。
type WebPushTransport struct {
	conf   VAPIDConfig
	client *httpclient.Client
}

var _ Transport = (*WebPushTransport)(nil)

// NewWebPushTransport は新しい WebPushTransport を生成する。
func NewWebPushTransport(conf VAPIDConfig, client *httpclient.Client) *WebPushTransport {
	// webpush-go が mailto: を付与するため二重にならないよう外しておく
	conf.Subscriber = strings.TrimPrefix(conf.Subscriber, "mailto:")
	return &WebPushTransport{conf: conf, client: client}
}

// Send はペイロードを暗号化して購読のendpointへ送信する。
func (t *WebPushTransport) Send(ctx context.Context, sub subscription.Subscription, payload []byte) (int, error) {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, s, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.conf.Subscriber,
		TTL:             t.conf.TTL,
		Urgency:         t.conf.Urgency,
		Topic:           t.conf.Topic,
		VAPIDPublicKey:  t.conf.PublicKey,
		VAPIDPrivateKey: t.conf.PrivateKey,
	})
	if err != nil {
		if errors.Is(err, httpclient.ErrRequest) {
			return 0, fmt.Errorf("プッシュサービスへの送信に失敗: %w", err)
		}
		return 0, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return resp.StatusCode, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// ParseUrgency は文字列を webpush.Urgency に変換する。空文字は normal として扱う。
func ParseUrgency(s string) (webpush.Urgency, error) {
	switch u := webpush.Urgency(s); u {
	case "":
		return webpush.UrgencyNormal, nil
	case webpush.UrgencyVeryLow, webpush.UrgencyLow, webpush.UrgencyNormal, webpush.UrgencyHigh:
		return u, nil
	default:
		return "", fmt.Errorf("不正なurgencyです: %s", s)
	}
}

// GenerateVAPIDKeys はVAPID鍵ペアを生成する。
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("VAPID鍵の生成に失敗: %w", err)
	}
	return publicKey, privateKey, nil
}

// statusText はログ用にステータスコードを文字列化する。
func statusText(code int) string {
	if code == 0 {
		return "no response"
	}
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
