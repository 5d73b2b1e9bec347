package subscription

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalid は購読情報のスキーマ検証に失敗したことを表す。
var ErrInvalid = errors.New("購読情報が不正です")

const (
	// p256dhKeyLength は非圧縮形式のP-256公開鍵のバイト長。
	p256dhKeyLength = 65
	// authSecretLength は認証シークレットのバイト長。
	authSecretLength = 16
)

// Keys はペイロード暗号化に使用する鍵情報。
type Keys struct {
	// P256dh はクライアントのECDH公開鍵（base64url）。
	P256dh string `json:"p256dh"`
	// Auth はクライアントの認証シークレット（base64url）。
	Auth string `json:"auth"`
}

// Subscription はブラウザが発行したWeb Push購読情報。
// Endpoint が同一性を表すキーとなる。
type Subscription struct {
	// Endpoint はプッシュサービスの配信先URL。
	Endpoint string `json:"endpoint"`
	// ExpirationTime は購読の有効期限（エポックミリ秒）。ブラウザが null を返す場合は nil。
	ExpirationTime *int64 `json:"expirationTime"`
	// Keys は暗号化用の鍵情報。
	Keys Keys `json:"keys"`
}

// Validate は購読情報のスキーマを検証する。
// 不正な場合は ErrInvalid をラップしたエラーを返す。
func (s Subscription) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("%w: endpointが空です", ErrInvalid)
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpointの解析に失敗: %v", ErrInvalid, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: endpointは絶対URLである必要があります: %s", ErrInvalid, s.Endpoint)
	}

	p256dh, err := DecodeKey(s.Keys.P256dh)
	if err != nil {
		return fmt.Errorf("%w: keys.p256dhのデコードに失敗: %v", ErrInvalid, err)
	}
	if len(p256dh) != p256dhKeyLength || p256dh[0] != 0x04 {
		return fmt.Errorf("%w: keys.p256dhが非圧縮P-256公開鍵ではありません", ErrInvalid)
	}

	auth, err := DecodeKey(s.Keys.Auth)
	if err != nil {
		return fmt.Errorf("%w: keys.authのデコードに失敗: %v", ErrInvalid, err)
	}
	if len(auth) != authSecretLength {
		return fmt.Errorf("%w: keys.authは%dバイトである必要があります", ErrInvalid, authSecretLength)
	}
	return nil
}

// DecodeKey はbase64url（パディング有無どちらも可）または標準base64の鍵文字列をデコードする。
func DecodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("鍵が空です")
	}
	trimmed := strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(trimmed)
}
