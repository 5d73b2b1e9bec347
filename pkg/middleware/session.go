package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultSessionCookieName はセッションCookieの既定名。
	DefaultSessionCookieName = "pushnotify_session"
	// sessionIssuer はセッショントークンの発行者。
	sessionIssuer = "pushnotify"
	// contextKeySessionID はGinコンテキストにセッションIDを格納するキー。
	contextKeySessionID = "session_id"
)

// SessionClaims はセッショントークンのクレーム。Subject にセッションIDを持つ。
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionConfig はセッションミドルウェアの設定。
type SessionConfig struct {
	// Secret はトークン署名用の秘密鍵。
	Secret string
	// TTL はセッションの有効期間。残りが半分を切るとトークンを再発行する。
	TTL time.Duration
	// CookieName はセッションCookieの名前。空の場合は DefaultSessionCookieName。
	CookieName string
	// Secure はCookieにSecure属性を付与するかどうか。
	Secure bool
}

// GenerateSessionToken はセッションIDを含む署名付きトークンを生成する。
func GenerateSessionToken(secret, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    sessionIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("セッショントークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseSessionToken はセッショントークンを検証してクレームを返す。
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("セッショントークンが無効です: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("セッショントークンが無効です")
	}
	return claims, nil
}

// Session はCookieのセッショントークンからセッションIDを取り出すGinミドルウェアを返す。
// Cookieがない、または無効な場合は新しいセッションを開始してCookieを発行する。
// 認証は行わず、購読ストアをブラウザ単位に分けるためだけに使用する。
func Session(conf SessionConfig) gin.HandlerFunc {
	cookieName := conf.CookieName
	if cookieName == "" {
		cookieName = DefaultSessionCookieName
	}

	return func(c *gin.Context) {
		var (
			sessionID string
			expiresAt time.Time
		)
		if raw, err := c.Cookie(cookieName); err == nil {
			if claims, err := ParseSessionToken(conf.Secret, raw); err == nil {
				sessionID = claims.Subject
				expiresAt = claims.ExpiresAt.Time
			}
		}

		if sessionID == "" || time.Until(expiresAt) < conf.TTL/2 {
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			token, err := GenerateSessionToken(conf.Secret, sessionID, conf.TTL)
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "セッションの開始に失敗しました",
				})
				return
			}
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     cookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(conf.TTL.Seconds()),
				HttpOnly: true,
				Secure:   conf.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(contextKeySessionID, sessionID)
		c.Next()
	}
}

// GetSessionID はGinコンテキストからセッションIDを取得する。
// Sessionミドルウェアが事前に適用されている必要がある。
func GetSessionID(c *gin.Context) string {
	sessionID, _ := c.Get(contextKeySessionID)
	if id, ok := sessionID.(string); ok {
		return id
	}
	return ""
}
