package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxPayloadSize は1レコードに収まる平文ペイロードの最大バイト数。
// 4096バイトのレコードから aes128gcm のヘッダ(86)、認証タグ(16)、区切り(1)を引いた値。
const MaxPayloadSize = 4096 - 86 - 16 - 1

// ErrInvalidNotification は通知のスキーマ検証に失敗したことを表す。
var ErrInvalidNotification = errors.New("通知が不正です")

// Action は通知に表示するボタン。
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Options は Service Worker の showNotification に渡す表示オプション。
type Options struct {
	// Body は通知本文。
	Body               string `json:"body,omitempty"`
	Icon               string `json:"icon,omitempty"`
	Badge              string `json:"badge,omitempty"`
	Image              string `json:"image,omitempty"`
	Tag                string `json:"tag,omitempty"`
	Lang               string `json:"lang,omitempty"`
	Dir                string `json:"dir,omitempty"`
	Renotify           bool   `json:"renotify,omitempty"`
	RequireInteraction bool   `json:"requireInteraction,omitempty"`
	Silent             bool   `json:"silent,omitempty"`
	Timestamp          int64  `json:"timestamp,omitempty"`
	// Vibrate は振動パターン。数値1つまたは数値の配列。
	Vibrate json.RawMessage `json:"vibrate,omitempty"`
	// Data はアプリケーション固有の任意データ。解釈せずにそのまま転送する。
	Data    json.RawMessage `json:"data,omitempty"`
	Actions []Action        `json:"actions,omitempty"`
}

// Notification はプッシュメッセージとして配信する通知。
type Notification struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Options は表示オプション。
	Options Options `json:"options"`

	// raw はデコード元のJSON。設定されていれば Payload はこれをそのまま返す。
	raw json.RawMessage
}

// UnmarshalJSON は検証用にフィールドをデコードし、元のJSONを転送用に保持する。
// Options にない任意のキーも raw に残る。
func (n *Notification) UnmarshalJSON(b []byte) error {
	type plain Notification
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*n = Notification(p)
	n.raw = append(json.RawMessage(nil), b...)
	return nil
}

// Validate は通知のスキーマを検証する。
func (n Notification) Validate() error {
	_, err := n.Payload()
	return err
}

// Payload は通知をプッシュメッセージ本文のJSONにエンコードする。
// JSONからデコードした通知は元のバイト列をそのまま返す。
// スキーマ違反やサイズ超過の場合は ErrInvalidNotification をラップしたエラーを返す。
func (n Notification) Payload() ([]byte, error) {
	if strings.TrimSpace(n.Title) == "" {
		return nil, fmt.Errorf("%w: titleが空です", ErrInvalidNotification)
	}
	switch n.Options.Dir {
	case "", "auto", "ltr", "rtl":
	default:
		return nil, fmt.Errorf("%w: options.dirが不正です: %s", ErrInvalidNotification, n.Options.Dir)
	}
	if n.Options.Renotify && n.Options.Tag == "" {
		return nil, fmt.Errorf("%w: options.renotifyにはoptions.tagが必要です", ErrInvalidNotification)
	}
	if err := validateVibrate(n.Options.Vibrate); err != nil {
		return nil, err
	}
	for i, a := range n.Options.Actions {
		if a.Action == "" || a.Title == "" {
			return nil, fmt.Errorf("%w: options.actions[%d]にはactionとtitleが必要です", ErrInvalidNotification, i)
		}
	}

	payload := []byte(n.raw)
	if len(payload) == 0 {
		var err error
		if payload, err = json.Marshal(n); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
		}
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: ペイロードが%dバイトを超えています(%dバイト)", ErrInvalidNotification, MaxPayloadSize, len(payload))
	}
	return payload, nil
}

// validateVibrate は vibrate が数値または数値の配列であることを検証する。
func validateVibrate(v json.RawMessage) error {
	if len(v) == 0 || string(v) == "null" {
		return nil
	}
	var single uint
	if json.Unmarshal(v, &single) == nil {
		return nil
	}
	var pattern []uint
	if json.Unmarshal(v, &pattern) == nil {
		return nil
	}
	return fmt.Errorf("%w: options.vibrateは数値または数値の配列である必要があります", ErrInvalidNotification)
}
