// Package session はブラウザセッションごとの購読ストアの払い出しと寿命管理を提供する。
//
// セッションIDは middleware.Session がCookieから取り出したものを使用する。
// 一定期間アクセスのないセッションは Manager の掃除処理で破棄される。
package session
