// Package httpclient は外部サービスへのHTTP送信に使うクライアントを提供する。
//
// タイムアウトとUser-Agentを統一し、送信自体の失敗を ErrRequest で
// ラップする。Web Pushの送信ではプッシュサービスへの送信に使用する。
package httpclient
