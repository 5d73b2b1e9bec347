// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 署名付きCookieによるセッション識別、リクエストログ、パニックリカバリ、
// CORS設定を含む。
package middleware
