// Package push は通知ペイロードのスキーマとWeb Pushによる配信を提供する。
//
// Dispatcher は1件の購読への配信(SendOne)と、複数購読への独立した
// 並行配信(SendToMany)を行う。配信は再試行せず、試行ごとの結果を
// Result として返す。ある購読への配信失敗が他の購読への配信を
// 妨げることはない。
package push
