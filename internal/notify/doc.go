// Package notify はWeb Push通知デモのHTTPサーバーを提供する。
//
// ブラウザごとのセッションに購読を保持し、通知リクエストを受けて
// 保持している購読(または指定された購読)へWeb Pushで配信する。
//
// エンドポイント:
//   - POST /addsubscription    購読を登録する
//   - POST /removesubscription 購読を削除する
//   - POST /notify-all         セッションの全購読へ通知する
//   - POST /notify-me          指定された購読へ通知する
//   - GET  /                   クライアントページ
//   - GET  /vapid-public-key   VAPID公開鍵
//   - GET  /health             ヘルスチェック
//   - GET  /metrics            Prometheusメトリクス
package notify
