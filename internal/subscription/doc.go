// Package subscription はWeb Push購読情報のスキーマとセッション単位のストアを提供する。
//
// 購読情報はブラウザの PushSubscription.toJSON() と同じ形をしており、
// endpoint を一意キーとして保持する。ストアはセッションごとに分離され、
// セッションの終了とともに破棄される。バックエンドはメモリ(既定)と
// SQLiteを選択できる。
package subscription
