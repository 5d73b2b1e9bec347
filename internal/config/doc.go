// Package config はpushnotifyサーバーの設定を環境変数から読み込む。
//
// 各項目は環境変数の値、未設定の場合は既定値で初期化される。
// cmd/pushnotify のフラグで上書きした後に Validate で検証する。
package config
