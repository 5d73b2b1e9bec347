// pushnotifyのエントリポイント。
// ブラウザのPush購読をセッションごとに保持し、Web Pushで通知を配信する
// デモサーバーを起動する。
package main

import (
	"context"
	"os"

	"github.com/JulienBalestra/dry/pkg/exit"
)

func main() {
	root := newRootCommand(context.Background())
	err := root.Execute()
	os.Exit(exit.Exit(err))
}
