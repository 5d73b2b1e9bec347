// Package web はクライアントページと静的ファイルを埋め込んで提供する。
package web

import (
	"embed"
	"io/fs"
)

//go:embed views/index.html
var indexHTML []byte

//go:embed public
var public embed.FS

// IndexHTML はクライアントページのHTMLを返す。
func IndexHTML() []byte {
	return indexHTML
}

// Public は静的ファイルのファイルシステムを返す。ルートが public ディレクトリに対応する。
func Public() fs.FS {
	sub, err := fs.Sub(public, "public")
	if err != nil {
		// embedのパスは固定のため失敗しない
		panic(err)
	}
	return sub
}
