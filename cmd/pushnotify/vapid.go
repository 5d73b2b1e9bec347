package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/pushnotify/internal/push"
)

// newVAPIDCommand はVAPID鍵ペアを生成して環境変数形式で出力するコマンドを生成する。
func newVAPIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "VAPID鍵ペアを生成する",
		Long:  "VAPID鍵ペアを生成し、VAPID_PUBLIC_KEY と VAPID_PRIVATE_KEY の形式で標準出力に書き出す",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			publicKey, privateKey, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", publicKey, privateKey); err != nil {
				return fmt.Errorf("鍵の出力に失敗: %w", err)
			}
			return nil
		},
	}
}
