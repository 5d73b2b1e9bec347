package main

import (
	"context"
	"fmt"

	"github.com/JulienBalestra/dry/pkg/version"
	"github.com/JulienBalestra/dry/pkg/zapconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// newRootCommand はpushnotifyのルートコマンドを生成する。
// ログ設定は全サブコマンド共通のフラグで行う。
func newRootCommand(ctx context.Context) *cobra.Command {
	zapConfig := zapconfig.NewZapConfig()
	zapLevel := zapConfig.Level.String()

	root := &cobra.Command{
		Use:          "pushnotify",
		Short:        "Web Push通知デモサーバー",
		Long:         "ブラウザのPush購読をセッションごとに保持し、Web Pushで通知を配信するデモサーバー",
		SilenceUsage: true,
	}
	root.AddCommand(version.NewCommand())

	fs := &pflag.FlagSet{}
	fs.StringVar(&zapLevel, "log-level", zapLevel, fmt.Sprintf("ログレベル - %s %s %s %s", zap.DebugLevel, zap.InfoLevel, zap.WarnLevel, zap.ErrorLevel))
	fs.StringSliceVar(&zapConfig.OutputPaths, "log-output", zapConfig.OutputPaths, "ログの出力先")

	root.PersistentFlags().AddFlagSet(fs)
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := zapConfig.Level.UnmarshalText([]byte(zapLevel)); err != nil {
			return fmt.Errorf("ログレベルが不正です: %w", err)
		}
		logger, err := zapConfig.Build()
		if err != nil {
			return fmt.Errorf("ロガーの初期化に失敗: %w", err)
		}
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
		return nil
	}

	root.AddCommand(newServeCommand(ctx))
	root.AddCommand(newVAPIDCommand())
	return root
}
