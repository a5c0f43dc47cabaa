// 通知サービスのエントリポイント。
// ドキュメントストアの変更フィードを監視し、注文の更新とオファーの作成を
// プッシュ通知として配信する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pushnotify/internal/config"
	"github.com/nao1215/pushnotify/internal/notifier"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := notifier.New(cfg)

	log.Printf("通知サービスを起動します: :%s", cfg.Port)
	if err := service.Run(ctx); err != nil {
		log.Fatalf("通知サービスの実行に失敗: %v", err)
	}
	log.Println("通知サービスを停止しました")
}
