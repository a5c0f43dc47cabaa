// ドキュメントストアサービスのエントリポイント。
// キーパスでアドレスされるドキュメントをSQLiteに保存し、
// すべての変更を変更フィードとして公開する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/pushnotify/internal/config"
	"github.com/nao1215/pushnotify/internal/docstore"
)

func main() {
	cfg := config.Load()

	store, err := docstore.Open(context.Background(), cfg.DocStoreDBPath)
	if err != nil {
		log.Fatalf("ドキュメントストアの初期化に失敗: %v", err)
	}
	defer store.Close()

	server := docstore.NewServer(cfg.DocStorePort, store, cfg.ServiceSecret)

	log.Printf("ドキュメントストアサービスを起動します: :%s", cfg.DocStorePort)
	if err := server.Run(); err != nil {
		log.Fatalf("ドキュメントストアサービスの起動に失敗: %v", err)
	}
}
