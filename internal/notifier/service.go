package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pushnotify/internal/config"
	"github.com/nao1215/pushnotify/internal/docstore"
	"github.com/nao1215/pushnotify/pkg/httpclient"
	"github.com/nao1215/pushnotify/pkg/middleware"
	"github.com/nao1215/pushnotify/pkg/push"
)

// shutdownTimeout はHTTPサーバー停止時の待ち時間。
const shutdownTimeout = 10 * time.Second

// Service は通知サービス全体を組み立てたもの。
type Service struct {
	// port は内部APIのリッスンポート。
	port string
	// watcher は変更フィードのポーリング。
	watcher *Watcher
	// server は内部HTTPサーバー。
	server *Server
}

// New は設定からドキュメントストアのクライアントとプッシュ配信基盤を初期化し、
// トリガーを登録したServiceを生成する。
func New(cfg *config.Config) *Service {
	tokens := httpclient.WithTokenSource(middleware.TokenSource(cfg.ServiceSecret, cfg.ServiceName))
	store := docstore.NewClient(httpclient.New(cfg.DocStoreURL, httpclient.WithTimeout(cfg.HTTPTimeout), tokens))

	var transport push.Transport = push.LogTransport{}
	if cfg.PushGatewayURL != "" {
		transport = push.NewGateway(httpclient.New(cfg.PushGatewayURL, httpclient.WithTimeout(cfg.HTTPTimeout), tokens))
	} else {
		log.Println("[Notifier] PUSH_GATEWAY_URLが未設定のため送信内容をログに出力します")
	}

	return NewService(cfg.Port, store, store, transport, cfg.ServiceSecret, cfg.WatchInterval, cfg.WatchBatchSize)
}

// NewService は依存を指定してServiceを生成する。
func NewService(port string, store Store, feed ChangeFeed, transport push.Transport, secret string, interval time.Duration, batchSize int) *Service {
	registry := NewRegistry()
	NewTriggers(store, NewDispatcher(store, transport), transport).Register(registry)

	return &Service{
		port:    port,
		watcher: NewWatcher(feed, registry, interval, batchSize),
		server:  NewServer(registry, secret),
	}
}

// Run は変更フィードの監視と内部HTTPサーバーを起動し、ctxがキャンセルされるまでブロックする。
// 起動前に記録された変更は配信しない。
func (s *Service) Run(ctx context.Context) error {
	if err := s.watcher.Seek(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.watcher.Start(ctx)
		<-ctx.Done()
		s.watcher.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
