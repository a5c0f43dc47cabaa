package notifier

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Watcher はドキュメントストアの変更フィードをポーリングし、
// 一致したトリガーを起動するバックグラウンドプロセス。
type Watcher struct {
	// feed は変更フィードの取得元。
	feed ChangeFeed
	// registry はトリガーの登録先。
	registry *Registry
	// interval はポーリング間隔。
	interval time.Duration
	// batchSize は1回の取得件数。
	batchSize int
	// cursor は処理済みの最後の通し番号。
	cursor int64
	// mu はcursorへの並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// inflight は実行中のトリガー起動。
	inflight sync.WaitGroup
	// done はポーリングループの終了を通知する。
	done chan struct{}
	// cancel はバックグラウンドゴルーチンを停止するためのキャンセル関数。
	cancel context.CancelFunc
}

// NewWatcher は新しいWatcherを生成する。
func NewWatcher(feed ChangeFeed, registry *Registry, interval time.Duration, batchSize int) *Watcher {
	return &Watcher{
		feed:      feed,
		registry:  registry,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Cursor は処理済みの最後の通し番号を返す。
func (w *Watcher) Cursor() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor
}

// Seek はトリガーを起動せずにカーソルを変更フィードの末尾まで進める。
// 起動前に発生した変更を再配信しないために使う。
func (w *Watcher) Seek(ctx context.Context) error {
	for {
		after := w.Cursor()
		changes, next, err := w.feed.Changes(ctx, after, w.batchSize)
		if err != nil {
			return fmt.Errorf("変更フィードの読み飛ばしに失敗: %w", err)
		}
		w.setCursor(next)
		if len(changes) < w.batchSize || next == after {
			log.Printf("[Watcher] カーソルを %d に設定しました", next)
			return nil
		}
	}
}

// Start はバックグラウンドで変更フィードのポーリングを開始する。
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		log.Println("[Watcher] 変更フィードのポーリングを開始します")
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[Watcher] ポーリングを停止しました")
				return
			case <-ticker.C:
				if _, err := w.Poll(ctx); err != nil {
					log.Printf("[Watcher] ポーリングエラー: %v", err)
				}
			}
		}
	}()
}

// Stop はポーリングを停止し、実行中のトリガーの終了を待つ。
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	w.inflight.Wait()
}

// Wait は実行中のトリガーがすべて終了するまで待つ。
func (w *Watcher) Wait() {
	w.inflight.Wait()
}

// Poll は新しい変更を取得してトリガーを起動し、取得した変更の件数を返す。
// 各起動は独立したゴルーチンで実行され、終了を待たずに戻る。
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	total := 0
	for {
		after := w.Cursor()
		changes, next, err := w.feed.Changes(ctx, after, w.batchSize)
		if err != nil {
			return total, fmt.Errorf("変更フィードの取得に失敗: %w", err)
		}

		for i := range changes {
			for _, inv := range w.registry.Match(&changes[i]) {
				w.dispatch(ctx, inv)
			}
		}
		w.setCursor(next)
		total += len(changes)

		if len(changes) < w.batchSize || next == after {
			if total > 0 {
				log.Printf("[Watcher] %d件の変更を処理しました", total)
			}
			return total, nil
		}
	}
}

// dispatch はトリガーを新しいゴルーチンで起動する。失敗はログに記録する。
func (w *Watcher) dispatch(ctx context.Context, inv Invocation) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		if err := inv.Run(ctx); err != nil {
			log.Printf("[Watcher] トリガー実行エラー (pattern=%s, path=%s, seq=%d): %v",
				inv.Pattern, inv.Change.Path, inv.Change.Seq, err)
		}
	}()
}

func (w *Watcher) setCursor(seq int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq > w.cursor {
		w.cursor = seq
	}
}
