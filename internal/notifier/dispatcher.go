package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pushnotify/pkg/push"
)

// Dispatcher はユーザーの全デバイスへ通知を配信する。
type Dispatcher struct {
	// tokens はデバイストークンの読み書き。
	tokens *TokenStore
	// history は通知履歴の書き込み。
	history *HistoryWriter
	// transport はプッシュ配信基盤。
	transport push.Transport
}

// NewDispatcher は新しいDispatcherを生成する。
func NewDispatcher(store Store, transport push.Transport) *Dispatcher {
	return &Dispatcher{
		tokens:    NewTokenStore(store),
		history:   NewHistoryWriter(store),
		transport: transport,
	}
}

// SendToUser はユーザーの全デバイストークンへmsgを一括送信する。
//
// トークンが1件もなければ何もしない。恒久的に無効と判定されたトークンは
// 並行して削除し、送信結果にかかわらず通知履歴を1件保存する。
// 配信基盤の呼び出し自体が失敗した場合は履歴を保存せずにエラーを返す。
// 履歴の保存またはトークン削除のいずれかが失敗した場合はエラーを返す。
func (d *Dispatcher) SendToUser(ctx context.Context, userID string, msg *push.Message) error {
	tokens, err := d.tokens.List(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		log.Printf("[Notifier] デバイストークンがないため送信しません (user=%s)", userID)
		return nil
	}

	results, err := d.transport.SendMulticast(ctx, tokens, msg)
	if err != nil {
		return fmt.Errorf("通知の送信に失敗 (user=%s): %w", userID, err)
	}

	var deletions errgroup.Group
	removed := 0
	for i, r := range results {
		if i >= len(tokens) {
			break
		}
		if r.Success() || !push.IsInvalidToken(r.Error.Code) {
			continue
		}
		token := tokens[i]
		removed++
		deletions.Go(func() error {
			return d.tokens.Delete(ctx, userID, token)
		})
	}

	historyErr := d.history.Append(ctx, userID, HistoryPayload(msg))
	deleteErr := deletions.Wait()

	log.Printf("[Notifier] 送信完了 (user=%s, tokens=%d, removed=%d)", userID, len(tokens), removed)
	return errors.Join(historyErr, deleteErr)
}
