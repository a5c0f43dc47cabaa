package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/pushnotify/internal/docstore"
	"github.com/nao1215/pushnotify/pkg/docpath"
	"github.com/nao1215/pushnotify/pkg/event"
)

// ErrNotFound はドキュメントが存在しないことを表す。
// Store実装は存在しないドキュメントの取得時にこのエラーを返す。
var ErrNotFound = docstore.ErrNotFound

// Store は通知処理が使うドキュメントストアの操作。
// docstore.Client が実装する。
type Store interface {
	// Get はドキュメントを取得する。
	Get(ctx context.Context, path string) (*docstore.Document, error)
	// List はコレクション直下のドキュメントを取得する。
	List(ctx context.Context, collection string) ([]docstore.Document, error)
	// Delete はドキュメントを削除する。
	Delete(ctx context.Context, path string) error
	// Add はコレクションに自動IDでドキュメントを追加する。
	Add(ctx context.Context, collection string, data map[string]any, serverTimestamps ...string) (*docstore.Document, error)
}

// ChangeFeed はドキュメントストアの変更フィード。
type ChangeFeed interface {
	// Changes はafterより後の変更を最大limit件取得し、次回のカーソルと共に返す。
	Changes(ctx context.Context, after int64, limit int) ([]event.Change, int64, error)
}

var (
	_ Store      = (*docstore.Client)(nil)
	_ ChangeFeed = (*docstore.Client)(nil)
)

// TokenStore はユーザーのデバイストークンを読み書きする。
// トークン文字列がドキュメントIDになる。
type TokenStore struct {
	store Store
}

// NewTokenStore は新しいTokenStoreを生成する。
func NewTokenStore(store Store) *TokenStore {
	return &TokenStore{store: store}
}

// List はユーザーのデバイストークンをID順に返す。
func (t *TokenStore) List(ctx context.Context, userID string) ([]string, error) {
	docs, err := t.store.List(ctx, tokensCollection(userID))
	if err != nil {
		return nil, fmt.Errorf("デバイストークンの取得に失敗 (user=%s): %w", userID, err)
	}
	tokens := make([]string, len(docs))
	for i, d := range docs {
		tokens[i] = d.ID
	}
	return tokens, nil
}

// Delete はユーザーのデバイストークンを削除する。
func (t *TokenStore) Delete(ctx context.Context, userID, token string) error {
	if err := t.store.Delete(ctx, docpath.Join(tokensCollection(userID), token)); err != nil {
		return fmt.Errorf("デバイストークンの削除に失敗 (user=%s): %w", userID, err)
	}
	return nil
}

// HistoryWriter はユーザーの通知履歴を追記する。
type HistoryWriter struct {
	store Store
}

// NewHistoryWriter は新しいHistoryWriterを生成する。
func NewHistoryWriter(store Store) *HistoryWriter {
	return &HistoryWriter{store: store}
}

// Append は未読の通知履歴を1件追加する。timestampはストアの時刻になる。
func (h *HistoryWriter) Append(ctx context.Context, userID string, payload map[string]any) error {
	entry := map[string]any{
		"payload": payload,
		"read":    false,
	}
	if _, err := h.store.Add(ctx, historyCollection(userID), entry, "timestamp"); err != nil {
		return fmt.Errorf("通知履歴の保存に失敗 (user=%s): %w", userID, err)
	}
	return nil
}

// LoadSettings はユーザーの通知設定を読み込む。
// 設定ドキュメントが存在しない場合はDefaultSettingsを返す。
func LoadSettings(ctx context.Context, store Store, userID string) (NotificationSettings, error) {
	doc, err := store.Get(ctx, settingsPath(userID))
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return NotificationSettings{}, fmt.Errorf("通知設定の取得に失敗 (user=%s): %w", userID, err)
	}

	var settings NotificationSettings
	if err := doc.DataTo(&settings); err != nil {
		return NotificationSettings{}, err
	}
	return settings, nil
}

func tokensCollection(userID string) string {
	return docpath.Join("users", userID, "fcmTokens")
}

func historyCollection(userID string) string {
	return docpath.Join("users", userID, "notifications")
}

func settingsPath(userID string) string {
	return docpath.Join("users", userID, "settings", "notifications")
}
