package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/pushnotify/pkg/event"
	"github.com/nao1215/pushnotify/pkg/httpclient"
)

// Client はドキュメントストアのHTTP APIクライアント。
// 404はErrNotFoundとして返す。
type Client struct {
	// http はドキュメントストアへのHTTPクライアント。
	http *httpclient.Client
}

// NewClient は新しいClientを生成する。
// clientには認証トークンの付与を設定済みのクライアントを渡す。
func NewClient(client *httpclient.Client) *Client {
	return &Client{http: client}
}

// Get はドキュメントを取得する。
func (c *Client) Get(ctx context.Context, path string) (*Document, error) {
	var doc Document
	if err := c.http.GetJSON(ctx, documentsURL(path), &doc); err != nil {
		return nil, wrapNotFound(err, path)
	}
	return &doc, nil
}

// List はコレクション直下のドキュメントをID順に取得する。
func (c *Client) List(ctx context.Context, collection string) ([]Document, error) {
	var resp listResponse
	if err := c.http.GetJSON(ctx, documentsURL(collection), &resp); err != nil {
		return nil, fmt.Errorf("コレクション %s の取得に失敗: %w", collection, err)
	}
	return resp.Documents, nil
}

// Set はドキュメントを作成または上書きする。
func (c *Client) Set(ctx context.Context, path string, data map[string]any) (*Document, error) {
	var doc Document
	if err := c.http.PutJSON(ctx, documentsURL(path), setRequest{Data: data}, &doc); err != nil {
		return nil, fmt.Errorf("ドキュメント %s の保存に失敗: %w", path, err)
	}
	return &doc, nil
}

// Delete はドキュメントを削除する。
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := c.http.Delete(ctx, documentsURL(path)); err != nil {
		return fmt.Errorf("ドキュメント %s の削除に失敗: %w", path, err)
	}
	return nil
}

// Add はコレクションに自動IDでドキュメントを追加する。
func (c *Client) Add(ctx context.Context, collection string, data map[string]any, serverTimestamps ...string) (*Document, error) {
	var doc Document
	req := addRequest{Data: data, ServerTimestamps: serverTimestamps}
	if err := c.http.PostJSON(ctx, documentsURL(collection), req, &doc); err != nil {
		return nil, fmt.Errorf("コレクション %s への追加に失敗: %w", collection, err)
	}
	return &doc, nil
}

// Changes はafterより後の変更を最大limit件取得し、次回のカーソルと共に返す。
func (c *Client) Changes(ctx context.Context, after int64, limit int) ([]event.Change, int64, error) {
	var resp changesResponse
	path := fmt.Sprintf("/api/v1/changes?after=%d&limit=%d", after, limit)
	if err := c.http.GetJSON(ctx, path, &resp); err != nil {
		return nil, after, fmt.Errorf("変更フィードの取得に失敗: %w", err)
	}
	return resp.Changes, resp.Next, nil
}

// documentsURL はキーパスのセグメントごとにエスケープしたAPIパスを返す。
func documentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/api/v1/documents/" + strings.Join(segments, "/")
}

// wrapNotFound は404をErrNotFoundに変換する。
func wrapNotFound(err error, path string) error {
	if errors.Is(err, httpclient.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Errorf("ドキュメント %s の取得に失敗: %w", path, err)
}
