package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nao1215/pushnotify/pkg/httpclient"
)

// ErrResultMismatch は送信結果の件数がトークン数と一致しないことを表す。
var ErrResultMismatch = errors.New("送信結果の件数がトークン数と一致しません")

// Gateway はHTTPのプッシュゲートウェイに送信するTransport実装。
type Gateway struct {
	// client はゲートウェイへのHTTPクライアント。
	client *httpclient.Client
}

var _ Transport = (*Gateway)(nil)

// NewGateway は新しいGatewayを生成する。
// clientには認証トークンの付与を設定済みのクライアントを渡す。
func NewGateway(client *httpclient.Client) *Gateway {
	return &Gateway{client: client}
}

// multicastRequest は一括送信リクエストのJSON構造。
type multicastRequest struct {
	// Tokens は送信先のデバイストークン。
	Tokens []string `json:"tokens"`
	// Message は送信するメッセージ。
	Message *Message `json:"message"`
}

// multicastResponse は一括送信レスポンスのJSON構造。
type multicastResponse struct {
	// Results はトークンと同じ順序の送信結果。
	Results []Result `json:"results"`
}

// SendMulticast はトークンの配列へ一括送信する。
func (g *Gateway) SendMulticast(ctx context.Context, tokens []string, msg *Message) ([]Result, error) {
	var resp multicastResponse
	if err := g.client.PostJSON(ctx, "/v1/messages:multicast", multicastRequest{Tokens: tokens, Message: msg}, &resp); err != nil {
		return nil, fmt.Errorf("一括送信に失敗: %w", err)
	}
	if len(resp.Results) != len(tokens) {
		return nil, fmt.Errorf("%w: tokens=%d, results=%d", ErrResultMismatch, len(tokens), len(resp.Results))
	}
	return resp.Results, nil
}

// SendToTopic はトピック購読者へブロードキャストする。
func (g *Gateway) SendToTopic(ctx context.Context, topic string, msg *Message) (Result, error) {
	var result Result
	path := fmt.Sprintf("/v1/topics/%s/messages", url.PathEscape(topic))
	if err := g.client.PostJSON(ctx, path, msg, &result); err != nil {
		return Result{}, fmt.Errorf("トピック %q への送信に失敗: %w", topic, err)
	}
	return result, nil
}
