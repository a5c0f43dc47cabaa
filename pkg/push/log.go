package push

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// LogTransport は送信内容をログに出力するだけのTransport実装。
// プッシュゲートウェイを用意しないローカル環境で使用する。すべての送信は成功扱い。
type LogTransport struct{}

var _ Transport = LogTransport{}

// SendMulticast は送信内容をログに出力し、全トークン成功の結果を返す。
func (LogTransport) SendMulticast(_ context.Context, tokens []string, msg *Message) ([]Result, error) {
	results := make([]Result, len(tokens))
	for i := range tokens {
		results[i] = Result{MessageID: uuid.NewString()}
	}
	log.Printf("[Push] multicast tokens=%d title=%q body=%q", len(tokens), msg.Notification.Title, msg.Notification.Body)
	return results, nil
}

// SendToTopic は送信内容をログに出力し、成功の結果を返す。
func (LogTransport) SendToTopic(_ context.Context, topic string, msg *Message) (Result, error) {
	log.Printf("[Push] topic=%s title=%q body=%q", topic, msg.Notification.Title, msg.Notification.Body)
	return Result{MessageID: uuid.NewString()}, nil
}
