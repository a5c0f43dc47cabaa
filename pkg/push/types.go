package push

import (
	"context"
	"fmt"
)

// DataKeyPayload はデータペイロード内でエンベロープ文字列を格納するキー。
const DataKeyPayload = "payload"

const (
	// CodeInvalidRegistrationToken はトークンの形式が不正であることを表すエラーコード。
	CodeInvalidRegistrationToken = "messaging/invalid-registration-token"
	// CodeRegistrationTokenNotRegistered はトークンが登録解除済みであることを表すエラーコード。
	CodeRegistrationTokenNotRegistered = "messaging/registration-token-not-registered"
)

// IsInvalidToken はエラーコードが恒久的に無効なトークンを示すかどうかを返す。
// 一時的な失敗を示すコードはfalseになる。
func IsInvalidToken(code string) bool {
	return code == CodeInvalidRegistrationToken || code == CodeRegistrationTokenNotRegistered
}

// Notification は端末側で描画される表示用ブロック。
type Notification struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Image は通知に添付する画像のURL。
	Image string `json:"image,omitempty"`
}

// Message はプッシュ配信基盤に渡すメッセージ。
// Dataは文字列のキーと値のみを持てる。
type Message struct {
	// Notification は表示用ブロック。
	Notification Notification `json:"notification"`
	// Data はアプリに渡されるデータペイロード。
	Data map[string]string `json:"data"`
}

// Error はトークン単位またはトピック送信の失敗を表す。
type Error struct {
	// Code は配信基盤のエラーコード（例: "messaging/registration-token-not-registered"）。
	Code string `json:"code"`
	// Message は人が読むためのエラーメッセージ。
	Message string `json:"message,omitempty"`
}

// Error はエラーメッセージを返す。
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result は1件の送信結果。Errorがnilなら成功。
type Result struct {
	// MessageID は配信基盤が採番したメッセージID。
	MessageID string `json:"message_id,omitempty"`
	// Error は失敗時のエラー。
	Error *Error `json:"error,omitempty"`
}

// Success は送信が成功したかどうかを返す。
func (r Result) Success() bool {
	return r.Error == nil
}

// Transport はプッシュ配信基盤への送信ポート。
type Transport interface {
	// SendMulticast はトークンの配列へ一括送信し、同じ順序の結果配列を返す。
	// 配信基盤の呼び出し自体が失敗した場合のみerrorを返す。
	SendMulticast(ctx context.Context, tokens []string, msg *Message) ([]Result, error)
	// SendToTopic はトピック購読者へブロードキャストする。
	SendToTopic(ctx context.Context, topic string, msg *Message) (Result, error)
}
