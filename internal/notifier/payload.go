package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/nao1215/pushnotify/pkg/push"
)

// EntityType は通知の対象エンティティの種類。
type EntityType string

const (
	// EntityOrder は注文に関する通知。
	EntityOrder EntityType = "order"
	// EntityOffer はオファーに関する通知。
	EntityOffer EntityType = "offer"
)

const (
	// RouteOrderHistory は注文通知をタップしたときの遷移先画面。
	RouteOrderHistory = "OrderHistory"
	// RouteOffersView はオファー通知をタップしたときの遷移先画面。
	RouteOffersView = "OffersView"
)

const (
	orderTitle      = "Order Update"
	orderBodyFormat = "Your order status changed to %s"
	offerTitle      = "New Offer!"
)

// Envelope はアプリが画面遷移に使うデータペイロード。
// JSON文字列としてメッセージのdata.payloadに格納される。
type Envelope struct {
	// Type は対象エンティティの種類。
	Type EntityType `json:"type"`
	// EntityID は対象エンティティのID。
	EntityID string `json:"entityId"`
	// Route はアプリの遷移先画面。
	Route string `json:"route"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Image は通知画像のURL。
	Image string `json:"image,omitempty"`
}

// BuildOrderPayload は注文ステータス変更の通知メッセージを生成する。
func BuildOrderPayload(orderID, status string) (*push.Message, error) {
	body := fmt.Sprintf(orderBodyFormat, status)
	return newMessage(
		push.Notification{Title: orderTitle, Body: body},
		Envelope{
			Type:     EntityOrder,
			EntityID: orderID,
			Route:    RouteOrderHistory,
			Title:    orderTitle,
			Body:     body,
		},
	)
}

// BuildOfferPayload は新着オファーの通知メッセージを生成する。
// imageURLが空の場合は画像を付けない。
func BuildOfferPayload(offerID, title, imageURL string) (*push.Message, error) {
	return newMessage(
		push.Notification{Title: offerTitle, Body: title, Image: imageURL},
		Envelope{
			Type:     EntityOffer,
			EntityID: offerID,
			Route:    RouteOffersView,
			Title:    offerTitle,
			Body:     title,
			Image:    imageURL,
		},
	)
}

func newMessage(n push.Notification, env Envelope) (*push.Message, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("エンベロープのシリアライズに失敗: %w", err)
	}
	return &push.Message{
		Notification: n,
		Data:         map[string]string{push.DataKeyPayload: string(raw)},
	}, nil
}

// HistoryPayload は通知履歴に保存するペイロードを返す。
// エンベロープ文字列がJSONオブジェクトとして解析できない場合は、
// データペイロードそのものを返す。
func HistoryPayload(msg *push.Message) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(msg.Data[push.DataKeyPayload]), &parsed); err == nil && parsed != nil {
		return parsed
	}

	raw := make(map[string]any, len(msg.Data))
	for k, v := range msg.Data {
		raw[k] = v
	}
	return raw
}
