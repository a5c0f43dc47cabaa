package notifier

import (
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/pushnotify/pkg/push"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	want := NotificationSettings{SystemNotifications: true, Offers: true, Orders: true}
	if got := DefaultSettings(); got != want {
		t.Errorf("DefaultSettings() = %+v, want %+v", got, want)
	}
}

func TestBuildOrderPayload(t *testing.T) {
	t.Parallel()

	msg, err := BuildOrderPayload("123", "shipped")
	if err != nil {
		t.Fatalf("BuildOrderPayloadに失敗: %v", err)
	}

	wantBody := "Your order status changed to shipped"
	if msg.Notification.Title != "Order Update" || msg.Notification.Body != wantBody {
		t.Errorf("表示ブロックが期待と異なります: %+v", msg.Notification)
	}
	if msg.Notification.Image != "" {
		t.Errorf("注文通知に画像が付いています: %s", msg.Notification.Image)
	}

	want := Envelope{
		Type:     EntityOrder,
		EntityID: "123",
		Route:    RouteOrderHistory,
		Title:    "Order Update",
		Body:     wantBody,
	}
	if got := decodeEnvelope(t, msg); got != want {
		t.Errorf("エンベロープが期待と異なります: got=%+v, want=%+v", got, want)
	}
}

func TestBuildOfferPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		imageURL  string
		wantImage bool
	}{
		{name: "画像あり", imageURL: "http://x/y.png", wantImage: true},
		{name: "画像なし", imageURL: "", wantImage: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := BuildOfferPayload("abc", "Sale!", tt.imageURL)
			if err != nil {
				t.Fatalf("BuildOfferPayloadに失敗: %v", err)
			}
			if msg.Notification.Title != "New Offer!" || msg.Notification.Body != "Sale!" {
				t.Errorf("表示ブロックが期待と異なります: %+v", msg.Notification)
			}
			if msg.Notification.Image != tt.imageURL {
				t.Errorf("画像が期待と異なります: got=%s, want=%s", msg.Notification.Image, tt.imageURL)
			}

			raw := msg.Data[push.DataKeyPayload]
			if got := strings.Contains(raw, `"image"`); got != tt.wantImage {
				t.Errorf("エンベロープのimageの有無が期待と異なります: %s", raw)
			}
			env := decodeEnvelope(t, msg)
			if env.Type != EntityOffer || env.EntityID != "abc" || env.Route != RouteOffersView {
				t.Errorf("エンベロープが期待と異なります: %+v", env)
			}
		})
	}
}

func TestHistoryPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    map[string]any
	}{
		{
			name:    "JSONオブジェクトは解析結果を保存する",
			payload: `{"type":"order","entityId":"1"}`,
			want:    map[string]any{"type": "order", "entityId": "1"},
		},
		{
			name:    "JSONでない文字列はデータペイロードを保存する",
			payload: "not json",
			want:    map[string]any{"payload": "not json"},
		},
		{
			name:    "オブジェクト以外のJSONはデータペイロードを保存する",
			payload: "42",
			want:    map[string]any{"payload": "42"},
		},
		{
			name:    "nullはデータペイロードを保存する",
			payload: "null",
			want:    map[string]any{"payload": "null"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := &push.Message{Data: map[string]string{push.DataKeyPayload: tt.payload}}
			if got := HistoryPayload(msg); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("HistoryPayload() = %v, want %v", got, tt.want)
			}
		})
	}
}
