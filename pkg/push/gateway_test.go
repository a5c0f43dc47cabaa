package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/pushnotify/pkg/httpclient"
)

// newTestMessage はテスト用のメッセージを生成する。
func newTestMessage() *Message {
	return &Message{
		Notification: Notification{Title: "Order Update", Body: "Your order status changed to shipped"},
		Data:         map[string]string{DataKeyPayload: `{"type":"order"}`},
	}
}

// TestIsInvalidToken はIsInvalidToken関数を検証する。
func TestIsInvalidToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want bool
	}{
		{code: CodeInvalidRegistrationToken, want: true},
		{code: CodeRegistrationTokenNotRegistered, want: true},
		{code: "messaging/internal-error", want: false},
		{code: "messaging/message-rate-exceeded", want: false},
		{code: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			if got := IsInvalidToken(tt.code); got != tt.want {
				t.Errorf("IsInvalidToken(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

// TestGatewaySendMulticast はGatewayの一括送信を検証する。
func TestGatewaySendMulticast(t *testing.T) {
	t.Parallel()

	t.Run("トークンとメッセージを送信し結果を順序通りに返すこと", func(t *testing.T) {
		t.Parallel()

		var gotPath string
		var gotReq multicastRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotReq)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"results":[{"message_id":"m1"},{"error":{"code":"messaging/registration-token-not-registered"}}]}`))
		}))
		defer ts.Close()

		g := NewGateway(httpclient.New(ts.URL))
		results, err := g.SendMulticast(context.Background(), []string{"tok-a", "tok-b"}, newTestMessage())
		if err != nil {
			t.Fatalf("SendMulticast()でエラーが発生: %v", err)
		}

		if gotPath != "/v1/messages:multicast" {
			t.Errorf("Path = %q, want %q", gotPath, "/v1/messages:multicast")
		}
		if len(gotReq.Tokens) != 2 || gotReq.Tokens[0] != "tok-a" || gotReq.Tokens[1] != "tok-b" {
			t.Errorf("Tokens = %v", gotReq.Tokens)
		}
		if gotReq.Message.Notification.Title != "Order Update" {
			t.Errorf("Title = %q", gotReq.Message.Notification.Title)
		}
		if len(results) != 2 {
			t.Fatalf("len(results) = %d, want 2", len(results))
		}
		if !results[0].Success() || results[0].MessageID != "m1" {
			t.Errorf("results[0] = %+v", results[0])
		}
		if results[1].Success() || results[1].Error.Code != CodeRegistrationTokenNotRegistered {
			t.Errorf("results[1] = %+v", results[1])
		}
	})

	t.Run("結果の件数が一致しない場合はErrResultMismatchを返すこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"message_id":"m1"}]}`))
		}))
		defer ts.Close()

		g := NewGateway(httpclient.New(ts.URL))
		_, err := g.SendMulticast(context.Background(), []string{"a", "b"}, newTestMessage())
		if !errors.Is(err, ErrResultMismatch) {
			t.Errorf("err = %v, want ErrResultMismatch", err)
		}
	})

	t.Run("ゲートウェイが500を返した場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		g := NewGateway(httpclient.New(ts.URL))
		if _, err := g.SendMulticast(context.Background(), []string{"a"}, newTestMessage()); err == nil {
			t.Fatal("SendMulticast()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestGatewaySendToTopic はGatewayのトピック送信を検証する。
func TestGatewaySendToTopic(t *testing.T) {
	t.Parallel()

	t.Run("トピック名をパスに含めて送信すること", func(t *testing.T) {
		t.Parallel()

		var gotPath string
		var gotMsg Message
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotMsg)
			_, _ = w.Write([]byte(`{"message_id":"topic-msg-1"}`))
		}))
		defer ts.Close()

		msg := &Message{
			Notification: Notification{Title: "New Offer!", Body: "Sale!", Image: "http://x/y.png"},
			Data:         map[string]string{DataKeyPayload: `{"type":"offer"}`},
		}
		g := NewGateway(httpclient.New(ts.URL))
		result, err := g.SendToTopic(context.Background(), "offers", msg)
		if err != nil {
			t.Fatalf("SendToTopic()でエラーが発生: %v", err)
		}

		if gotPath != "/v1/topics/offers/messages" {
			t.Errorf("Path = %q, want %q", gotPath, "/v1/topics/offers/messages")
		}
		if gotMsg.Notification.Image != "http://x/y.png" {
			t.Errorf("Image = %q", gotMsg.Notification.Image)
		}
		if result.MessageID != "topic-msg-1" {
			t.Errorf("MessageID = %q, want %q", result.MessageID, "topic-msg-1")
		}
	})

	t.Run("ゲートウェイに接続できない場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		g := NewGateway(httpclient.New("http://127.0.0.1:1"))
		if _, err := g.SendToTopic(context.Background(), "offers", newTestMessage()); err == nil {
			t.Fatal("SendToTopic()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestLogTransport はLogTransportを検証する。
func TestLogTransport(t *testing.T) {
	t.Parallel()

	var tr Transport = LogTransport{}

	results, err := tr.SendMulticast(context.Background(), []string{"a", "b", "c"}, newTestMessage())
	if err != nil {
		t.Fatalf("SendMulticast()でエラーが発生: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, r := range results {
		if !r.Success() || r.MessageID == "" {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}

	result, err := tr.SendToTopic(context.Background(), "offers", newTestMessage())
	if err != nil {
		t.Fatalf("SendToTopic()でエラーが発生: %v", err)
	}
	if !result.Success() {
		t.Errorf("result = %+v", result)
	}
}

// TestErrorMessage はErrorのメッセージ形式を検証する。
func TestErrorMessage(t *testing.T) {
	t.Parallel()

	if got := (&Error{Code: "messaging/internal-error"}).Error(); got != "messaging/internal-error" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&Error{Code: "messaging/internal-error", Message: "try later"}).Error(); got != "messaging/internal-error: try later" {
		t.Errorf("Error() = %q", got)
	}
}
