package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nao1215/pushnotify/pkg/event"
	"github.com/nao1215/pushnotify/pkg/push"
)

const (
	// OrderPattern は注文トリガーのパスパターン。
	OrderPattern = "orders/{orderId}"
	// OfferPattern はオファートリガーのパスパターン。
	OfferPattern = "offers/{offerId}"
	// OffersTopic はオファー通知のブロードキャスト先トピック。
	OffersTopic = "offers"
)

// ErrMissingUserID は注文ドキュメントにuserIdがないことを表す。
var ErrMissingUserID = errors.New("注文ドキュメントにuserIdがありません")

// order は注文ドキュメントのうち通知に使うフィールド。
type order struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// offer はオファードキュメントのうち通知に使うフィールド。
type offer struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

// Triggers は注文とオファーのトリガー処理。
type Triggers struct {
	// store は通知設定の読み込み先。
	store Store
	// dispatcher はユーザー宛ての配信処理。
	dispatcher *Dispatcher
	// transport はトピック配信に使うプッシュ配信基盤。
	transport push.Transport
}

// NewTriggers は新しいTriggersを生成する。
func NewTriggers(store Store, dispatcher *Dispatcher, transport push.Transport) *Triggers {
	return &Triggers{store: store, dispatcher: dispatcher, transport: transport}
}

// Register はトリガーをRegistryに登録する。
func (t *Triggers) Register(r *Registry) {
	r.OnWrite(OrderPattern, t.OnOrderWrite)
	r.OnCreate(OfferPattern, t.OnOfferCreate)
}

// OnOrderWrite は注文の作成・更新時に注文者へ通知する。
// 削除時と、注文者が注文通知を無効にしている場合は何もしない。
func (t *Triggers) OnOrderWrite(ctx context.Context, change *event.Change, params map[string]string) error {
	if !change.AfterExists() {
		return nil
	}

	o, err := event.DecodeAfter[order](change)
	if err != nil {
		return fmt.Errorf("注文 %s の読み込みに失敗: %w", params["orderId"], err)
	}
	if o.UserID == "" {
		return fmt.Errorf("%w (order=%s)", ErrMissingUserID, params["orderId"])
	}

	settings, err := LoadSettings(ctx, t.store, o.UserID)
	if err != nil {
		return err
	}
	if !settings.Orders {
		log.Printf("[Notifier] 注文通知が無効なため送信しません (user=%s, order=%s)", o.UserID, params["orderId"])
		return nil
	}

	msg, err := BuildOrderPayload(params["orderId"], o.Status)
	if err != nil {
		return err
	}
	return t.dispatcher.SendToUser(ctx, o.UserID, msg)
}

// OnOfferCreate は新しいオファーをトピック購読者へブロードキャストする。
// ユーザーの通知設定は参照しない。
func (t *Triggers) OnOfferCreate(ctx context.Context, change *event.Change, params map[string]string) error {
	o, err := event.DecodeAfter[offer](change)
	if err != nil {
		return fmt.Errorf("オファー %s の読み込みに失敗: %w", params["offerId"], err)
	}

	msg, err := BuildOfferPayload(params["offerId"], o.Title, o.ImageURL)
	if err != nil {
		return err
	}

	result, err := t.transport.SendToTopic(ctx, OffersTopic, msg)
	if err != nil {
		return fmt.Errorf("オファー %s の配信に失敗: %w", params["offerId"], err)
	}
	if !result.Success() {
		return fmt.Errorf("オファー %s の配信に失敗: %w", params["offerId"], result.Error)
	}
	log.Printf("[Notifier] オファーを配信しました (offer=%s, message=%s)", params["offerId"], result.MessageID)
	return nil
}
