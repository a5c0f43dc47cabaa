// Package event はドキュメントストアの変更イベントを表す型を提供する。
//
// ドキュメントストアはドキュメントの作成・更新・削除のたびに変更イベントを記録し、
// 通知サービスはその変更フィードを購読してトリガーを起動する。
package event

import (
	"encoding/json"
	"time"
)

// Kind は変更イベントの種類を表す。
type Kind string

const (
	// KindCreate はドキュメントが新規作成されたことを表す。
	KindCreate Kind = "create"
	// KindUpdate は既存ドキュメントが上書きされたことを表す。
	KindUpdate Kind = "update"
	// KindDelete はドキュメントが削除されたことを表す。
	KindDelete Kind = "delete"
)

// Change はドキュメントストアにおける1件の変更を表す。
// Before/Afterは変更前後のドキュメント本体（JSONオブジェクト）で、
// 存在しない側は空になる。
type Change struct {
	// Seq は変更フィード内での通し番号。購読側のカーソルに使用する。
	Seq int64 `json:"seq"`
	// Path は変更されたドキュメントのキーパス。
	Path string `json:"path"`
	// Before は変更前のドキュメント本体。作成時は空。
	Before json.RawMessage `json:"before,omitempty"`
	// After は変更後のドキュメント本体。削除時は空。
	After json.RawMessage `json:"after,omitempty"`
	// CreatedAt は変更が記録された日時。
	CreatedAt time.Time `json:"created_at"`
}

// BeforeExists は変更前のドキュメントが存在したかどうかを返す。
func (c *Change) BeforeExists() bool {
	return present(c.Before)
}

// AfterExists は変更後のドキュメントが存在するかどうかを返す。
func (c *Change) AfterExists() bool {
	return present(c.After)
}

// Kind は変更前後の存在有無から変更の種類を判定する。
func (c *Change) Kind() Kind {
	switch {
	case !c.AfterExists():
		return KindDelete
	case !c.BeforeExists():
		return KindCreate
	default:
		return KindUpdate
	}
}

// present はJSON値が空またはnullでないかを判定する。
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
