package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoSnapshot は指定された側のドキュメント本体が存在しないことを表す。
var ErrNoSnapshot = errors.New("ドキュメント本体が存在しません")

// New は変更前後のドキュメント本体から変更イベントを生成する。
// 存在しない側にはnilを渡す。Seqはドキュメントストアが採番する。
func New(path string, before, after any) (*Change, error) {
	beforeJSON, err := marshalSnapshot(before)
	if err != nil {
		return nil, fmt.Errorf("変更前データのシリアライズに失敗: %w", err)
	}
	afterJSON, err := marshalSnapshot(after)
	if err != nil {
		return nil, fmt.Errorf("変更後データのシリアライズに失敗: %w", err)
	}
	return &Change{
		Path:      path,
		Before:    beforeJSON,
		After:     afterJSON,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DecodeAfter は変更後のドキュメント本体を指定された型にデシリアライズする。
func DecodeAfter[T any](c *Change) (*T, error) {
	if !c.AfterExists() {
		return nil, ErrNoSnapshot
	}
	return decode[T](c.After)
}

// DecodeBefore は変更前のドキュメント本体を指定された型にデシリアライズする。
func DecodeBefore[T any](c *Change) (*T, error) {
	if !c.BeforeExists() {
		return nil, ErrNoSnapshot
	}
	return decode[T](c.Before)
}

func decode[T any](raw json.RawMessage) (*T, error) {
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("ドキュメント本体のデシリアライズに失敗: %w", err)
	}
	return &data, nil
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
