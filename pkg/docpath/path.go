package docpath

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath はキーパスの形式が不正であることを表す。
var ErrInvalidPath = errors.New("不正なキーパス")

// Split はキーパスをセグメントに分割する。
// 先頭・末尾のスラッシュは無視する。空セグメントを含む場合はエラーを返す。
func Split(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: 空のパス", ErrInvalidPath)
	}
	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: 空のセグメントを含む %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// Join はセグメントを連結してキーパスを生成する。
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// IsDocument はキーパスがドキュメントを指すかどうかを返す。
func IsDocument(path string) bool {
	segments, err := Split(path)
	return err == nil && len(segments)%2 == 0
}

// IsCollection はキーパスがコレクションを指すかどうかを返す。
func IsCollection(path string) bool {
	segments, err := Split(path)
	return err == nil && len(segments)%2 == 1
}

// Parent はドキュメントパスを親コレクションパスとドキュメントIDに分解する。
func Parent(path string) (collection, id string, err error) {
	segments, err := Split(path)
	if err != nil {
		return "", "", err
	}
	if len(segments)%2 != 0 {
		return "", "", fmt.Errorf("%w: ドキュメントパスではありません %q", ErrInvalidPath, path)
	}
	last := len(segments) - 1
	return Join(segments[:last]...), segments[last], nil
}

// Clean は前後のスラッシュを取り除いた正規形のキーパスを返す。
func Clean(path string) (string, error) {
	segments, err := Split(path)
	if err != nil {
		return "", err
	}
	return Join(segments...), nil
}

// Pattern はワイルドカード付きのドキュメントパスパターン。
// "{name}" 形式のセグメントは任意の1セグメントに一致し、その値がパラメータになる。
type Pattern struct {
	// raw は元のパターン文字列。
	raw string
	// segments はパターンのセグメント。
	segments []string
}

// ParsePattern はパターン文字列を解析する。
func ParsePattern(pattern string) (Pattern, error) {
	segments, err := Split(pattern)
	if err != nil {
		return Pattern{}, err
	}
	for _, s := range segments {
		if strings.HasPrefix(s, "{") != strings.HasSuffix(s, "}") {
			return Pattern{}, fmt.Errorf("%w: パラメータの括弧が閉じていません %q", ErrInvalidPath, pattern)
		}
		if s == "{}" {
			return Pattern{}, fmt.Errorf("%w: パラメータ名が空です %q", ErrInvalidPath, pattern)
		}
	}
	return Pattern{raw: Join(segments...), segments: segments}, nil
}

// MustParsePattern はParsePatternを呼び出し、失敗時にパニックする。
// パッケージ変数での固定パターン定義用。
func MustParsePattern(pattern string) Pattern {
	p, err := ParsePattern(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String はパターン文字列を返す。
func (p Pattern) String() string {
	return p.raw
}

// Match はキーパスがパターンに一致するかを判定し、一致した場合はパラメータを返す。
func (p Pattern) Match(path string) (map[string]string, bool) {
	segments, err := Split(path)
	if err != nil || len(segments) != len(p.segments) {
		return nil, false
	}

	params := make(map[string]string)
	for i, s := range p.segments {
		if name, ok := paramName(s); ok {
			params[name] = segments[i]
			continue
		}
		if s != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// paramName は "{name}" 形式のセグメントからパラメータ名を取り出す。
func paramName(segment string) (string, bool) {
	if len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}
