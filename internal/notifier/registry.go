package notifier

import (
	"context"
	"slices"

	"github.com/nao1215/pushnotify/pkg/docpath"
	"github.com/nao1215/pushnotify/pkg/event"
)

// HandlerFunc は変更イベントに対して実行されるトリガー処理。
// paramsにはパスパターンの "{name}" に一致した値が入る。
type HandlerFunc func(ctx context.Context, change *event.Change, params map[string]string) error

// registration はパターンと変更種別に紐づくトリガー。
type registration struct {
	pattern docpath.Pattern
	kinds   []event.Kind
	handler HandlerFunc
}

// Invocation は1件の変更に対して起動される1つのトリガー。
type Invocation struct {
	// Pattern は一致したパスパターン。
	Pattern string
	// Change は起動元の変更。
	Change *event.Change
	// Params はパスパラメータ。
	Params map[string]string

	handler HandlerFunc
}

// Run はトリガー処理を実行する。
func (inv Invocation) Run(ctx context.Context) error {
	return inv.handler(ctx, inv.Change, inv.Params)
}

// Registry はパスパターンごとのトリガーを保持する。
// 登録は起動前に済ませ、起動後は読み取り専用として扱う。
type Registry struct {
	registrations []registration
}

// NewRegistry は空のRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{}
}

// OnWrite は作成・更新・削除のすべてで起動するトリガーを登録する。
func (r *Registry) OnWrite(pattern string, fn HandlerFunc) {
	r.add(pattern, fn, event.KindCreate, event.KindUpdate, event.KindDelete)
}

// OnCreate は作成時のみ起動するトリガーを登録する。
func (r *Registry) OnCreate(pattern string, fn HandlerFunc) {
	r.add(pattern, fn, event.KindCreate)
}

func (r *Registry) add(pattern string, fn HandlerFunc, kinds ...event.Kind) {
	r.registrations = append(r.registrations, registration{
		pattern: docpath.MustParsePattern(pattern),
		kinds:   kinds,
		handler: fn,
	})
}

// Match は変更に一致するトリガーを登録順に返す。
func (r *Registry) Match(change *event.Change) []Invocation {
	kind := change.Kind()
	var invocations []Invocation
	for _, reg := range r.registrations {
		if !slices.Contains(reg.kinds, kind) {
			continue
		}
		params, ok := reg.pattern.Match(change.Path)
		if !ok {
			continue
		}
		invocations = append(invocations, Invocation{
			Pattern: reg.pattern.String(),
			Change:  change,
			Params:  params,
			handler: reg.handler,
		})
	}
	return invocations
}
