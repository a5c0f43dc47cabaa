package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/pushnotify/internal/docstore"
	"github.com/nao1215/pushnotify/pkg/docpath"
	"github.com/nao1215/pushnotify/pkg/event"
	"github.com/nao1215/pushnotify/pkg/push"
)

// fakeStore はメモリ上のStore実装。呼び出しを記録し、パスごとにエラーを注入できる。
type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	added   []addCall
	deleted []string
	listed  []string
	gets    []string
	// failOn はメソッド名とパスの組に対して返すエラー。キーは "Get:users/u1/..." の形式。
	failOn map[string]error
}

// addCall はAddの呼び出し内容。
type addCall struct {
	Collection       string
	Data             map[string]any
	ServerTimestamps []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:   make(map[string]map[string]any),
		failOn: make(map[string]error),
	}
}

func (f *fakeStore) put(path string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = data
}

func (f *fakeStore) fail(method, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[method+":"+path] = err
}

func (f *fakeStore) injected(method, path string) error {
	return f.failOn[method+":"+path]
}

func (f *fakeStore) Get(_ context.Context, path string) (*docstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, path)
	if err := f.injected("Get", path); err != nil {
		return nil, err
	}
	data, ok := f.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return toDocument(path, data), nil
}

func (f *fakeStore) List(_ context.Context, collection string) ([]docstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, collection)
	if err := f.injected("List", collection); err != nil {
		return nil, err
	}
	var docs []docstore.Document
	for path, data := range f.docs {
		parent, _, err := docpath.Parent(path)
		if err == nil && parent == collection {
			docs = append(docs, *toDocument(path, data))
		}
	}
	slices.SortFunc(docs, func(a, b docstore.Document) int { return strings.Compare(a.ID, b.ID) })
	return docs, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("Delete", path); err != nil {
		return err
	}
	f.deleted = append(f.deleted, path)
	delete(f.docs, path)
	return nil
}

func (f *fakeStore) Add(_ context.Context, collection string, data map[string]any, serverTimestamps ...string) (*docstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("Add", collection); err != nil {
		return nil, err
	}
	f.added = append(f.added, addCall{Collection: collection, Data: data, ServerTimestamps: serverTimestamps})
	path := docpath.Join(collection, fmt.Sprintf("auto-%d", len(f.added)))
	f.docs[path] = data
	return toDocument(path, data), nil
}

func (f *fakeStore) addCalls() []addCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.added)
}

func (f *fakeStore) deletedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.deleted)
	slices.Sort(out)
	return out
}

func (f *fakeStore) listedCollections() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.listed)
}

func (f *fakeStore) getPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.gets)
}

func toDocument(path string, data map[string]any) *docstore.Document {
	_, id, _ := docpath.Parent(path)
	raw, _ := json.Marshal(data)
	return &docstore.Document{Path: path, ID: id, Data: raw}
}

// fakeTransport は送信内容を記録するTransport実装。
type fakeTransport struct {
	mu         sync.Mutex
	multicasts []multicastCall
	topics     []topicCall
	// results はトークンごとの送信結果。未指定のトークンは成功扱い。
	results map[string]push.Result
	// multicastErr はSendMulticast呼び出し自体を失敗させるエラー。
	multicastErr error
	// topicResult はSendToTopicが返す結果。
	topicResult push.Result
}

type multicastCall struct {
	Tokens  []string
	Message *push.Message
}

type topicCall struct {
	Topic   string
	Message *push.Message
}

var _ push.Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		results:     make(map[string]push.Result),
		topicResult: push.Result{MessageID: "topic-msg"},
	}
}

func (f *fakeTransport) SendMulticast(_ context.Context, tokens []string, msg *push.Message) ([]push.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multicasts = append(f.multicasts, multicastCall{Tokens: slices.Clone(tokens), Message: msg})
	if f.multicastErr != nil {
		return nil, f.multicastErr
	}
	results := make([]push.Result, len(tokens))
	for i, tok := range tokens {
		if r, ok := f.results[tok]; ok {
			results[i] = r
			continue
		}
		results[i] = push.Result{MessageID: "msg-" + tok}
	}
	return results, nil
}

func (f *fakeTransport) SendToTopic(_ context.Context, topic string, msg *push.Message) (push.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topicCall{Topic: topic, Message: msg})
	return f.topicResult, nil
}

func (f *fakeTransport) multicastCalls() []multicastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.multicasts)
}

func (f *fakeTransport) topicCalls() []topicCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.topics)
}

// failed はエラーコード付きの失敗結果を返す。
func failed(code string) push.Result {
	return push.Result{Error: &push.Error{Code: code}}
}

// newChange はテスト用の変更イベントを生成する。
func newChange(t *testing.T, path string, before, after any) *event.Change {
	t.Helper()
	c, err := event.New(path, before, after)
	if err != nil {
		t.Fatalf("変更イベントの生成に失敗: %v", err)
	}
	return c
}

// decodeEnvelope はメッセージのdata.payloadをEnvelopeとして解析する。
func decodeEnvelope(t *testing.T, msg *push.Message) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal([]byte(msg.Data[push.DataKeyPayload]), &env); err != nil {
		t.Fatalf("エンベロープの解析に失敗: %v", err)
	}
	return env
}

var errBoom = errors.New("boom")
