package docstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nao1215/pushnotify/pkg/docpath"
	"github.com/nao1215/pushnotify/pkg/event"
	"github.com/nao1215/pushnotify/pkg/migration"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DefaultChangesLimit は変更フィード取得件数の既定値。
const DefaultChangesLimit = 100

// MaxChangesLimit は変更フィード取得件数の上限。
const MaxChangesLimit = 1000

// ErrNotFound はドキュメントが存在しないことを表す。
var ErrNotFound = errors.New("ドキュメントが見つかりません")

// Document はストアに保存された1件のドキュメント。
type Document struct {
	// Path はドキュメントのキーパス。
	Path string `json:"path"`
	// ID はキーパスの最終セグメント。
	ID string `json:"id"`
	// Data はドキュメント本体（JSONオブジェクト）。
	Data json.RawMessage `json:"data"`
	// CreateTime は作成日時。
	CreateTime time.Time `json:"create_time"`
	// UpdateTime は最終更新日時。
	UpdateTime time.Time `json:"update_time"`
}

// DataTo はドキュメント本体を指定された値にデシリアライズする。
func (d *Document) DataTo(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("ドキュメント %s のデシリアライズに失敗: %w", d.Path, err)
	}
	return nil
}

// documentRow はdocumentsテーブルの1行。
type documentRow struct {
	Path       string `db:"path"`
	Parent     string `db:"parent"`
	DocID      string `db:"doc_id"`
	Data       string `db:"data"`
	CreateTime string `db:"create_time"`
	UpdateTime string `db:"update_time"`
}

// changeRow はchangesテーブルの1行。
type changeRow struct {
	Seq        int64          `db:"seq"`
	Path       string         `db:"path"`
	BeforeData sql.NullString `db:"before_data"`
	AfterData  sql.NullString `db:"after_data"`
	CreatedAt  string         `db:"created_at"`
}

// Store はSQLiteに保存するドキュメントストア。
type Store struct {
	// db はsqlxでラップしたSQLite接続。
	db *sqlx.DB
	// now は現在時刻の取得元。サーバータイムスタンプに使う。
	now func() time.Time
}

// Open はSQLiteデータベースを開き、マイグレーションを適用したStoreを返す。
// dsnには "/data/docstore.db" や ":memory:" を指定する。
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteの書き込みは直列化されるため接続は1本に固定する。
	// インメモリDBを接続間で共有する目的も兼ねる。
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("PRAGMAの設定に失敗: %w", err)
	}
	if _, err := migration.Run(ctx, db.DB, migrationFS, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Get はキーパスのドキュメントを取得する。存在しない場合はErrNotFoundを返す。
func (s *Store) Get(ctx context.Context, path string) (*Document, error) {
	path, err := documentPath(path)
	if err != nil {
		return nil, err
	}

	var row documentRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM documents WHERE path = ?`, path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}
	return row.toDocument()
}

// List はコレクション直下のドキュメントをID順に返す。
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	collection, err := collectionPath(collection)
	if err != nil {
		return nil, err
	}

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM documents WHERE parent = ? ORDER BY doc_id`, collection); err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗: %w", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		d, err := r.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, nil
}

// Set はドキュメントを作成または上書きし、変更フィードに記録する。
func (s *Store) Set(ctx context.Context, path string, data map[string]any) (*Document, error) {
	path, err := documentPath(path)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, path, data)
}

// Add はコレクションに自動IDでドキュメントを追加する。
// serverTimestampsに指定したフィールドにはストアの現在時刻を設定する。
func (s *Store) Add(ctx context.Context, collection string, data map[string]any, serverTimestamps ...string) (*Document, error) {
	collection, err := collectionPath(collection)
	if err != nil {
		return nil, err
	}

	body := make(map[string]any, len(data)+len(serverTimestamps))
	for k, v := range data {
		body[k] = v
	}
	now := s.now().Format(time.RFC3339Nano)
	for _, field := range serverTimestamps {
		body[field] = now
	}
	return s.write(ctx, docpath.Join(collection, uuid.NewString()), body)
}

// Delete はドキュメントを削除し、変更フィードに記録する。
// 存在しないドキュメントの削除は何もしない。
func (s *Store) Delete(ctx context.Context, path string) error {
	path, err := documentPath(path)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var before string
	if err := tx.GetContext(ctx, &before, `SELECT data FROM documents WHERE path = ?`, path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("削除対象の取得に失敗: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗: %w", err)
	}
	if err := s.recordChange(ctx, tx, path, sql.NullString{String: before, Valid: true}, sql.NullString{}); err != nil {
		return err
	}
	return tx.Commit()
}

// Changes はafterより後の変更を通し番号順に最大limit件返す。
func (s *Store) Changes(ctx context.Context, after int64, limit int) ([]event.Change, error) {
	if limit <= 0 {
		limit = DefaultChangesLimit
	}
	limit = min(limit, MaxChangesLimit)

	var rows []changeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM changes WHERE seq > ? ORDER BY seq LIMIT ?`, after, limit); err != nil {
		return nil, fmt.Errorf("変更フィードの取得に失敗: %w", err)
	}

	changes := make([]event.Change, 0, len(rows))
	for _, r := range rows {
		c := event.Change{Seq: r.Seq, Path: r.Path}
		if r.BeforeData.Valid {
			c.Before = json.RawMessage(r.BeforeData.String)
		}
		if r.AfterData.Valid {
			c.After = json.RawMessage(r.AfterData.String)
		}
		t, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("変更日時の解析に失敗: %w", err)
		}
		c.CreatedAt = t
		changes = append(changes, c)
	}
	return changes, nil
}

// write はドキュメントの作成/上書きと変更記録を1トランザクションで行う。
func (s *Store) write(ctx context.Context, path string, data map[string]any) (*Document, error) {
	if data == nil {
		data = map[string]any{}
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("ドキュメント本体のシリアライズに失敗: %w", err)
	}
	parent, id, err := docpath.Parent(path)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing documentRow
	before := sql.NullString{}
	now := s.now().Format(time.RFC3339Nano)
	createTime := now
	switch err := tx.GetContext(ctx, &existing, `SELECT * FROM documents WHERE path = ?`, path); {
	case err == nil:
		before = sql.NullString{String: existing.Data, Valid: true}
		createTime = existing.CreateTime
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("既存ドキュメントの取得に失敗: %w", err)
	}

	row := documentRow{
		Path:       path,
		Parent:     parent,
		DocID:      id,
		Data:       string(body),
		CreateTime: createTime,
		UpdateTime: now,
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO documents (path, parent, doc_id, data, create_time, update_time)
		VALUES (:path, :parent, :doc_id, :data, :create_time, :update_time)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, update_time = excluded.update_time
	`, row); err != nil {
		return nil, fmt.Errorf("ドキュメントの保存に失敗: %w", err)
	}
	if err := s.recordChange(ctx, tx, path, before, sql.NullString{String: row.Data, Valid: true}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return row.toDocument()
}

// recordChange は変更フィードに1件追記する。
func (s *Store) recordChange(ctx context.Context, tx *sqlx.Tx, path string, before, after sql.NullString) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO changes (path, before_data, after_data, created_at) VALUES (?, ?, ?, ?)`,
		path, before, after, s.now().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("変更フィードへの記録に失敗: %w", err)
	}
	return nil
}

// toDocument はDB行をDocumentに変換する。
func (r documentRow) toDocument() (*Document, error) {
	createTime, err := time.Parse(time.RFC3339Nano, r.CreateTime)
	if err != nil {
		return nil, fmt.Errorf("作成日時の解析に失敗: %w", err)
	}
	updateTime, err := time.Parse(time.RFC3339Nano, r.UpdateTime)
	if err != nil {
		return nil, fmt.Errorf("更新日時の解析に失敗: %w", err)
	}
	return &Document{
		Path:       r.Path,
		ID:         r.DocID,
		Data:       json.RawMessage(r.Data),
		CreateTime: createTime,
		UpdateTime: updateTime,
	}, nil
}

// documentPath はキーパスを正規化し、ドキュメントパスであることを検証する。
func documentPath(path string) (string, error) {
	clean, err := docpath.Clean(path)
	if err != nil {
		return "", err
	}
	if !docpath.IsDocument(clean) {
		return "", fmt.Errorf("%w: ドキュメントパスではありません %q", docpath.ErrInvalidPath, path)
	}
	return clean, nil
}

// collectionPath はキーパスを正規化し、コレクションパスであることを検証する。
func collectionPath(path string) (string, error) {
	clean, err := docpath.Clean(path)
	if err != nil {
		return "", err
	}
	if !docpath.IsCollection(clean) {
		return "", fmt.Errorf("%w: コレクションパスではありません %q", docpath.ErrInvalidPath, path)
	}
	return clean, nil
}
