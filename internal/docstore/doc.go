// Package docstore はキーパスで管理するドキュメントストアサービスの内部実装を提供する。
//
// ドキュメントは "users/u1/settings/notifications" のようなキーパスで識別される
// JSONオブジェクトで、奇数セグメントのパスはコレクションを表す。
// すべての変更は変更フィードに同一トランザクションで追記され、
// 通知サービスはこのフィードを購読してトリガーを起動する。
//
// 主な機能:
//   - ドキュメントの取得・作成/上書き・削除
//   - コレクションへの自動ID付き追加（サーバータイムスタンプ付与）
//   - コレクション直下のドキュメント一覧
//   - 通し番号による変更フィードの取得
package docstore
