// Package docpath はドキュメントストアのキーパスを扱うユーティリティを提供する。
//
// キーパスは "users/u1/fcmTokens/abc" のようなスラッシュ区切りの文字列で、
// 偶数個のセグメントはドキュメント、奇数個のセグメントはコレクションを表す。
// トリガー登録で使用する "orders/{orderId}" 形式のパターン照合も扱う。
package docpath
