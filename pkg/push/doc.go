// Package push はプッシュ配信基盤への送信ポートと実装を提供する。
//
// 複数デバイスへの一括送信と、トピック購読者へのブロードキャストの2種類を扱う。
// 一括送信の結果はトークンと同じ順序の配列で返り、トークンごとの失敗は
// エラーではなく結果の中のエラーコードとして表現される。
package push
