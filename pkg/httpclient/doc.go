// Package httpclient はサービス間のHTTP通信を行うJSONクライアントを提供する。
//
// 通知サービスからドキュメントストアやプッシュゲートウェイを呼び出す際に使用する。
// リクエストにはサービス認証用のBearerトークンを付与できる。
package httpclient
