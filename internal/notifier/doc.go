// Package notifier はドキュメントストアの変更に反応してプッシュ通知を配信する。
//
// 注文ドキュメントの書き込みでは、ユーザーの通知設定を確認してから
// そのユーザーの全デバイストークンへ一括送信し、無効になったトークンを削除して
// 通知履歴を保存する。オファーの作成ではトピック購読者へブロードキャストする。
//
// トリガーはWatcherによる変更フィードのポーリング、または内部APIへの
// 変更通知のどちらからでも起動できる。起動ごとに独立したゴルーチンで実行され、
// 起動間で状態を共有しない。
package notifier
