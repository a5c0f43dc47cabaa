// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// サービス間通信用トークンの発行と検証、パニックリカバリを含む。
package middleware
