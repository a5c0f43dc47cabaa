// Package config は環境変数と.envファイルからサービスの設定を読み込む。
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config は両サービスが共有する設定値。
type Config struct {
	// Port は通知サービスのリッスンポート。
	Port string
	// DocStorePort はドキュメントストアサービスのリッスンポート。
	DocStorePort string
	// DocStoreURL は通知サービスから見たドキュメントストアのベースURL。
	DocStoreURL string
	// DocStoreDBPath はドキュメントストアのSQLiteファイルパス。
	DocStoreDBPath string
	// PushGatewayURL はプッシュゲートウェイのベースURL。空ならログ出力のみのTransportを使う。
	PushGatewayURL string
	// ServiceSecret はサービス間トークンの署名鍵。
	ServiceSecret string
	// ServiceName はサービストークンのSubjectに入れる自サービス名。
	ServiceName string
	// WatchInterval は変更フィードのポーリング間隔。
	WatchInterval time.Duration
	// WatchBatchSize は1回のポーリングで取得する変更の最大件数。
	WatchBatchSize int
	// HTTPTimeout はサービス間HTTP呼び出しのタイムアウト。
	HTTPTimeout time.Duration
}

// Load は.envファイル（存在する場合）と環境変数から設定を読み込む。
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] .envファイルが見つからないため環境変数のみを使用します")
	}

	return &Config{
		Port:           getEnv("PORT", "8086"),
		DocStorePort:   getEnv("DOCSTORE_PORT", "8090"),
		DocStoreURL:    getEnv("DOCSTORE_URL", "http://localhost:8090"),
		DocStoreDBPath: getEnv("DOCSTORE_DB_PATH", "/data/docstore.db"),
		PushGatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
		ServiceSecret:  getEnv("SERVICE_SECRET", "dev-secret-key"),
		ServiceName:    getEnv("SERVICE_NAME", "notifier"),
		WatchInterval:  getEnvAsDuration("WATCH_INTERVAL", 2*time.Second),
		WatchBatchSize: getEnvAsInt("WATCH_BATCH_SIZE", 100),
		HTTPTimeout:    getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
	}
}

// getEnv は環境変数を取得し、未設定の場合はデフォルト値を返す。
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Printf("[Config] %s の値が不正なためデフォルト値 %s を使用します", key, defaultValue)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
		log.Printf("[Config] %s の値が不正なためデフォルト値 %d を使用します", key, defaultValue)
	}
	return defaultValue
}
