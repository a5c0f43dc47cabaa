package notifier

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushnotify/pkg/event"
	"github.com/nao1215/pushnotify/pkg/middleware"
)

// Server は通知サービスの内部HTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// registry は変更通知に対して起動するトリガー。
	registry *Registry
}

// NewServer は新しい通知サーバーを生成する。
// secretはサービストークンの検証鍵。
func NewServer(registry *Registry, secret string) *Server {
	router := gin.New()
	router.Use(middleware.Recovery("Notifier"))
	router.Use(gin.Logger())

	s := &Server{router: router, registry: registry}
	s.setupRoutes(middleware.ServiceAuth(secret))
	return s
}

// Handler はHTTPハンドラとしてのルーターを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	internal := s.router.Group("/api/v1/internal")
	internal.Use(auth)
	{
		// 外部から通知された変更でトリガーを起動する
		internal.POST("/changes", s.handleChange())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notifier"})
	})
}

// changeResponse は変更通知のJSONレスポンス構造。
type changeResponse struct {
	// Triggered は起動したトリガーの数。
	Triggered int `json:"triggered"`
}

// handleChange は1件の変更に一致するトリガーを同期的に実行するハンドラを返す。
// いずれかのトリガーが失敗した場合は500を返す。
func (s *Server) handleChange() gin.HandlerFunc {
	return func(c *gin.Context) {
		var change event.Change
		if err := c.ShouldBindJSON(&change); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if change.Path == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pathは必須です"})
			return
		}

		invocations := s.registry.Match(&change)
		var errs []error
		for _, inv := range invocations {
			if err := inv.Run(c.Request.Context()); err != nil {
				log.Printf("[Notifier] トリガー実行エラー (pattern=%s, path=%s): %v", inv.Pattern, change.Path, err)
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, changeResponse{Triggered: len(invocations)})
	}
}
