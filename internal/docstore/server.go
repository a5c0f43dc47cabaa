package docstore

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushnotify/pkg/docpath"
	"github.com/nao1215/pushnotify/pkg/event"
	"github.com/nao1215/pushnotify/pkg/middleware"
)

// Server はドキュメントストアのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はドキュメントの保存先。
	store *Store
}

// NewServer は新しいドキュメントストアサーバーを生成する。
// secretはサービストークンの検証鍵。
func NewServer(port string, store *Store, secret string) *Server {
	router := gin.New()
	router.Use(middleware.Recovery("DocStore"))
	router.Use(gin.Logger())

	s := &Server{
		router: router,
		port:   port,
		store:  store,
	}
	s.setupRoutes(middleware.ServiceAuth(secret))
	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はHTTPハンドラとしてのルーターを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	api := s.router.Group("/api/v1")
	api.Use(auth)
	{
		// ドキュメント取得またはコレクション一覧
		api.GET("/documents/*path", s.handleGet())
		// ドキュメント作成・上書き
		api.PUT("/documents/*path", s.handleSet())
		// ドキュメント削除
		api.DELETE("/documents/*path", s.handleDelete())
		// 自動IDでドキュメント追加
		api.POST("/documents/*path", s.handleAdd())
		// 変更フィード取得
		api.GET("/changes", s.handleChanges())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "docstore"})
	})
}

// setRequest はドキュメント上書きリクエストのJSON構造。
type setRequest struct {
	// Data はドキュメント本体。
	Data map[string]any `json:"data"`
}

// addRequest はドキュメント追加リクエストのJSON構造。
type addRequest struct {
	// Data はドキュメント本体。
	Data map[string]any `json:"data"`
	// ServerTimestamps はサーバー時刻を設定するフィールド名。
	ServerTimestamps []string `json:"server_timestamps"`
}

// listResponse はコレクション一覧のJSONレスポンス構造。
type listResponse struct {
	// Documents はID順のドキュメント。
	Documents []Document `json:"documents"`
}

// changesResponse は変更フィードのJSONレスポンス構造。
type changesResponse struct {
	// Changes は通し番号順の変更。
	Changes []event.Change `json:"changes"`
	// Next は次回取得時にafterへ渡す通し番号。
	Next int64 `json:"next"`
}

// handleGet はドキュメント取得を処理するハンドラを返す。
// パスがコレクションを指す場合は一覧を返す。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Param("path")
		if docpath.IsCollection(path) {
			docs, err := s.store.List(c.Request.Context(), path)
			if err != nil {
				s.writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, listResponse{Documents: docs})
			return
		}

		doc, err := s.store.Get(c.Request.Context(), path)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// handleSet はドキュメントの作成・上書きを処理するハンドラを返す。
func (s *Server) handleSet() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		doc, err := s.store.Set(c.Request.Context(), c.Param("path"), req.Data)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// handleDelete はドキュメント削除を処理するハンドラを返す。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.store.Delete(c.Request.Context(), c.Param("path")); err != nil {
			s.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleAdd は自動ID付きのドキュメント追加を処理するハンドラを返す。
func (s *Server) handleAdd() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		doc, err := s.store.Add(c.Request.Context(), c.Param("path"), req.Data, req.ServerTimestamps...)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, doc)
	}
}

// handleChanges は変更フィードの取得を処理するハンドラを返す。
// クエリパラメータ after と limit で取得範囲を指定する。
func (s *Server) handleChanges() gin.HandlerFunc {
	return func(c *gin.Context) {
		after, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
		if err != nil || after < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "afterが不正です"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultChangesLimit)))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limitが不正です"})
			return
		}

		changes, err := s.store.Changes(c.Request.Context(), after, limit)
		if err != nil {
			s.writeError(c, err)
			return
		}

		next := after
		if len(changes) > 0 {
			next = changes[len(changes)-1].Seq
		}
		c.JSON(http.StatusOK, changesResponse{Changes: changes, Next: next})
	}
}

// writeError はストアのエラーをHTTPステータスに変換して返す。
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, docpath.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[DocStore] リクエスト処理エラー: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "内部エラーが発生しました"})
	}
}
