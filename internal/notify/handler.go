package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/pushnotify/internal/push"
	"github.com/nao1215/pushnotify/internal/subscription"
	"github.com/nao1215/pushnotify/pkg/middleware"
	"github.com/nao1215/pushnotify/web"
)

// removeSubscriptionRequest は購読削除リクエストのJSON構造。endpoint 以外は使用しない。
type removeSubscriptionRequest struct {
	// Endpoint は削除する購読のendpoint。
	Endpoint string `json:"endpoint" binding:"required"`
}

// notifyAllRequest は全購読への通知リクエストのJSON構造。
// クライアントは subscription も送ってくるが使用しない。
type notifyAllRequest struct {
	// Notification は配信する通知。
	Notification *push.Notification `json:"notification" binding:"required"`
}

// notifyMeRequest は指定購読への通知リクエストのJSON構造。
type notifyMeRequest struct {
	// Subscription は配信先の購読。
	Subscription *subscription.Subscription `json:"subscription" binding:"required"`
	// Notification は配信する通知。
	Notification *push.Notification `json:"notification" binding:"required"`
}

// resultResponse は1件の配信結果のJSONレスポンス構造。
type resultResponse struct {
	// Endpoint は配信先の購読endpoint。
	Endpoint string `json:"endpoint"`
	// Outcome は結果分類。
	Outcome push.Outcome `json:"outcome"`
	// StatusCode はプッシュサービスの応答ステータス。応答がない場合は省略する。
	StatusCode int `json:"status_code,omitempty"`
	// Error は失敗の詳細。
	Error string `json:"error,omitempty"`
}

// notifyResponse は通知リクエストのJSONレスポンス構造。
type notifyResponse struct {
	// Summary は結果分類ごとの集計。
	Summary push.Summary `json:"summary"`
	// Results は購読ごとの配信結果。
	Results []resultResponse `json:"results"`
}

// toNotifyResponse は配信結果をJSONレスポンスに変換する。
func toNotifyResponse(results []push.Result) notifyResponse {
	responses := make([]resultResponse, 0, len(results))
	for _, r := range results {
		res := resultResponse{
			Endpoint:   r.Endpoint,
			Outcome:    r.Outcome,
			StatusCode: r.StatusCode,
		}
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
		responses = append(responses, res)
	}
	return notifyResponse{Summary: push.Summarize(results), Results: responses}
}

// sessionStore はリクエストのセッションに対応する購読ストアを返す。
func (s *Server) sessionStore(c *gin.Context) (subscription.Store, bool) {
	store, err := s.sessions.Store(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "セッションの取得に失敗しました"})
		return nil, false
	}
	return store, true
}

// handleAddSubscription はセッションに購読を登録するハンドラ。
// 同じendpointの購読は上書きされる。
func (s *Server) handleAddSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sub subscription.Subscription
		if err := c.ShouldBindJSON(&sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if err := sub.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		store, ok := s.sessionStore(c)
		if !ok {
			return
		}
		if err := store.Add(c.Request.Context(), sub); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読の登録に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "購読を登録しました"})
	}
}

// handleRemoveSubscription はセッションから購読を削除するハンドラ。
// 登録されていないendpointを指定してもエラーにはならない。
func (s *Server) handleRemoveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req removeSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		store, ok := s.sessionStore(c)
		if !ok {
			return
		}
		if err := store.Remove(c.Request.Context(), req.Endpoint); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読の削除に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "購読を削除しました"})
	}
}

// handleNotifyAll はセッションの全購読へ通知を配信するハンドラ。
// 配信結果に関わらず200で、購読ごとの結果を返す。
func (s *Server) handleNotifyAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req notifyAllRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if err := req.Notification.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		store, ok := s.sessionStore(c)
		if !ok {
			return
		}
		subs, err := store.List(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読一覧の取得に失敗しました"})
			return
		}

		// 呼び出し元が切断しても配信は続ける。各試行は Dispatcher のタイムアウトで打ち切られる
		ctx := context.WithoutCancel(c.Request.Context())
		results := s.dispatcher.SendToMany(ctx, subs, *req.Notification)
		s.pruneExpired(ctx, store, results)

		c.JSON(http.StatusOK, toNotifyResponse(results))
	}
}

// handleNotifyMe はリクエストで指定された購読へ通知を配信するハンドラ。
func (s *Server) handleNotifyMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req notifyMeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if err := errors.Join(req.Subscription.Validate(), req.Notification.Validate()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		result := s.dispatcher.SendOne(ctx, *req.Subscription, *req.Notification)
		if s.conf.PruneExpired && result.Outcome == push.OutcomeExpired {
			store, ok := s.sessionStore(c)
			if !ok {
				return
			}
			s.pruneExpired(ctx, store, []push.Result{result})
		}

		c.JSON(http.StatusOK, toNotifyResponse([]push.Result{result}))
	}
}

// pruneExpired は失効した購読をストアから削除する。PruneExpired が無効な場合は何もしない。
// 削除に失敗しても配信結果の返却は妨げない。
func (s *Server) pruneExpired(ctx context.Context, store subscription.Store, results []push.Result) {
	if !s.conf.PruneExpired {
		return
	}
	for _, r := range results {
		if r.Outcome != push.OutcomeExpired {
			continue
		}
		if err := store.Remove(ctx, r.Endpoint); err != nil {
			s.logger.Warn("失効した購読の削除に失敗しました", zap.String("endpoint", r.Endpoint), zap.Error(err))
			continue
		}
		s.logger.Info("失効した購読を削除しました", zap.String("endpoint", r.Endpoint))
	}
}

// handleIndex はクライアントページを返すハンドラ。
func (s *Server) handleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML())
	}
}

// handleVAPIDPublicKey はクライアントが購読に使うVAPID公開鍵を返すハンドラ。
func (s *Server) handleVAPIDPublicKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.conf.VAPIDPublicKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "VAPID公開鍵が設定されていません"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"publicKey": s.conf.VAPIDPublicKey})
	}
}
