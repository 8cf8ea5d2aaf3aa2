package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/cliply/interaction-service/internal/batch"
	"github.com/cliply/interaction-service/internal/domain"
	"github.com/cliply/interaction-service/internal/service"
	pkglog "github.com/cliply/interaction-service/pkg/log"
	"github.com/cliply/interaction-service/pkg/middleware"
	"github.com/cliply/interaction-service/pkg/response"
)

// Handler handles HTTP requests for the interaction service.
type Handler struct {
	svc            service.InteractionService
	loader         *batch.Loader
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc service.InteractionService, loader *batch.Loader, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		svc:            svc,
		loader:         loader,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		videos := api.Group("/videos")
		{
			videos.POST("/:video_id/like", h.authMiddleware.RequireAuth(), h.LikeVideo)
			videos.DELETE("/:video_id/like", h.authMiddleware.RequireAuth(), h.UnlikeVideo)
			videos.GET("/:video_id/like/status", h.authMiddleware.RequireAuth(), h.LikeStatus)
			videos.POST("/:video_id/comments", h.authMiddleware.RequireAuth(), h.AddComment)
			videos.GET("/:video_id/comments", h.Comments)
			videos.POST("/:video_id/views", h.authMiddleware.OptionalAuth(), h.RecordView)
			videos.POST("/:video_id/shares", h.authMiddleware.RequireAuth(), h.ShareVideo)
			videos.GET("/:video_id/stats", h.VideoStats)
		}

		comments := api.Group("/comments")
		{
			comments.DELETE("/:comment_id", h.authMiddleware.RequireAuth(), h.DeleteComment)
			comments.PATCH("/:comment_id/status", h.authMiddleware.RequireAuth(), h.ModerateComment)
			comments.POST("/:comment_id/like", h.authMiddleware.RequireAuth(), h.LikeComment)
			comments.DELETE("/:comment_id/like", h.authMiddleware.RequireAuth(), h.UnlikeComment)
			comments.GET("/:comment_id/like/status", h.authMiddleware.RequireAuth(), h.CommentLikeStatus)
		}

		users := api.Group("/users")
		{
			users.POST("/:user_id/follow", h.authMiddleware.RequireAuth(), h.Follow)
			users.DELETE("/:user_id/follow", h.authMiddleware.RequireAuth(), h.Unfollow)
			users.GET("/:user_id/follow/status", h.authMiddleware.RequireAuth(), h.FollowStatus)
			users.GET("/:user_id/followers", h.Followers)
			users.GET("/:user_id/following", h.Following)
			users.GET("/:user_id/stats", h.FollowerCounts)
		}

		// Batched counter lookups for upstream gateways.
		api.POST("/stats/videos", h.BatchVideoStats)
	}
}

// handleServiceError maps engine errors onto the response envelope.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyLiked):
		response.Conflict(c, "already liked")
	case errors.Is(err, service.ErrAlreadyFollowing):
		response.Conflict(c, "already following")
	case errors.Is(err, service.ErrNotLiked):
		response.NotFound(c, "not liked")
	case errors.Is(err, service.ErrNotFollowing):
		response.NotFound(c, "not following")
	case errors.Is(err, service.ErrCommentNotFound):
		response.NotFound(c, "comment not found")
	case errors.Is(err, service.ErrNotCommentOwner):
		response.Forbidden(c, "only the comment author may delete it")
	case errors.Is(err, service.ErrSelfFollow):
		response.BadRequest(c, "cannot follow yourself")
	case errors.Is(err, service.ErrEmptyContent):
		response.BadRequest(c, "content must not be empty")
	case errors.Is(err, service.ErrContentTooLong):
		response.BadRequest(c, "content exceeds maximum length")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, "invalid moderation status")
	case errors.Is(err, service.ErrInvalidShareType):
		response.BadRequest(c, "invalid share type")
	default:
		pkglog.Ctx(c.Request.Context()).Error().Err(err).Msg("interaction operation failed")
		response.Unavailable(c, "store unavailable, retry later")
	}
}

// LikeVideo handles POST /api/v1/videos/:video_id/like.
func (h *Handler) LikeVideo(c *gin.Context) {
	userID := middleware.GetUserID(c)
	videoID := c.Param("video_id")

	likes, err := h.svc.LikeVideo(c.Request.Context(), userID, videoID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, gin.H{"videoId": videoID, "likes": likes})
}

// UnlikeVideo handles DELETE /api/v1/videos/:video_id/like.
func (h *Handler) UnlikeVideo(c *gin.Context) {
	userID := middleware.GetUserID(c)
	videoID := c.Param("video_id")

	likes, err := h.svc.UnlikeVideo(c.Request.Context(), userID, videoID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"videoId": videoID, "likes": likes})
}

// LikeStatus handles GET /api/v1/videos/:video_id/like/status.
func (h *Handler) LikeStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	videoID := c.Param("video_id")

	liked, err := h.svc.LikeStatus(c.Request.Context(), userID, videoID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"videoId": videoID, "hasLiked": liked})
}

type addCommentRequest struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parentId"`
}

// AddComment handles POST /api/v1/videos/:video_id/comments.
func (h *Handler) AddComment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	videoID := c.Param("video_id")

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), userID, videoID, req.Content, req.ParentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, comment)
}

// Comments handles GET /api/v1/videos/:video_id/comments.
func (h *Handler) Comments(c *gin.Context) {
	videoID := c.Param("video_id")
	page, limit := pageParams(c)

	result, err := h.svc.Comments(c.Request.Context(), videoID, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteComment handles DELETE /api/v1/comments/:comment_id.
func (h *Handler) DeleteComment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	commentID := c.Param("comment_id")

	if err := h.svc.DeleteComment(c.Request.Context(), commentID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type moderateCommentRequest struct {
	Status string `json:"status" binding:"required"`
}

// ModerateComment handles PATCH /api/v1/comments/:comment_id/status.
func (h *Handler) ModerateComment(c *gin.Context) {
	commentID := c.Param("comment_id")

	var req moderateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.svc.ModerateComment(c.Request.Context(), commentID, domain.CommentStatus(req.Status)); err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"commentId": commentID, "status": req.Status})
}

// LikeComment handles POST /api/v1/comments/:comment_id/like.
func (h *Handler) LikeComment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	commentID := c.Param("comment_id")

	likes, err := h.svc.LikeComment(c.Request.Context(), userID, commentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, gin.H{"commentId": commentID, "likes": likes})
}

// UnlikeComment handles DELETE /api/v1/comments/:comment_id/like.
func (h *Handler) UnlikeComment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	commentID := c.Param("comment_id")

	likes, err := h.svc.UnlikeComment(c.Request.Context(), userID, commentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"commentId": commentID, "likes": likes})
}

// CommentLikeStatus handles GET /api/v1/comments/:comment_id/like/status.
func (h *Handler) CommentLikeStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	commentID := c.Param("comment_id")

	liked, err := h.svc.CommentLikeStatus(c.Request.Context(), userID, commentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"commentId": commentID, "hasLiked": liked})
}

// RecordView handles POST /api/v1/videos/:video_id/views.
// Anonymous viewers are allowed; auth is optional here.
func (h *Handler) RecordView(c *gin.Context) {
	userID := middleware.GetUserID(c)
	videoID := c.Param("video_id")

	views, err := h.svc.RecordView(c.Request.Context(), videoID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"videoId": videoID, "views": views})
}

type shareVideoRequest struct {
	ShareType    string `json:"shareType" binding:"required"`
	Platform     string `json:"platform"`
	TargetUserID string `json:"targetUserId"`
}

// ShareVideo handles POST /api/v1/videos/:video_id/shares.
func (h *Handler) ShareVideo(c *gin.Context) {
	userID := middleware.GetUserID(c)
	videoID := c.Param("video_id")

	var req shareVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	shares, err := h.svc.ShareVideo(c.Request.Context(), userID, videoID, domain.ShareType(req.ShareType), req.Platform, req.TargetUserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, gin.H{"videoId": videoID, "shares": shares})
}

// VideoStats handles GET /api/v1/videos/:video_id/stats.
func (h *Handler) VideoStats(c *gin.Context) {
	videoID := c.Param("video_id")

	stats, err := h.svc.VideoStats(c.Request.Context(), videoID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, stats)
}

// Follow handles POST /api/v1/users/:user_id/follow.
func (h *Handler) Follow(c *gin.Context) {
	followerID := middleware.GetUserID(c)
	followingID := c.Param("user_id")

	counts, err := h.svc.FollowUser(c.Request.Context(), followerID, followingID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, counts)
}

// Unfollow handles DELETE /api/v1/users/:user_id/follow.
func (h *Handler) Unfollow(c *gin.Context) {
	followerID := middleware.GetUserID(c)
	followingID := c.Param("user_id")

	if err := h.svc.UnfollowUser(c.Request.Context(), followerID, followingID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// FollowStatus handles GET /api/v1/users/:user_id/follow/status.
func (h *Handler) FollowStatus(c *gin.Context) {
	followerID := middleware.GetUserID(c)
	followingID := c.Param("user_id")

	following, err := h.svc.FollowStatus(c.Request.Context(), followerID, followingID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"userId": followingID, "isFollowing": following})
}

// Followers handles GET /api/v1/users/:user_id/followers.
func (h *Handler) Followers(c *gin.Context) {
	userID := c.Param("user_id")
	page, limit := pageParams(c)

	result, err := h.svc.Followers(c.Request.Context(), userID, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Following handles GET /api/v1/users/:user_id/following.
func (h *Handler) Following(c *gin.Context) {
	userID := c.Param("user_id")
	page, limit := pageParams(c)

	result, err := h.svc.Following(c.Request.Context(), userID, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// FollowerCounts handles GET /api/v1/users/:user_id/stats.
func (h *Handler) FollowerCounts(c *gin.Context) {
	userID := c.Param("user_id")

	counts, err := h.svc.FollowerCounts(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, counts)
}

type batchStatsRequest struct {
	VideoIDs []string `json:"videoIds" binding:"required"`
}

// BatchVideoStats handles POST /api/v1/stats/videos. Lookups go through
// the coalescing loader so gateway fan-outs for many videos collapse
// into few engine calls and repeat lookups hit the short-TTL cache. The
// Loads run concurrently so every id of one request lands in the same
// coalescing window instead of each waiting out its own.
func (h *Handler) BatchVideoStats(c *gin.Context) {
	var req batchStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stats := make([]*domain.VideoStats, len(req.VideoIDs))
	g, ctx := errgroup.WithContext(c.Request.Context())
	for i, videoID := range req.VideoIDs {
		i, videoID := i, videoID
		g.Go(func() error {
			v, err := h.loader.Load(ctx, "video-stats", videoID, h.loadVideoStats)
			if err != nil {
				return err
			}
			stats[i] = v.(*domain.VideoStats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"stats": stats})
}

// loadVideoStats is the loader callback: it resolves one coalesced batch
// of video ids, index-aligned with the input.
func (h *Handler) loadVideoStats(ctx context.Context, ids []string) ([]interface{}, error) {
	out := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		stats, err := h.svc.VideoStats(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, nil
}

func pageParams(c *gin.Context) (int, int) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)
	return page, limit
}

func intQuery(c *gin.Context, name string, fallback int) int {
	s := c.Query(name)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
