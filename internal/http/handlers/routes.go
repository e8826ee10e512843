package handlers

import "github.com/gin-gonic/gin"

// Register mounts the public API on api.
func (h *Handlers) Register(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.GET("/:id/feedback/sent", h.SentFeedback)
		users.GET("/:id/feedback/received", h.ReceivedFeedback)
	}

	forums := api.Group("/forums")
	{
		forums.POST("", h.CreateForum)
		forums.GET("", h.ListForums)
		forums.GET("/mine", h.MyForums)
		forums.GET("/:id", h.GetForum)
		forums.PUT("/:id", h.UpdateForum)
		forums.DELETE("/:id", h.DeleteForum)
		forums.PATCH("/:id/status", h.ChangeForumStatus)
		forums.GET("/:id/permissions", h.ForumPermissions)
		forums.POST("/:id/members", h.AddForumMember)
		forums.DELETE("/:id/members/:userId", h.RemoveForumMember)
	}

	feedback := api.Group("/feedback")
	{
		feedback.POST("/forum", h.CreateForumFeedback)
		feedback.POST("/p2p", h.CreateP2PFeedback)
		feedback.GET("", h.ListFeedback)
		feedback.GET("/:id", h.GetFeedback)
		feedback.PUT("/:id", h.UpdateFeedback)
		feedback.DELETE("/:id", h.DeleteFeedback)
		feedback.POST("/:id/reactions", h.AddReaction)
		feedback.DELETE("/:id/reactions/:emoji", h.RemoveReaction)
		feedback.PATCH("/:id/status", h.ChangeFeedbackStatus)
	}

	tags := api.Group("/hashtags")
	{
		tags.GET("/popular", h.PopularHashtags)
		tags.GET("/trending", h.TrendingHashtags)
		tags.GET("/search", h.SearchHashtags)
		tags.GET("/suggestions", h.SuggestHashtags)
		tags.GET("/overview", h.HashtagOverview)
		tags.GET("/analysis", h.HashtagAnalysis)
		tags.GET("/:tag", h.HashtagDetail)
		tags.GET("/:tag/feedback", h.HashtagFeedback)
		tags.POST("/admin/reset-weekly", h.ResetWeekly)
		tags.POST("/admin/reset-monthly", h.ResetMonthly)
		tags.POST("/admin/deactivate-inactive", h.DeactivateInactive)
	}
}
