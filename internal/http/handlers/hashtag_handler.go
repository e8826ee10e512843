// Hashtag HTTP handlers.
//
// Read endpoints serve rankings, search, suggestions and per-tag detail from
// the statistics store. The admin endpoints trigger the same maintenance
// operations the scheduler runs.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/utils"
)

// PopularHashtags godoc
// @ID          popularHashtags
// @Summary     Most used hashtags
// @Tags        Hashtags
// @Produce     json
// @Param       limit  query     int  false  "Max results (1-100)"  default(10)
// @Success     200    {object}  handlers.HashtagList
// @Failure     500    {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/popular [get]
func (h *Handlers) PopularHashtags(c *gin.Context) {
	items, err := h.hashtags.Popular(c.Request.Context(), utils.AtoiDefault(c.Query("limit"), 0))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, HashtagList{Hashtags: hashtagViews(items)})
}

// TrendingHashtags godoc
// @ID          trendingHashtags
// @Summary     Hashtags trending this week
// @Tags        Hashtags
// @Produce     json
// @Param       limit  query     int  false  "Max results (1-100)"  default(10)
// @Success     200    {object}  handlers.HashtagList
// @Failure     500    {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/trending [get]
func (h *Handlers) TrendingHashtags(c *gin.Context) {
	items, err := h.hashtags.Trending(c.Request.Context(), utils.AtoiDefault(c.Query("limit"), 0))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, HashtagList{Hashtags: hashtagViews(items)})
}

// SearchHashtags godoc
// @ID          searchHashtags
// @Summary     Search hashtags
// @Description Case-insensitive substring match over active tags, most used first.
// @Tags        Hashtags
// @Produce     json
// @Param       q      query     string  true   "Search text (leading # ignored)"
// @Param       limit  query     int     false  "Max results (1-100)"  default(10)
// @Success     200    {object}  handlers.HashtagList
// @Failure     500    {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/search [get]
func (h *Handlers) SearchHashtags(c *gin.Context) {
	items, err := h.hashtags.Search(c.Request.Context(), c.Query("q"), utils.AtoiDefault(c.Query("limit"), 0))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, HashtagList{Hashtags: hashtagViews(items)})
}

// SuggestHashtags godoc
// @ID          suggestHashtags
// @Summary     Suggest hashtags for text
// @Tags        Hashtags
// @Produce     json
// @Param       text   query     string  true   "Free text"
// @Param       limit  query     int     false  "Max suggestions (1-100)"  default(10)
// @Success     200    {object}  handlers.SuggestionList
// @Failure     500    {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/suggestions [get]
func (h *Handlers) SuggestHashtags(c *gin.Context) {
	items, err := h.hashtags.Suggest(c.Request.Context(), c.Query("text"), utils.AtoiDefault(c.Query("limit"), 0))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, SuggestionList{Suggestions: items})
}

// HashtagOverview godoc
// @ID          hashtagOverview
// @Summary     Hashtag statistics overview
// @Tags        Hashtags
// @Produce     json
// @Success     200  {object}  handlers.HashtagOverviewResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/overview [get]
func (h *Handlers) HashtagOverview(c *gin.Context) {
	o, err := h.hashtags.Overview(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, HashtagOverviewResponse{
		Totals:       o.Totals,
		WeeklyGrowth: o.WeeklyGrowth,
		TopPopular:   hashtagViews(o.TopPopular),
		TopTrending:  hashtagViews(o.TopTrending),
	})
}

// HashtagAnalysis godoc
// @ID          hashtagAnalysis
// @Summary     Hashtag usage over a trailing window
// @Tags        Hashtags
// @Produce     json
// @Param       days  query     int  false  "Window in days (1-365)"  default(30)
// @Success     200   {object}  handlers.HashtagAnalysisResponse
// @Failure     500   {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/analysis [get]
func (h *Handlers) HashtagAnalysis(c *gin.Context) {
	a, err := h.hashtags.Analysis(c.Request.Context(), utils.AtoiDefault(c.Query("days"), 0))
	if err != nil {
		writeError(c, err)
		return
	}
	top := a.TopTags
	if top == nil {
		top = []domain.TagCount{}
	}
	ok(c, http.StatusOK, HashtagAnalysisResponse{
		Days:      a.Days,
		Since:     a.Since,
		TotalUses: a.TotalUses,
		NewTags:   a.NewTags,
		TopTags:   top,
	})
}

// HashtagDetail godoc
// @ID          hashtagDetail
// @Summary     Hashtag detail
// @Description Statistics and classification of a tag with its five most recent feedback records visible to the caller.
// @Tags        Hashtags
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller user ID"
// @Param       tag        path    string  true   "Hashtag (with or without #)"
// @Success     200  {object}  handlers.HashtagDetailResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid tag"
// @Failure     404  {object}  handlers.ErrorResponse  "Hashtag not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/{tag} [get]
func (h *Handlers) HashtagDetail(c *gin.Context) {
	d, err := h.hashtags.Detail(c.Request.Context(), actorID(c), c.Param("tag"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, HashtagDetailResponse{
		Hashtag:       hashtagView(d.Stats),
		Recent:        feedbackViews(d.Recent),
		FeedbackCount: d.FeedbackCount,
	})
}

// HashtagFeedback godoc
// @ID          hashtagFeedback
// @Summary     Feedback carrying a hashtag
// @Tags        Hashtags
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller user ID"
// @Param       tag        path    string  true   "Hashtag (with or without #)"
// @Param       page       query   int     false  "Page (1-based)"  default(1)
// @Param       page_size  query   int     false  "Items per page"  default(20)
// @Success     200  {object}  handlers.FeedbackPage
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid tag"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/{tag}/feedback [get]
func (h *Handlers) HashtagFeedback(c *gin.Context) {
	page, pageSize := utils.Page(c.Query("page"), c.Query("page_size"))
	items, total, err := h.feedback.ByHashtag(c.Request.Context(), actorID(c), c.Param("tag"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, FeedbackPage{
		Feedback:   feedbackViews(items),
		Pagination: paginate(page, pageSize, total),
	})
}

// ResetWeekly godoc
// @ID          resetWeeklyHashtags
// @Summary     Reset weekly hashtag counters
// @Tags        Hashtags
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller user ID (admin)"
// @Success     200  {object}  handlers.MaintenanceResult
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not an admin"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/admin/reset-weekly [post]
func (h *Handlers) ResetWeekly(c *gin.Context) {
	h.maintain(c, "reset_weekly", h.hashtags.ResetWeekly)
}

// ResetMonthly godoc
// @ID          resetMonthlyHashtags
// @Summary     Reset monthly hashtag counters
// @Tags        Hashtags
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller user ID (admin)"
// @Success     200  {object}  handlers.MaintenanceResult
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not an admin"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/admin/reset-monthly [post]
func (h *Handlers) ResetMonthly(c *gin.Context) {
	h.maintain(c, "reset_monthly", h.hashtags.ResetMonthly)
}

// DeactivateInactive godoc
// @ID          deactivateInactiveHashtags
// @Summary     Deactivate unused hashtags
// @Description Flags tags unused for more than `days` days (server default when omitted) as inactive.
// @Tags        Hashtags
// @Produce     json
// @Param       X-User-ID  header  string  true   "Caller user ID (admin)"
// @Param       days       query   int     false  "Inactivity threshold in days"
// @Success     200  {object}  handlers.MaintenanceResult
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not an admin"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /hashtags/admin/deactivate-inactive [post]
func (h *Handlers) DeactivateInactive(c *gin.Context) {
	days := utils.AtoiDefault(c.Query("days"), 0)
	h.maintain(c, "deactivate_inactive", func(ctx context.Context) (int64, error) {
		return h.hashtags.DeactivateInactive(ctx, days)
	})
}

func (h *Handlers) maintain(c *gin.Context, op string, run func(context.Context) (int64, error)) {
	ctx := c.Request.Context()
	if err := h.hashtags.RequireAdmin(ctx, actorID(c)); err != nil {
		writeError(c, err)
		return
	}
	n, err := run(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, MaintenanceResult{Operation: op, Affected: n})
}
