package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"algo-asset-api/config"
	"algo-asset-api/middleware"
	"algo-asset-api/services"
)

// respondWorkflowError maps workflow service errors to HTTP responses.
func respondWorkflowError(c *gin.Context, err error) {
	var invalid *services.InvalidTransitionError
	var validation *services.ValidationError

	switch {
	case errors.Is(err, services.ErrAlgorithmNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"error":  err.Error(),
			"status": invalid.Status,
			"event":  invalid.Event,
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "issues": validation.Issues})
	case errors.Is(err, services.ErrNoReviewersSelected),
		errors.Is(err, services.ErrReviewerNotAssigned),
		errors.Is(err, services.ErrMissingComments):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// POST /api/v1/algorithms/:id/assign-reviewers
func AssignReviewers(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid algorithm ID"})
		return
	}

	var in services.AssignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := services.AssignReviewers(config.DB, id, user, &in); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reviewers assigned"})
}

// POST /api/v1/algorithms/:id/reviews
func SubmitReview(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid algorithm ID"})
		return
	}

	var in services.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := services.SubmitReview(config.DB, id, user, &in); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Review recorded"})
}

// POST /api/v1/algorithms/:id/confirm
func ConfirmResult(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid algorithm ID"})
		return
	}

	var req struct {
		Approved *bool `json:"approved" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := services.ConfirmResult(config.DB, id, user, *req.Approved); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Result confirmed"})
}

// POST /api/v1/algorithms/:id/handoff
func HandoffAlgorithm(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid algorithm ID"})
		return
	}

	if err := services.HandoffAlgorithm(config.DB, id, user); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Hand-off completed"})
}

// POST /api/v1/algorithms/:id/deprecate
func DeprecateAlgorithm(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid algorithm ID"})
		return
	}

	if err := services.DeprecateAlgorithm(config.DB, id, user); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Algorithm deprecated"})
}

// GET /api/v1/reviews/tasks
func GetReviewTasks(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}

	records, err := services.GetUserReviewTasks(config.DB, user.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch review tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records, "total": len(records)})
}

// GET /api/v1/reviews/completed
func GetCompletedReviews(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}

	records, err := services.GetUserCompletedReviews(config.DB, user.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch completed reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records, "total": len(records)})
}
