package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"algo-asset-api/config"
	"algo-asset-api/middleware"
	"algo-asset-api/models"
	"algo-asset-api/services"
)

// POST /api/v1/algorithms — submit the full wizard payload
func SubmitAlgorithm(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}

	var in services.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alg, err := services.SubmitAlgorithm(config.DB, user, &in)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"algorithm_id": alg.AlgorithmID,
		"asset_code":   alg.AssetCode,
		"status":       alg.Status,
	})
}

// POST /api/v1/algorithms/:id/resubmit — resubmit a kicked-back algorithm,
// optionally with revised form data
func ResubmitAlgorithm(c *gin.Context) {
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

	var in *services.SubmitInput
	if c.Request.ContentLength > 0 {
		in = &services.SubmitInput{}
		if err := c.ShouldBindJSON(in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	if err := services.ResubmitAlgorithm(config.DB, id, user, in); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": models.StatusPendingReview})
}

/* ==========================
   Drafts (owned by the editing UI, no workflow state)
   ========================== */

// GET /api/v1/drafts
func GetDrafts(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}

	var drafts []models.AlgorithmDraft
	if err := config.DB.Where("owner_id = ?", user.UserID).
		Order("update_at DESC").
		Find(&drafts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch drafts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": drafts, "total": len(drafts)})
}

// GET /api/v1/drafts/:id
func GetDraft(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid draft ID"})
		return
	}

	var draft models.AlgorithmDraft
	if err := config.DB.Where("draft_id = ? AND owner_id = ?", id, user.UserID).
		First(&draft).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// POST /api/v1/drafts
func CreateDraft(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}

	var draft models.AlgorithmDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	now := time.Now()
	draft.DraftID = 0
	draft.OwnerID = user.UserID
	draft.CreateAt = now
	draft.UpdateAt = now

	if err := config.DB.Create(&draft).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save draft"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "draft_id": draft.DraftID})
}

// PUT /api/v1/drafts/:id
func UpdateDraft(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid draft ID"})
		return
	}

	var existing models.AlgorithmDraft
	if err := config.DB.Where("draft_id = ? AND owner_id = ?", id, user.UserID).
		First(&existing).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
		return
	}

	var draft models.AlgorithmDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	draft.DraftID = existing.DraftID
	draft.OwnerID = existing.OwnerID
	draft.CreateAt = existing.CreateAt
	draft.UpdateAt = time.Now()

	if err := config.DB.Save(&draft).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /api/v1/drafts/:id
func DeleteDraft(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return
	}
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid draft ID"})
		return
	}

	res := config.DB.Where("draft_id = ? AND owner_id = ?", id, user.UserID).
		Delete(&models.AlgorithmDraft{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete draft"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
