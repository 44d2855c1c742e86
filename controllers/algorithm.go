package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"algo-asset-api/config"
	"algo-asset-api/models"
)

func parseUintParam(q string) (uint, bool) {
	n, err := strconv.ParseUint(q, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func parsePOS(q string, def int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func safeSortAlgorithms(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "popular":
		return "popularity DESC"
	case "rating":
		return "rating DESC"
	default: // latest
		return "update_at DESC"
	}
}

// GET /api/v1/algorithms?search=&category=&sub_category=&tag=&status=&sort=&page=&page_size=
func GetAlgorithms(c *gin.Context) {
	db := config.DB

	page := parsePOS(c.Query("page"), 1)
	size := parsePOS(c.Query("page_size"), 20)
	offset := (page - 1) * size

	q := db.Model(&models.Algorithm{}).Where("delete_at IS NULL")

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if sub := c.Query("sub_category"); sub != "" {
		q = q.Where("sub_category = ?", sub)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		// tags is a JSON array column; a quoted LIKE match is exact enough
		// for tag tokens without commas or quotes.
		q = q.Where(`tags LIKE ?`, `%"`+tag+`"%`)
	}
	if owner := c.Query("owner_id"); owner != "" {
		if id, ok := parseUintParam(owner); ok {
			q = q.Where("owner_id = ?", id)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch algorithms"})
		return
	}

	var algorithms []models.Algorithm
	if err := q.Order(safeSortAlgorithms(c.Query("sort"))).
		Limit(size).
		Offset(offset).
		Preload("Owner").
		Find(&algorithms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch algorithms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": algorithms,
		"meta": gin.H{
			"page":      page,
			"page_size": size,
			"total":     total,
		},
	})
}

// GET /api/v1/algorithms/:id
func GetAlgorithm(c *gin.Context) {
	id, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid algorithm ID"})
		return
	}

	var alg models.Algorithm
	err := config.DB.Where("algorithm_id = ? AND delete_at IS NULL", id).
		Preload("Owner").
		Preload("ReviewRecords").
		First(&alg).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Algorithm not found"})
		return
	}

	// Only the active assignment belongs on the detail view.
	var assignment models.ReviewAssignment
	if err := config.DB.Where("algorithm_id = ? AND status = ?", id, models.AssignmentActive).
		First(&assignment).Error; err == nil {
		alg.Assignment = &assignment
	}

	var history []models.AlgorithmStatusHistory
	config.DB.Where("algorithm_id = ?", id).
		Order("created_at ASC").
		Find(&history)

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"algorithm":      alg,
		"status_history": history,
	})
}
