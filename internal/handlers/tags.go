package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mr-seha/recipe-app-api/internal/database"
	"github.com/mr-seha/recipe-app-api/internal/models"
)

// GetTags lists the user's tags in reverse name order. With a truthy
// assigned_only parameter only tags attached to at least one recipe
// are returned.
func GetTags(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	query := `
		SELECT t.id, t.name
		FROM tags t
		WHERE t.user_id = $1`
	if parseBoolFlag(c.Query("assigned_only")) {
		query += `
		  AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.tag_id = t.id)`
	}
	query += `
		ORDER BY t.name DESC, t.id DESC`

	rows, err := database.DB.Query(query, userID)
	if err != nil {
		log.Printf("Error retrieving tags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving tags"})
		return
	}
	defer rows.Close()

	tags := make([]models.Tag, 0)
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			log.Printf("Error scanning tag: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning tag"})
			return
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating tags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving tags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tags":  tags,
		"count": len(tags),
	})
}

// UpdateTag renames one of the user's tags
func UpdateTag(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tagID, err := strconv.Atoi(c.Param("tag_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tag name is required"})
		return
	}

	result, err := database.DB.Exec(
		`UPDATE tags SET name = $1 WHERE id = $2 AND user_id = $3`,
		name,
		tagID,
		userID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Tag with this name already exists"})
			return
		}
		log.Printf("Error updating tag: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating tag"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Error reading tag update result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating tag"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   tagID,
		"name": name,
	})
}

// DeleteTag deletes one of the user's tags
func DeleteTag(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tagID, err := strconv.Atoi(c.Param("tag_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}

	result, err := database.DB.Exec(
		`DELETE FROM tags WHERE id = $1 AND user_id = $2`,
		tagID,
		userID,
	)
	if err != nil {
		log.Printf("Error deleting tag: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting tag"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Error reading tag delete result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting tag"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
