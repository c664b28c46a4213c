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

// GetIngredients lists the user's ingredients in reverse name order.
// With a truthy assigned_only parameter only ingredients attached to
// at least one recipe are returned.
func GetIngredients(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	query := `
		SELECT i.id, i.name
		FROM ingredients i
		WHERE i.user_id = $1`
	if parseBoolFlag(c.Query("assigned_only")) {
		query += `
		  AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.ingredient_id = i.id)`
	}
	query += `
		ORDER BY i.name DESC, i.id DESC`

	rows, err := database.DB.Query(query, userID)
	if err != nil {
		log.Printf("Error retrieving ingredients: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving ingredients"})
		return
	}
	defer rows.Close()

	ingredients := make([]models.Ingredient, 0)
	for rows.Next() {
		var ingredient models.Ingredient
		if err := rows.Scan(&ingredient.ID, &ingredient.Name); err != nil {
			log.Printf("Error scanning ingredient: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning ingredient"})
			return
		}
		ingredients = append(ingredients, ingredient)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating ingredients: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving ingredients"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredients": ingredients,
		"count":       len(ingredients),
	})
}

// UpdateIngredient renames one of the user's ingredients
func UpdateIngredient(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ingredientID, err := strconv.Atoi(c.Param("ingredient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ingredient ID"})
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ingredient name is required"})
		return
	}

	result, err := database.DB.Exec(
		`UPDATE ingredients SET name = $1 WHERE id = $2 AND user_id = $3`,
		name,
		ingredientID,
		userID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ingredient with this name already exists"})
			return
		}
		log.Printf("Error updating ingredient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating ingredient"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Error reading ingredient update result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating ingredient"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   ingredientID,
		"name": name,
	})
}

// DeleteIngredient deletes one of the user's ingredients
func DeleteIngredient(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ingredientID, err := strconv.Atoi(c.Param("ingredient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ingredient ID"})
		return
	}

	result, err := database.DB.Exec(
		`DELETE FROM ingredients WHERE id = $1 AND user_id = $2`,
		ingredientID,
		userID,
	)
	if err != nil {
		log.Printf("Error deleting ingredient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting ingredient"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Error reading ingredient delete result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting ingredient"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
