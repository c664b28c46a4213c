package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/mr-seha/recipe-app-api/internal/database"
	"github.com/mr-seha/recipe-app-api/internal/models"
)

// Prices are fixed-point with two fractional digits and at most three
// integer digits.
const maxPrice = 1000

type attrPayload struct {
	Name string `json:"name"`
}

type recipePayload struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Price       *float64       `json:"price"`
	TimeMinutes *int           `json:"time_minutes"`
	Link        *string        `json:"link"`
	Tags        *[]attrPayload `json:"tags"`
	Ingredients *[]attrPayload `json:"ingredients"`
}

func validatePrice(price float64) error {
	if price < 0 {
		return errors.New("price must not be negative")
	}
	if price >= maxPrice {
		return errors.New("price must have no more than 3 digits before the decimal point")
	}
	if math.Abs(price*100-math.Round(price*100)) > 1e-9 {
		return errors.New("price must have no more than 2 decimal places")
	}
	return nil
}

func validateAttrNames(items []attrPayload, kind string) error {
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%s name must not be empty", kind)
		}
	}
	return nil
}

// getOrCreateAttr returns the id of the tag/ingredient owned by the
// user with the given name, inserting it first when absent. The
// conditional insert relies on the (user_id, name) unique index, so a
// concurrent request racing on the same name cannot double-create.
func getOrCreateAttr(tx *sql.Tx, table string, userID int, name string) (int, error) {
	var id int
	err := tx.QueryRow(
		`INSERT INTO `+table+` (user_id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, name) DO NOTHING
		 RETURNING id`,
		userID,
		name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	// The row already existed; fetch it.
	err = tx.QueryRow(
		`SELECT id FROM `+table+` WHERE user_id = $1 AND name = $2`,
		userID,
		name,
	).Scan(&id)
	return id, err
}

// replaceRecipeAttrs clears the recipe's membership edges for one
// relation and rebuilds them from the supplied payload. An empty
// payload therefore clears the relation.
func replaceRecipeAttrs(tx *sql.Tx, attrTable, linkTable, linkColumn string, recipeID, userID int, items []attrPayload) error {
	if _, err := tx.Exec(`DELETE FROM `+linkTable+` WHERE recipe_id = $1`, recipeID); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if _, duplicate := seen[name]; duplicate {
			continue
		}
		seen[name] = struct{}{}

		attrID, err := getOrCreateAttr(tx, attrTable, userID, name)
		if err != nil {
			return err
		}

		_, err = tx.Exec(
			`INSERT INTO `+linkTable+` (recipe_id, `+linkColumn+`)
			 VALUES ($1, $2)
			 ON CONFLICT (recipe_id, `+linkColumn+`) DO NOTHING`,
			recipeID,
			attrID,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func loadTagsForRecipes(db *sql.DB, recipeIDs []int64) (map[int][]models.Tag, error) {
	result := make(map[int][]models.Tag)
	if len(recipeIDs) == 0 {
		return result, nil
	}

	rows, err := db.Query(
		`SELECT rt.recipe_id, t.id, t.name
		 FROM tags t
		 JOIN recipe_tags rt ON rt.tag_id = t.id
		 WHERE rt.recipe_id = ANY($1)
		 ORDER BY t.id ASC`,
		pq.Array(recipeIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int
		var tag models.Tag
		if err := rows.Scan(&recipeID, &tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		result[recipeID] = append(result[recipeID], tag)
	}

	return result, rows.Err()
}

func loadIngredientsForRecipes(db *sql.DB, recipeIDs []int64) (map[int][]models.Ingredient, error) {
	result := make(map[int][]models.Ingredient)
	if len(recipeIDs) == 0 {
		return result, nil
	}

	rows, err := db.Query(
		`SELECT ri.recipe_id, i.id, i.name
		 FROM ingredients i
		 JOIN recipe_ingredients ri ON ri.ingredient_id = i.id
		 WHERE ri.recipe_id = ANY($1)
		 ORDER BY i.id ASC`,
		pq.Array(recipeIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int
		var ingredient models.Ingredient
		if err := rows.Scan(&recipeID, &ingredient.ID, &ingredient.Name); err != nil {
			return nil, err
		}
		result[recipeID] = append(result[recipeID], ingredient)
	}

	return result, rows.Err()
}

// loadRecipe fetches one recipe scoped to the user, with its tag and
// ingredient sets attached.
func loadRecipe(db *sql.DB, recipeID, userID int) (models.Recipe, error) {
	var recipe models.Recipe
	var imagePath sql.NullString

	err := db.QueryRow(
		`SELECT id, title, description, price, time_minutes, link, image_path
		 FROM recipes
		 WHERE id = $1 AND user_id = $2`,
		recipeID,
		userID,
	).Scan(
		&recipe.ID,
		&recipe.Title,
		&recipe.Description,
		&recipe.Price,
		&recipe.TimeMinutes,
		&recipe.Link,
		&imagePath,
	)
	if err != nil {
		return recipe, err
	}

	if imagePath.Valid {
		recipe.ImagePath = &imagePath.String
	}
	recipe.UserID = userID

	tagsByRecipe, err := loadTagsForRecipes(db, []int64{int64(recipe.ID)})
	if err != nil {
		return recipe, err
	}
	ingredientsByRecipe, err := loadIngredientsForRecipes(db, []int64{int64(recipe.ID)})
	if err != nil {
		return recipe, err
	}

	recipe.Tags = tagsByRecipe[recipe.ID]
	recipe.Ingredients = ingredientsByRecipe[recipe.ID]
	return recipe, nil
}

func attrList[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func recipeImageURL(recipe models.Recipe) *string {
	if recipe.ImagePath == nil {
		return nil
	}
	url := "/uploads/" + *recipe.ImagePath
	return &url
}

func recipeListItem(recipe models.Recipe) gin.H {
	return gin.H{
		"id":           recipe.ID,
		"title":        recipe.Title,
		"time_minutes": recipe.TimeMinutes,
		"price":        recipe.Price,
		"link":         recipe.Link,
		"image":        recipeImageURL(recipe),
		"tags":         attrList(recipe.Tags),
		"ingredients":  attrList(recipe.Ingredients),
	}
}

func recipeDetail(recipe models.Recipe) gin.H {
	item := recipeListItem(recipe)
	item["description"] = recipe.Description
	return item
}

// GetRecipes lists the user's recipes, optionally filtered by tag and
// ingredient identifiers.
func GetRecipes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tagIDs, err := parseIDList(c.Query("tags"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tags filter must be a comma-separated list of integers"})
		return
	}
	ingredientIDs, err := parseIDList(c.Query("ingredients"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ingredients filter must be a comma-separated list of integers"})
		return
	}

	db := database.DB
	query := `
		SELECT r.id, r.title, r.description, r.price, r.time_minutes, r.link, r.image_path
		FROM recipes r
		WHERE r.user_id = $1`
	args := []interface{}{userID}

	// A recipe matches a filter when it has an edge to any of the
	// listed ids; both filters must hold when both are given. EXISTS
	// keeps the result free of join duplicates.
	if len(tagIDs) > 0 {
		args = append(args, pq.Array(tagIDs))
		query += fmt.Sprintf(`
		  AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = r.id AND rt.tag_id = ANY($%d))`, len(args))
	}
	if len(ingredientIDs) > 0 {
		args = append(args, pq.Array(ingredientIDs))
		query += fmt.Sprintf(`
		  AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND ri.ingredient_id = ANY($%d))`, len(args))
	}
	query += `
		ORDER BY r.id DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		log.Printf("Error retrieving recipes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving recipes"})
		return
	}
	defer rows.Close()

	recipes := make([]models.Recipe, 0)
	recipeIDs := make([]int64, 0)
	for rows.Next() {
		var recipe models.Recipe
		var imagePath sql.NullString

		err := rows.Scan(
			&recipe.ID,
			&recipe.Title,
			&recipe.Description,
			&recipe.Price,
			&recipe.TimeMinutes,
			&recipe.Link,
			&imagePath,
		)
		if err != nil {
			log.Printf("Error scanning recipe: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning recipe"})
			return
		}

		if imagePath.Valid {
			recipe.ImagePath = &imagePath.String
		}
		recipe.UserID = userID
		recipes = append(recipes, recipe)
		recipeIDs = append(recipeIDs, int64(recipe.ID))
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating recipes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving recipes"})
		return
	}

	tagsByRecipe, err := loadTagsForRecipes(db, recipeIDs)
	if err != nil {
		log.Printf("Error loading recipe tags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving recipes"})
		return
	}
	ingredientsByRecipe, err := loadIngredientsForRecipes(db, recipeIDs)
	if err != nil {
		log.Printf("Error loading recipe ingredients: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving recipes"})
		return
	}

	items := make([]gin.H, 0, len(recipes))
	for _, recipe := range recipes {
		recipe.Tags = tagsByRecipe[recipe.ID]
		recipe.Ingredients = ingredientsByRecipe[recipe.ID]
		items = append(items, recipeListItem(recipe))
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": items,
		"count":   len(items),
	})
}

// CreateRecipe creates a recipe with optional nested tags/ingredients
func CreateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req recipePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if req.Price == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price is required"})
		return
	}
	if err := validatePrice(*req.Price); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TimeMinutes == nil || *req.TimeMinutes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Time in minutes is required"})
		return
	}
	if req.Tags != nil {
		if err := validateAttrNames(*req.Tags, "Tag"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Ingredients != nil {
		if err := validateAttrNames(*req.Ingredients, "Ingredient"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	link := ""
	if req.Link != nil {
		link = *req.Link
	}

	db := database.DB
	tx, err := db.Begin()
	if err != nil {
		log.Printf("Error starting recipe transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating recipe"})
		return
	}
	defer tx.Rollback()

	var recipeID int
	err = tx.QueryRow(
		`INSERT INTO recipes (title, description, price, time_minutes, link, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		strings.TrimSpace(*req.Title),
		description,
		*req.Price,
		*req.TimeMinutes,
		link,
		userID,
	).Scan(&recipeID)
	if err != nil {
		log.Printf("Error creating recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating recipe"})
		return
	}

	if req.Tags != nil {
		if err := replaceRecipeAttrs(tx, "tags", "recipe_tags", "tag_id", recipeID, userID, *req.Tags); err != nil {
			log.Printf("Error attaching recipe tags: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating recipe"})
			return
		}
	}
	if req.Ingredients != nil {
		if err := replaceRecipeAttrs(tx, "ingredients", "recipe_ingredients", "ingredient_id", recipeID, userID, *req.Ingredients); err != nil {
			log.Printf("Error attaching recipe ingredients: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating recipe"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Error committing recipe transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating recipe"})
		return
	}

	recipe, err := loadRecipe(db, recipeID, userID)
	if err != nil {
		log.Printf("Error loading created recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving recipe"})
		return
	}

	c.JSON(http.StatusCreated, recipeDetail(recipe))
}

// GetRecipe returns one of the user's recipes in detail shape
func GetRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	recipeID, err := strconv.Atoi(c.Param("recipe_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	recipe, err := loadRecipe(database.DB, recipeID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
			return
		}
		log.Printf("Error retrieving recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving recipe"})
		return
	}

	c.JSON(http.StatusOK, recipeDetail(recipe))
}

// ReplaceRecipe fully replaces a recipe (PUT)
func ReplaceRecipe(c *gin.Context) {
	updateRecipe(c, false)
}

// PatchRecipe partially updates a recipe (PATCH)
func PatchRecipe(c *gin.Context) {
	updateRecipe(c, true)
}

func updateRecipe(c *gin.Context, partial bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	recipeID, err := strconv.Atoi(c.Param("recipe_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	db := database.DB

	// Scoped existence check: a foreign recipe looks exactly like a
	// missing one.
	var existingID int
	err = db.QueryRow(
		`SELECT id FROM recipes WHERE id = $1 AND user_id = $2`,
		recipeID,
		userID,
	).Scan(&existingID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
			return
		}
		log.Printf("Error checking recipe ownership: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating recipe"})
		return
	}

	var req recipePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !partial {
		if req.Title == nil || req.Price == nil || req.TimeMinutes == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title, price and time_minutes are required"})
			return
		}
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title must not be empty"})
		return
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.TimeMinutes != nil && *req.TimeMinutes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Time in minutes must not be negative"})
		return
	}
	if req.Tags != nil {
		if err := validateAttrNames(*req.Tags, "Tag"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Ingredients != nil {
		if err := validateAttrNames(*req.Ingredients, "Ingredient"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("Error starting recipe transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating recipe"})
		return
	}
	defer tx.Rollback()

	if partial {
		// Omitted fields keep their stored values.
		_, err = tx.Exec(
			`UPDATE recipes
			 SET
				title = COALESCE($1, title),
				description = COALESCE($2, description),
				price = COALESCE($3, price),
				time_minutes = COALESCE($4, time_minutes),
				link = COALESCE($5, link),
				updated_at = CURRENT_TIMESTAMP
			 WHERE id = $6 AND user_id = $7`,
			req.Title,
			req.Description,
			req.Price,
			req.TimeMinutes,
			req.Link,
			recipeID,
			userID,
		)
	} else {
		description := ""
		if req.Description != nil {
			description = *req.Description
		}
		link := ""
		if req.Link != nil {
			link = *req.Link
		}
		_, err = tx.Exec(
			`UPDATE recipes
			 SET
				title = $1,
				description = $2,
				price = $3,
				time_minutes = $4,
				link = $5,
				updated_at = CURRENT_TIMESTAMP
			 WHERE id = $6 AND user_id = $7`,
			strings.TrimSpace(*req.Title),
			description,
			*req.Price,
			*req.TimeMinutes,
			link,
			recipeID,
			userID,
		)
	}
	if err != nil {
		log.Printf("Error updating recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating recipe"})
		return
	}

	// A supplied list replaces the whole relation; on PUT an absent
	// list means an empty one.
	tags := req.Tags
	ingredients := req.Ingredients
	if !partial {
		if tags == nil {
			tags = &[]attrPayload{}
		}
		if ingredients == nil {
			ingredients = &[]attrPayload{}
		}
	}
	if tags != nil {
		if err := replaceRecipeAttrs(tx, "tags", "recipe_tags", "tag_id", recipeID, userID, *tags); err != nil {
			log.Printf("Error replacing recipe tags: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating recipe"})
			return
		}
	}
	if ingredients != nil {
		if err := replaceRecipeAttrs(tx, "ingredients", "recipe_ingredients", "ingredient_id", recipeID, userID, *ingredients); err != nil {
			log.Printf("Error replacing recipe ingredients: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating recipe"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Error committing recipe transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating recipe"})
		return
	}

	recipe, err := loadRecipe(db, recipeID, userID)
	if err != nil {
		log.Printf("Error loading updated recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving recipe"})
		return
	}

	c.JSON(http.StatusOK, recipeDetail(recipe))
}

// DeleteRecipe deletes one of the user's recipes
func DeleteRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	recipeID, err := strconv.Atoi(c.Param("recipe_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	db := database.DB

	var imagePath sql.NullString
	err = db.QueryRow(
		`SELECT image_path FROM recipes WHERE id = $1 AND user_id = $2`,
		recipeID,
		userID,
	).Scan(&imagePath)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
			return
		}
		log.Printf("Error checking recipe ownership: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting recipe"})
		return
	}

	// Membership edges cascade; tags and ingredients themselves stay.
	_, err = db.Exec(`DELETE FROM recipes WHERE id = $1 AND user_id = $2`, recipeID, userID)
	if err != nil {
		log.Printf("Error deleting recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting recipe"})
		return
	}

	if imagePath.Valid && imagePath.String != "" {
		if removeErr := os.Remove(filepath.Join(UploadsBasePath(), filepath.FromSlash(imagePath.String))); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Printf("Error removing recipe image file: %v", removeErr)
		}
	}

	c.Status(http.StatusNoContent)
}
