package handlers

import (
	"database/sql"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mr-seha/recipe-app-api/internal/database"
	"github.com/mr-seha/recipe-app-api/internal/monitoring"
)

const recipeImagesDir = "recipes"

func isSupportedImageMimeType(raw string) bool {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.Index(normalized, ";"); separator >= 0 {
		normalized = strings.TrimSpace(normalized[:separator])
	}
	return strings.HasPrefix(normalized, "image/")
}

// UploadRecipeImage attaches an image to one of the user's recipes
func UploadRecipeImage(c *gin.Context) {
	startedAt := time.Now()
	var uploadedBytes int64
	uploadSuccess := false
	defer func() {
		monitoring.RecordUpload(uploadedBytes, time.Since(startedAt), uploadSuccess)
	}()

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

	var previousImage sql.NullString
	err = db.QueryRow(
		`SELECT image_path FROM recipes WHERE id = $1 AND user_id = $2`,
		recipeID,
		userID,
	).Scan(&previousImage)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
			return
		}
		log.Printf("Error checking recipe ownership: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading image"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}
	defer file.Close()

	maxUploadBytes := resolveMaxUploadSizeBytes()
	if header.Size > 0 && header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":            "Image is too large",
			"max_upload_bytes": maxUploadBytes,
		})
		return
	}

	buffer := make([]byte, 512)
	bytesRead, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading image"})
		return
	}
	if bytesRead == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is empty"})
		return
	}

	detected := mimetype.Detect(buffer[:bytesRead])
	if !isSupportedImageMimeType(detected.String()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "Unsupported image format (" + detected.String() + ")",
			"detected_mime": detected.String(),
			"original_name": header.Filename,
		})
		return
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error resetting file pointer"})
		return
	}

	uploadDir := filepath.Join(UploadsBasePath(), recipeImagesDir)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Printf("Error creating upload directory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating upload directory"})
		return
	}

	extension := detected.Extension()
	if extension == "" {
		extension = strings.ToLower(filepath.Ext(header.Filename))
	}
	storedName := uuid.New().String() + extension

	tempFile, err := os.CreateTemp(uploadDir, ".incoming-*")
	if err != nil {
		log.Printf("Error preparing upload file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error preparing upload file"})
		return
	}

	tempPath := tempFile.Name()
	defer func() {
		if tempPath != "" {
			_ = os.Remove(tempPath)
		}
	}()

	fileSize, err := io.Copy(tempFile, file)
	if err != nil {
		_ = tempFile.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading uploaded image"})
		return
	}
	if closeErr := tempFile.Close(); closeErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finalizing uploaded image"})
		return
	}
	uploadedBytes = fileSize

	if fileSize <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is empty"})
		return
	}
	if fileSize > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":            "Image is too large",
			"max_upload_bytes": maxUploadBytes,
		})
		return
	}

	finalPath := filepath.Join(uploadDir, storedName)
	if err := os.Rename(tempPath, finalPath); err != nil {
		log.Printf("Error storing uploaded image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing uploaded image"})
		return
	}
	tempPath = ""

	imagePath := recipeImagesDir + "/" + storedName
	_, err = db.Exec(
		`UPDATE recipes SET image_path = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND user_id = $3`,
		imagePath,
		recipeID,
		userID,
	)
	if err != nil {
		log.Printf("Error saving recipe image path: %v", err)
		_ = os.Remove(finalPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving recipe image"})
		return
	}

	// Replaced images are unreferenced now; best-effort cleanup.
	if previousImage.Valid && previousImage.String != "" {
		if removeErr := os.Remove(filepath.Join(UploadsBasePath(), filepath.FromSlash(previousImage.String))); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Printf("Error removing previous recipe image: %v", removeErr)
		}
	}

	uploadSuccess = true
	c.JSON(http.StatusOK, gin.H{
		"id":    recipeID,
		"image": "/uploads/" + imagePath,
	})
}
