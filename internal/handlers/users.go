package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mr-seha/recipe-app-api/internal/database"
	"github.com/mr-seha/recipe-app-api/internal/utils"
)

const minPasswordLength = 5

// ErrEmailRequired is returned by the user factory when called without
// an email. Handlers validate input first, so hitting it means a
// programming error rather than bad client data.
var ErrEmailRequired = errors.New("email is required")

func currentUserID(c *gin.Context) (int, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}

	userID, ok := value.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return 0, false
	}

	return userID, true
}

// normalizeEmail lowercases the domain part of an email address.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// CreateUser creates a user with a normalized email and hashed password
// and returns the new user ID.
func CreateUser(db *sql.DB, email, name, password string) (int, error) {
	if strings.TrimSpace(email) == "" {
		return 0, ErrEmailRequired
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return 0, err
	}

	var id int
	err = db.QueryRow(
		`INSERT INTO users (email, name, password) VALUES ($1, $2, $3) RETURNING id`,
		normalizeEmail(email),
		name,
		hashedPassword,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// CreateSuperuser creates a user with staff and superuser flags set.
func CreateSuperuser(db *sql.DB, email, password string) (int, error) {
	id, err := CreateUser(db, email, "", password)
	if err != nil {
		return 0, err
	}

	_, err = db.Exec(
		`UPDATE users SET is_staff = TRUE, is_superuser = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// Register handles user creation
func Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}
	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 5 characters"})
		return
	}

	userID, err := CreateUser(database.DB, email, strings.TrimSpace(req.Name), req.Password)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
			return
		}
		log.Printf("Error creating user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    userID,
		"email": normalizeEmail(email),
		"name":  strings.TrimSpace(req.Name),
	})
}

// CreateToken exchanges email and password for a bearer token
func CreateToken(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	var (
		userID       int
		passwordHash string
		isActive     bool
	)
	err := database.DB.QueryRow(
		`SELECT id, password, is_active FROM users WHERE email = $1`,
		normalizeEmail(req.Email),
	).Scan(&userID, &passwordHash, &isActive)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("Error querying user for token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating token"})
		return
	}

	// Credential failures are validation errors, not 401: the client
	// holds no token yet.
	if err == sql.ErrNoRows || !isActive || !utils.CheckPasswordHash(req.Password, passwordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to authenticate with provided credentials"})
		return
	}

	token, err := utils.GenerateToken(userID)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GetCurrentUser returns the authenticated user's profile
func GetCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var email, name string
	err := database.DB.QueryRow(
		`SELECT email, name FROM users WHERE id = $1`,
		userID,
	).Scan(&email, &name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Error loading user profile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    userID,
		"email": email,
		"name":  name,
	})
}

// UpdateCurrentUser partially updates the authenticated user's profile
func UpdateCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var passwordHash *string
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 5 characters"})
			return
		}
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			log.Printf("Error hashing password: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating profile"})
			return
		}
		passwordHash = &hashed
	}

	var email, name string
	err := database.DB.QueryRow(
		`UPDATE users
		 SET
			name = COALESCE($1, name),
			password = COALESCE($2, password),
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3
		 RETURNING email, name`,
		req.Name,
		passwordHash,
		userID,
	).Scan(&email, &name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Error updating user profile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    userID,
		"email": email,
		"name":  name,
	})
}
