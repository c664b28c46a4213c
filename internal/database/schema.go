package database

import (
	"fmt"
	"log"
)

// CreateTables creates all required tables in the database
func CreateTables() {
	createUsersTable()
	createRecipesTable()
	createTagsTable()
	createIngredientsTable()
	createRecipeTagsTable()
	createRecipeIngredientsTable()
}

// createUsersTable creates the users table
func createUsersTable() {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		password VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create users table:", err)
	}

	fmt.Println("Users table created successfully")
}

func createRecipesTable() {
	query := `
	CREATE TABLE IF NOT EXISTS recipes (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(5,2) NOT NULL,
		time_minutes INTEGER NOT NULL,
		link VARCHAR(255) NOT NULL DEFAULT '',
		image_path VARCHAR(500),
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create recipes table:", err)
	}

	ensureRecipesSchema()
	fmt.Println("Recipes table created successfully")
}

func createTagsTable() {
	query := `
	CREATE TABLE IF NOT EXISTS tags (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		UNIQUE(user_id, name)
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create tags table:", err)
	}

	fmt.Println("Tags table created successfully")
}

func createIngredientsTable() {
	query := `
	CREATE TABLE IF NOT EXISTS ingredients (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		UNIQUE(user_id, name)
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create ingredients table:", err)
	}

	fmt.Println("Ingredients table created successfully")
}

func createRecipeTagsTable() {
	query := `
	CREATE TABLE IF NOT EXISTS recipe_tags (
		id SERIAL PRIMARY KEY,
		recipe_id INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		UNIQUE(recipe_id, tag_id)
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create recipe_tags table:", err)
	}

	ensureRecipeTagsSchema()
	fmt.Println("Recipe_tags table created successfully")
}

func createRecipeIngredientsTable() {
	query := `
	CREATE TABLE IF NOT EXISTS recipe_ingredients (
		id SERIAL PRIMARY KEY,
		recipe_id INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		ingredient_id INTEGER NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
		UNIQUE(recipe_id, ingredient_id)
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create recipe_ingredients table:", err)
	}

	ensureRecipeIngredientsSchema()
	fmt.Println("Recipe_ingredients table created successfully")
}

func ensureRecipesSchema() {
	if _, err := DB.Exec(`ALTER TABLE recipes ADD COLUMN IF NOT EXISTS image_path VARCHAR(500)`); err != nil {
		log.Fatal("Failed to ensure recipes.image_path column:", err)
	}

	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS recipes_user_id_idx ON recipes(user_id, id DESC)`); err != nil {
		log.Fatal("Failed to ensure recipes user/id index:", err)
	}
}

func ensureRecipeTagsSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS recipe_tags_tag_idx ON recipe_tags(tag_id)`); err != nil {
		log.Fatal("Failed to ensure recipe_tags tag index:", err)
	}
}

func ensureRecipeIngredientsSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS recipe_ingredients_ingredient_idx ON recipe_ingredients(ingredient_id)`); err != nil {
		log.Fatal("Failed to ensure recipe_ingredients ingredient index:", err)
	}
}
