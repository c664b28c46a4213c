package models

import (
	"time"
)

type Recipe struct {
	ID          int          `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Price       float64      `json:"price" db:"price"`
	TimeMinutes int          `json:"time_minutes" db:"time_minutes"`
	Link        string       `json:"link" db:"link"`
	ImagePath   *string      `json:"image,omitempty" db:"image_path"`
	UserID      int          `json:"-" db:"user_id"`
	Tags        []Tag        `json:"tags"`
	Ingredients []Ingredient `json:"ingredients"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

type Tag struct {
	ID     int    `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	UserID int    `json:"-" db:"user_id"`
}

type Ingredient struct {
	ID     int    `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	UserID int    `json:"-" db:"user_id"`
}

type RecipeTag struct {
	ID       int `json:"id" db:"id"`
	RecipeID int `json:"recipe_id" db:"recipe_id"`
	TagID    int `json:"tag_id" db:"tag_id"`
}

type RecipeIngredient struct {
	ID           int `json:"id" db:"id"`
	RecipeID     int `json:"recipe_id" db:"recipe_id"`
	IngredientID int `json:"ingredient_id" db:"ingredient_id"`
}
