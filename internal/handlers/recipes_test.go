package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func recipeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "price", "time_minutes", "link", "image_path"})
}

func tagJoinRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"recipe_id", "id", "name"})
}

func ingredientJoinRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"recipe_id", "id", "name"})
}

func TestGetRecipesScopedToUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`SELECT r.id, r.title, r.description, r.price, r.time_minutes, r.link, r.image_path`).
		WithArgs(7).
		WillReturnRows(
			recipeRows().
				AddRow(2, "Pasta", "", 12.50, 25, "", nil).
				AddRow(1, "Soup", "", 5.00, 40, "", nil),
		)
	mock.
		ExpectQuery(`SELECT rt.recipe_id, t.id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tagJoinRows().AddRow(2, 3, "dinner"))
	mock.
		ExpectQuery(`SELECT ri.recipe_id, i.id, i.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(ingredientJoinRows())

	router := gin.New()
	router.GET("/api/recipes", withTestUserID(7), GetRecipes)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	expectHTTP200(t, resp.Code)

	var out struct {
		Recipes []map[string]any `json:"recipes"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("expected count=2, got %d", out.Count)
	}
	if int(out.Recipes[0]["id"].(float64)) != 2 {
		t.Fatalf("expected newest recipe first, got %#v", out.Recipes[0]["id"])
	}
	if _, hasDescription := out.Recipes[0]["description"]; hasDescription {
		t.Fatalf("list shape must not include description")
	}
	tags := out.Recipes[0]["tags"].([]any)
	if len(tags) != 1 {
		t.Fatalf("expected 1 tag on first recipe, got %d", len(tags))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestGetRecipesTagAndIngredientFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`EXISTS \(SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = r.id AND rt.tag_id = ANY\(\$2\)\)`).
		WithArgs(7, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(recipeRows().AddRow(5, "Curry", "", 9.99, 35, "", nil))
	mock.
		ExpectQuery(`SELECT rt.recipe_id, t.id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tagJoinRows().AddRow(5, 1, "spicy"))
	mock.
		ExpectQuery(`SELECT ri.recipe_id, i.id, i.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(ingredientJoinRows().AddRow(5, 4, "rice"))

	router := gin.New()
	router.GET("/api/recipes", withTestUserID(7), GetRecipes)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes?tags=1,2&ingredients=4", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	expectHTTP200(t, resp.Code)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestGetRecipesRejectsMalformedFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	router := gin.New()
	router.GET("/api/recipes", withTestUserID(7), GetRecipes)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes?tags=1,abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusBadRequest)

	// The malformed list must fail before any query runs.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateRecipeWithNewTags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.
		ExpectQuery(`INSERT INTO recipes`).
		WithArgs("Pasta", "", 10.45, 10, "", 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.
		ExpectExec(`DELETE FROM recipe_tags WHERE recipe_id = \$1`).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.
		ExpectQuery(`INSERT INTO tags`).
		WithArgs(7, "a").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.
		ExpectExec(`INSERT INTO recipe_tags`).
		WithArgs(10, 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.
		ExpectQuery(`INSERT INTO tags`).
		WithArgs(7, "b").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))
	mock.
		ExpectExec(`INSERT INTO recipe_tags`).
		WithArgs(10, 6).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	mock.
		ExpectQuery(`SELECT id, title, description, price, time_minutes, link, image_path`).
		WithArgs(10, 7).
		WillReturnRows(recipeRows().AddRow(10, "Pasta", "", 10.45, 10, "", nil))
	mock.
		ExpectQuery(`SELECT rt.recipe_id, t.id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tagJoinRows().AddRow(10, 5, "a").AddRow(10, 6, "b"))
	mock.
		ExpectQuery(`SELECT ri.recipe_id, i.id, i.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(ingredientJoinRows())

	router := gin.New()
	router.POST("/api/recipes", withTestUserID(7), CreateRecipe)

	resp := postJSON(t, router, "/api/recipes", map[string]any{
		"title":        "Pasta",
		"price":        10.45,
		"time_minutes": 10,
		"tags":         []map[string]string{{"name": "a"}, {"name": "b"}},
	})
	mustStatus(t, resp.Code, http.StatusCreated)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if out["price"].(float64) != 10.45 {
		t.Fatalf("expected price=10.45, got %#v", out["price"])
	}
	tags := out["tags"].([]any)
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateRecipeReusesExistingTag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.
		ExpectQuery(`INSERT INTO recipes`).
		WithArgs("Pasta", "", 10.45, 10, "", 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.
		ExpectExec(`DELETE FROM recipe_tags WHERE recipe_id = \$1`).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Conditional insert yields no row because the tag already exists.
	mock.
		ExpectQuery(`INSERT INTO tags`).
		WithArgs(7, "x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.
		ExpectQuery(`SELECT id FROM tags WHERE user_id = \$1 AND name = \$2`).
		WithArgs(7, "x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.
		ExpectExec(`INSERT INTO recipe_tags`).
		WithArgs(10, 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.
		ExpectQuery(`SELECT id, title, description, price, time_minutes, link, image_path`).
		WithArgs(10, 7).
		WillReturnRows(recipeRows().AddRow(10, "Pasta", "", 10.45, 10, "", nil))
	mock.
		ExpectQuery(`SELECT rt.recipe_id, t.id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tagJoinRows().AddRow(10, 5, "x"))
	mock.
		ExpectQuery(`SELECT ri.recipe_id, i.id, i.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(ingredientJoinRows())

	router := gin.New()
	router.POST("/api/recipes", withTestUserID(7), CreateRecipe)

	resp := postJSON(t, router, "/api/recipes", map[string]any{
		"title":        "Pasta",
		"price":        10.45,
		"time_minutes": 10,
		"tags":         []map[string]string{{"name": "x"}},
	})
	mustStatus(t, resp.Code, http.StatusCreated)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateRecipeDeduplicatesPayloadNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.
		ExpectQuery(`INSERT INTO recipes`).
		WithArgs("Pasta", "", 10.45, 10, "", 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.
		ExpectExec(`DELETE FROM recipe_tags WHERE recipe_id = \$1`).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// "a" appears twice in the payload but is upserted once.
	mock.
		ExpectQuery(`INSERT INTO tags`).
		WithArgs(7, "a").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.
		ExpectExec(`INSERT INTO recipe_tags`).
		WithArgs(10, 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.
		ExpectQuery(`SELECT id, title, description, price, time_minutes, link, image_path`).
		WithArgs(10, 7).
		WillReturnRows(recipeRows().AddRow(10, "Pasta", "", 10.45, 10, "", nil))
	mock.
		ExpectQuery(`SELECT rt.recipe_id, t.id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tagJoinRows().AddRow(10, 5, "a"))
	mock.
		ExpectQuery(`SELECT ri.recipe_id, i.id, i.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(ingredientJoinRows())

	router := gin.New()
	router.POST("/api/recipes", withTestUserID(7), CreateRecipe)

	resp := postJSON(t, router, "/api/recipes", map[string]any{
		"title":        "Pasta",
		"price":        10.45,
		"time_minutes": 10,
		"tags":         []map[string]string{{"name": "a"}, {"name": "a"}},
	})
	mustStatus(t, resp.Code, http.StatusCreated)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateRecipeRejectsInvalidPrice(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, _, cleanup := setupMockDB(t)
	defer cleanup()

	router := gin.New()
	router.POST("/api/recipes", withTestUserID(7), CreateRecipe)

	for _, price := range []float64{10.455, 1234.50, -1} {
		resp := postJSON(t, router, "/api/recipes", map[string]any{
			"title":        "Pasta",
			"price":        price,
			"time_minutes": 10,
		})
		mustStatus(t, resp.Code, http.StatusBadRequest)
	}
}

func TestGetRecipeNotOwnedReturnsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	// Scoped query: a foreign recipe yields no row at all.
	mock.
		ExpectQuery(`SELECT id, title, description, price, time_minutes, link, image_path`).
		WithArgs(42, 7).
		WillReturnRows(recipeRows())

	router := gin.New()
	router.GET("/api/recipes/:recipe_id", withTestUserID(7), GetRecipe)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/42", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusNotFound)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPatchRecipeReplacesTags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`SELECT id FROM recipes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(10, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE recipes`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectExec(`DELETE FROM recipe_tags WHERE recipe_id = \$1`).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectQuery(`INSERT INTO tags`).
		WithArgs(7, "new").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.
		ExpectExec(`INSERT INTO recipe_tags`).
		WithArgs(10, 9).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.
		ExpectQuery(`SELECT id, title, description, price, time_minutes, link, image_path`).
		WithArgs(10, 7).
		WillReturnRows(recipeRows().AddRow(10, "Pasta", "", 10.45, 10, "", nil))
	mock.
		ExpectQuery(`SELECT rt.recipe_id, t.id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tagJoinRows().AddRow(10, 9, "new"))
	mock.
		ExpectQuery(`SELECT ri.recipe_id, i.id, i.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(ingredientJoinRows())

	router := gin.New()
	router.PATCH("/api/recipes/:recipe_id", withTestUserID(7), PatchRecipe)

	payload := bytes.NewReader([]byte(`{"tags":[{"name":"new"}]}`))
	req := httptest.NewRequest(http.MethodPatch, "/api/recipes/10", payload)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	expectHTTP200(t, resp.Code)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	tags := out["tags"].([]any)
	if len(tags) != 1 {
		t.Fatalf("expected exactly 1 tag after replacement, got %d", len(tags))
	}
	first := tags[0].(map[string]any)
	if first["name"] != "new" {
		t.Fatalf("expected tag 'new', got %#v", first["name"])
	}

	// No DELETE FROM tags was expected: the old tag record survives,
	// only its membership edge is gone.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPatchRecipeClearsTagsWithEmptyList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`SELECT id FROM recipes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(10, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE recipes`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectExec(`DELETE FROM recipe_tags WHERE recipe_id = \$1`).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	mock.
		ExpectQuery(`SELECT id, title, description, price, time_minutes, link, image_path`).
		WithArgs(10, 7).
		WillReturnRows(recipeRows().AddRow(10, "Pasta", "", 10.45, 10, "", nil))
	mock.
		ExpectQuery(`SELECT rt.recipe_id, t.id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tagJoinRows())
	mock.
		ExpectQuery(`SELECT ri.recipe_id, i.id, i.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(ingredientJoinRows())

	router := gin.New()
	router.PATCH("/api/recipes/:recipe_id", withTestUserID(7), PatchRecipe)

	payload := bytes.NewReader([]byte(`{"tags":[]}`))
	req := httptest.NewRequest(http.MethodPatch, "/api/recipes/10", payload)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	expectHTTP200(t, resp.Code)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	tags := out["tags"].([]any)
	if len(tags) != 0 {
		t.Fatalf("expected no tags after clearing, got %d", len(tags))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPatchRecipeNotOwnedReturnsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`SELECT id FROM recipes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(10, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	router := gin.New()
	router.PATCH("/api/recipes/:recipe_id", withTestUserID(7), PatchRecipe)

	payload := bytes.NewReader([]byte(`{"title":"other"}`))
	req := httptest.NewRequest(http.MethodPatch, "/api/recipes/10", payload)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusNotFound)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestDeleteRecipe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`SELECT image_path FROM recipes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(10, 7).
		WillReturnRows(sqlmock.NewRows([]string{"image_path"}).AddRow(nil))
	mock.
		ExpectExec(`DELETE FROM recipes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(10, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := gin.New()
	router.DELETE("/api/recipes/:recipe_id", withTestUserID(7), DeleteRecipe)

	req := httptest.NewRequest(http.MethodDelete, "/api/recipes/10", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusNoContent)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestDeleteRecipeNotOwnedReturnsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`SELECT image_path FROM recipes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(10, 7).
		WillReturnRows(sqlmock.NewRows([]string{"image_path"}))

	router := gin.New()
	router.DELETE("/api/recipes/:recipe_id", withTestUserID(7), DeleteRecipe)

	req := httptest.NewRequest(http.MethodDelete, "/api/recipes/10", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusNotFound)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestValidatePrice(t *testing.T) {
	valid := []float64{0, 0.01, 10.45, 999.99}
	for _, price := range valid {
		if err := validatePrice(price); err != nil {
			t.Fatalf("validatePrice(%v): unexpected error %v", price, err)
		}
	}

	invalid := []float64{-0.01, 1000, 1000.00, 12.345}
	for _, price := range invalid {
		if err := validatePrice(price); err == nil {
			t.Fatalf("validatePrice(%v): expected error", price)
		}
	}
}
