package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"budgetwise/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "amount", "date", "description", "category_id", "created_at", "updated_at", "deleted_at"})
}

func expenseRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	cfg := testConfig()
	token, err := middleware.GenerateAccessToken(1, "alice", cfg.JWT.AccessExpireTime)
	require.NoError(t, err)

	router := gin.New()
	h := NewExpenseHandler()
	group := router.Group("/expenses", middleware.JWTAuth())
	group.POST("/", h.Create)
	group.GET("/", h.List)
	group.GET("/statistics", h.GetStatistics)
	group.GET("/export/csv", h.ExportCSV)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	return router, token
}

func TestExpenseHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	router, token := expenseRouter(t)

	body := `{"amount":99.99,"date":"2024-01-15","description":"午餐"}`
	req := httptest.NewRequest("POST", "/expenses/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "创建成功", resp.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create_InvalidDate(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	router, token := expenseRouter(t)

	body := `{"amount":50,"date":"15/01/2024"}`
	req := httptest.NewRequest("POST", "/expenses/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestExpenseHandler_List(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `expenses`").
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(uint(1)).
		WillReturnRows(expenseRows().
			AddRow(1, 1, 50.0, time.Now(), "午餐", nil, time.Now(), time.Now(), nil).
			AddRow(2, 1, 30.0, time.Now(), "地铁", nil, time.Now(), time.Now(), nil))

	router, token := expenseRouter(t)

	req := httptest.NewRequest("GET", "/expenses/?page=1&page_size=10", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Get_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(99, uint(1)).
		WillReturnRows(expenseRows())

	router, token := expenseRouter(t)

	req := httptest.NewRequest("GET", "/expenses/99", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	assert.Contains(t, w.Body.String(), "记录不存在")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Delete(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(1, uint(1)).
		WillReturnRows(expenseRows().
			AddRow(1, 1, 50.0, time.Now(), "午餐", nil, time.Now(), time.Now(), nil))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses` SET `deleted_at`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router, token := expenseRouter(t)

	req := httptest.NewRequest("DELETE", "/expenses/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "删除成功")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_ExportCSV(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	date, _ := time.ParseInLocation("2006-01-02", "2024-01-15", time.Local)
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(expenseRows().
			AddRow(1, 1, 50.0, date, "午餐", nil, time.Now(), time.Now(), nil))
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "user_id", "created_at", "updated_at", "deleted_at"}))

	router, token := expenseRouter(t)

	req := httptest.NewRequest("GET", "/expenses/export/csv?start_date=2024-01-01&end_date=2024-01-31", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "50.00")
	assert.Contains(t, w.Body.String(), "2024-01-15")
	require.NoError(t, mock.ExpectationsWereMet())
}
