package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"budgetwise/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notificationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "message", "is_read", "created_at", "updated_at"})
}

func notificationRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	cfg := testConfig()
	token, err := middleware.GenerateAccessToken(1, "alice", cfg.JWT.AccessExpireTime)
	require.NoError(t, err)

	router := gin.New()
	h := NewNotificationHandler()
	group := router.Group("/notifications", middleware.JWTAuth())
	group.GET("/", h.List)
	group.PUT("/:id/read", h.MarkRead)
	group.DELETE("/:id", h.Delete)
	return router, token
}

func TestNotificationHandler_List(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `notifications`").
		WithArgs(uint(1)).
		WillReturnRows(notificationRows().
			AddRow(1, 1, "Your alert threshold of 100 has been exceeded by 50.00", false, time.Now(), time.Now()))

	router, token := notificationRouter(t)

	req := httptest.NewRequest("GET", "/notifications/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "exceeded by 50.00")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationHandler_List_FilterUnread(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `notifications`").
		WithArgs(uint(1), false).
		WillReturnRows(notificationRows())

	router, token := notificationRouter(t)

	req := httptest.NewRequest("GET", "/notifications/?is_read=false", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `notifications`").
		WithArgs(1, uint(1)).
		WillReturnRows(notificationRows().
			AddRow(1, 1, "msg", false, time.Now(), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `notifications`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router, token := notificationRouter(t)

	req := httptest.NewRequest("PUT", "/notifications/1/read", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "标记成功")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationHandler_Delete_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `notifications`").
		WithArgs(42, uint(1)).
		WillReturnRows(notificationRows())

	router, token := notificationRouter(t)

	req := httptest.NewRequest("DELETE", "/notifications/42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	assert.Contains(t, w.Body.String(), "Notification not found")
	require.NoError(t, mock.ExpectationsWereMet())
}
