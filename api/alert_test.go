package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"budgetwise/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errtest = errors.New("connection reset")

// stubSchedule 测试中屏蔽后台评估任务，避免命中 mock 之外的查询
func stubSchedule(t *testing.T) {
	old := schedule
	schedule = func(fn func()) {}
	t.Cleanup(func() { schedule = old })
}

func alertRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "threshold", "created_at", "updated_at"})
}

func authedRequest(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	cfg := testConfig()
	token, err := middleware.GenerateAccessToken(1, "alice", cfg.JWT.AccessExpireTime)
	require.NoError(t, err)

	router := gin.New()
	h := NewAlertHandler()
	group := router.Group("/alerts", middleware.JWTAuth())
	group.POST("/", h.CreateAlert)
	group.GET("/", h.GetAlerts)
	group.PUT("/", h.UpdateAlert)
	group.DELETE("/", h.DeleteAlert)

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAlertHandler_CreateAlert(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `alerts`").
		WithArgs(uint(1), 100.0).
		WillReturnRows(alertRows())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `alerts`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := authedRequest(t, "POST", "/alerts/", `{"threshold":100}`)

	assert.Equal(t, 201, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 201, resp.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertHandler_CreateAlert_DuplicateThreshold(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `alerts`").
		WithArgs(uint(1), 100.0).
		WillReturnRows(alertRows().
			AddRow(1, 1, 100.0, time.Now(), time.Now()))

	w := authedRequest(t, "POST", "/alerts/", `{"threshold":100}`)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "An alert with the same threshold already exists")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertHandler_CreateAlert_ConcurrentDuplicate(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	// 先查无重复，INSERT 时撞上唯一索引（并发竞争）
	mock.ExpectQuery("SELECT .* FROM `alerts`").
		WithArgs(uint(1), 100.0).
		WillReturnRows(alertRows())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `alerts`").
		WillReturnError(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	w := authedRequest(t, "POST", "/alerts/", `{"threshold":100}`)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "An alert with the same threshold already exists")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertHandler_CreateAlert_DBErrorIsNotConflict(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `alerts`").
		WithArgs(uint(1), 100.0).
		WillReturnRows(alertRows())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `alerts`").
		WillReturnError(errtest)
	mock.ExpectRollback()

	w := authedRequest(t, "POST", "/alerts/", `{"threshold":100}`)

	// 普通数据库错误不能伪装成阈值冲突
	assert.Equal(t, 500, w.Code)
	assert.NotContains(t, w.Body.String(), "already exists")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertHandler_GetAlerts(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `alerts`").
		WithArgs(uint(1)).
		WillReturnRows(alertRows().
			AddRow(1, 1, 100.0, time.Now(), time.Now()).
			AddRow(2, 1, 200.0, time.Now(), time.Now()))

	w := authedRequest(t, "GET", "/alerts/", "")

	assert.Equal(t, 200, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	alerts := resp.Data.([]interface{})
	assert.Len(t, alerts, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertHandler_UpdateAlert_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `alerts`").
		WithArgs(uint(1)).
		WillReturnRows(alertRows())

	w := authedRequest(t, "PUT", "/alerts/", `{"threshold":150}`)

	assert.Equal(t, 404, w.Code)
	assert.Contains(t, w.Body.String(), "Alert not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertHandler_DeleteAlert(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	stubSchedule(t)

	mock.ExpectQuery("SELECT .* FROM `alerts`").
		WithArgs(uint(1)).
		WillReturnRows(alertRows().
			AddRow(1, 1, 100.0, time.Now(), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `alerts`").
		WithArgs(uint(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := authedRequest(t, "DELETE", "/alerts/", "")

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "Alert deleted successfully")
	require.NoError(t, mock.ExpectationsWereMet())
}
