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
	"golang.org/x/crypto/bcrypt"
)

func adminRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "password", "created_at", "updated_at", "deleted_at"})
}

func TestAdminHandler_Login(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig()

	hashed, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	mock.ExpectQuery("SELECT .* FROM `admins`").
		WithArgs("root").
		WillReturnRows(adminRows().
			AddRow(1, "root", "root@x.com", string(hashed), time.Now(), time.Now(), nil))

	router := gin.New()
	router.POST("/admin/login", NewAdminHandler(cfg).Login)

	body := `{"username":"root","password":"admin123"}`
	req := httptest.NewRequest("POST", "/admin/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	assert.Equal(t, "bearer", resp["token_type"])

	// 管理员令牌不能用于普通用户接口
	claims, err := middleware.ParseAccessToken(resp["access_token"].(string))
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminHandler_Register_WrongMasterKey(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig()

	router := gin.New()
	router.POST("/admin/register", NewAdminHandler(cfg).Register)

	body := `{"username":"root","password":"admin123","master_key":"wrong-key"}`
	req := httptest.NewRequest("POST", "/admin/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect master key")
}

func TestAdminHandler_Register(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig()

	mock.ExpectQuery("SELECT .* FROM `admins`").
		WithArgs("root").
		WillReturnRows(adminRows())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `admins`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/admin/register", NewAdminHandler(cfg).Register)

	body := `{"username":"root","password":"admin123","master_key":"test-master-key"}`
	req := httptest.NewRequest("POST", "/admin/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "Registered successfully!")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminHandler_GetAllUsers(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userRows().
			AddRow(1, "alice", "alice@x.com", "hash", time.Now(), time.Now(), nil).
			AddRow(2, "bob", "bob@x.com", "hash", time.Now(), time.Now(), nil))

	token, err := middleware.GenerateAdminToken(1, "root", cfg.JWT.AccessExpireTime)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin/users", middleware.AdminAuth(), NewAdminHandler(cfg).GetAllUsers)

	req := httptest.NewRequest("GET", "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.Contains(t, w.Body.String(), "bob")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminHandler_GetAllUsers_RejectsUserToken(t *testing.T) {
	cfg := testConfig()

	token, err := middleware.GenerateAccessToken(1, "alice", cfg.JWT.AccessExpireTime)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin/users", middleware.AdminAuth(), NewAdminHandler(cfg).GetAllUsers)

	req := httptest.NewRequest("GET", "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
}

func TestAdminHandler_DeleteUser_CascadesGroupData(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs(1).
		WillReturnRows(userRows().
			AddRow(1, "alice", "alice@x.com", "hash", time.Now(), time.Now(), nil))

	mock.ExpectBegin()
	// 垫付的群组消费、其份额与两个方向的欠款都要删除
	mock.ExpectQuery("SELECT `id` FROM `group_expenses`").
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("DELETE FROM `expense_splits`").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `group_expenses`").
		WithArgs(uint(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `group_debts`").
		WithArgs(uint(1), uint(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 用户直接拥有的各类数据
	for _, table := range []string{
		"expenses", "general_budgets", "category_budgets",
		"categories", "alerts", "notifications",
		"group_members", "expense_splits",
	} {
		mock.ExpectExec("DELETE FROM `" + table + "`").
			WithArgs(uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("DELETE FROM `users`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	token, err := middleware.GenerateAdminToken(1, "root", cfg.JWT.AccessExpireTime)
	require.NoError(t, err)

	router := gin.New()
	router.DELETE("/admin/users/:id", middleware.AdminAuth(), NewAdminHandler(cfg).DeleteUser)

	req := httptest.NewRequest("DELETE", "/admin/users/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "Deleted user 'alice' successfully")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminHandler_DeleteUser_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs(99).
		WillReturnRows(userRows())

	token, err := middleware.GenerateAdminToken(1, "root", cfg.JWT.AccessExpireTime)
	require.NoError(t, err)

	router := gin.New()
	router.DELETE("/admin/users/:id", middleware.AdminAuth(), NewAdminHandler(cfg).DeleteUser)

	req := httptest.NewRequest("DELETE", "/admin/users/99", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
	require.NoError(t, mock.ExpectationsWereMet())
}
