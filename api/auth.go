package api

import (
	"time"

	"budgetwise/config"
	"budgetwise/database"
	"budgetwise/middleware"
	"budgetwise/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50" example:"alice"`
	Email    string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password string `json:"password" binding:"required,min=6,max=50" example:"password123"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest 登录请求（邮箱 + 密码）
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Username     string `json:"username"`
	UserID       uint   `json:"user_id"`
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshTokenResponse 刷新令牌响应
type RefreshTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建新用户账号，并自动创建默认 Debt 类别和当月零额度类别预算
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} RegisterResponse "注册成功"
// @Failure 400 {object} Response "用户名或邮箱已被注册"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 用户名、邮箱均唯一
	var existingUser models.User
	if err := database.DB.Where("username = ?", req.Username).First(&existingUser).Error; err == nil {
		BadRequest(c, "Username already registered")
		return
	}
	if err := database.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		BadRequest(c, "Email already registered")
		return
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	// 创建用户
	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := database.DB.Create(&user).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建用户失败"))
		return
	}

	// 自动创建默认 Debt 类别
	category := models.Category{
		Name:        models.DefaultDebtCategoryName,
		Description: "For all debts",
		UserID:      user.ID,
	}
	if err := database.DB.Create(&category).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建默认类别失败"))
		return
	}

	// 为默认类别创建当月零额度预算（已有生效中的重叠预算则跳过）
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	endDate := startDate.AddDate(0, 1, -1)

	var existingBudget models.CategoryBudget
	err = database.DB.Where(
		"category_id = ? AND user_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
		category.ID, user.ID, models.BudgetStatusActive, endDate, startDate,
	).First(&existingBudget).Error
	if err != nil {
		budget := models.CategoryBudget{
			UserID:      user.ID,
			CategoryID:  category.ID,
			AmountLimit: 0,
			StartDate:   startDate,
			EndDate:     endDate,
			Status:      models.BudgetStatusActive,
		}
		if err := database.DB.Create(&budget).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "创建默认预算失败"))
			return
		}
	}

	c.JSON(200, RegisterResponse{
		Username:  user.Username,
		Email:     user.Email,
		Message:   "Registered successfully",
		CreatedAt: user.CreatedAt,
	})
}

// Login 用户登录
// @Summary 用户登录
// @Description 邮箱 + 密码登录，返回访问令牌与刷新令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} LoginResponse "登录成功"
// @Failure 400 {object} Response "凭证无效"
// @Router /auth/user/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 查找用户并验证密码，失败时统一返回相同文案
	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		BadRequest(c, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		BadRequest(c, "Invalid credentials")
		return
	}

	accessToken, err := middleware.GenerateAccessToken(user.ID, user.Username, h.cfg.JWT.AccessExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(user.ID, user.Username, h.cfg.JWT.RefreshExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	c.JSON(200, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		Username:     user.Username,
		UserID:       user.ID,
	})
}

// FormLogin OAuth2 表单登录
// @Summary OAuth2 表单登录
// @Description 兼容 OAuth2 password flow 的表单登录，username 字段填邮箱，仅返回访问令牌
// @Tags 认证
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "邮箱"
// @Param password formData string true "密码"
// @Success 200 {object} RefreshTokenResponse "登录成功"
// @Failure 400 {object} Response "凭证无效"
// @Router /auth/login [post]
func (h *AuthHandler) FormLogin(c *gin.Context) {
	email := c.PostForm("username")
	password := c.PostForm("password")
	if email == "" || password == "" {
		BadRequest(c, "参数错误")
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		BadRequest(c, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		BadRequest(c, "Invalid credentials")
		return
	}

	accessToken, err := middleware.GenerateAccessToken(user.ID, user.Username, h.cfg.JWT.AccessExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	c.JSON(200, gin.H{
		"access_token": accessToken,
		"token_type":   "bearer",
		"username":     user.Username,
	})
}

// RefreshToken 刷新访问令牌
// @Summary 刷新访问令牌
// @Description 使用有效的刷新令牌换取新的访问令牌；访问令牌不能反向换取刷新令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "刷新令牌"
// @Success 200 {object} RefreshTokenResponse "刷新成功"
// @Failure 401 {object} Response "刷新令牌无效"
// @Router /auth/user/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	claims, err := middleware.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		Unauthorized(c, "Invalid refresh token")
		return
	}

	// 换发前确认用户仍存在
	var user models.User
	if err := database.DB.Where("username = ?", claims.Username).First(&user).Error; err != nil {
		Unauthorized(c, "User not found")
		return
	}

	accessToken, err := middleware.GenerateAccessToken(user.ID, user.Username, h.cfg.JWT.AccessExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	c.JSON(200, RefreshTokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}

// ProtectedRoute 受保护的示例路由
// @Summary 受保护的示例路由
// @Description 仅用于验证访问令牌是否有效
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "问候信息"
// @Failure 401 {object} Response "未授权"
// @Router /auth/protected-route [get]
func (h *AuthHandler) ProtectedRoute(c *gin.Context) {
	username := middleware.GetCurrentUsername(c)
	c.JSON(200, gin.H{
		"detail": "Hello, " + username + "! You have access to this protected route.",
	})
}

// DeleteAccount 注销账号
// @Summary 注销账号
// @Description 删除当前用户及其全部数据；用户担任群组管理员的群组会连同群组数据一并删除
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "用户不存在"
// @Router /auth/account [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "User not found")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// 先解散该用户担任管理员的群组
		var adminMemberships []models.GroupMember
		if err := tx.Where("user_id = ? AND role = ?", userID, models.GroupRoleAdmin).
			Find(&adminMemberships).Error; err != nil {
			return err
		}
		for _, m := range adminMemberships {
			if err := deleteGroupCascade(tx, m.GroupID); err != nil {
				return err
			}
		}

		// 清理该用户在其他群组的痕迹
		var splitExpenseIDs []uint
		if err := tx.Model(&models.GroupExpense{}).Where("payer_id = ?", userID).
			Pluck("id", &splitExpenseIDs).Error; err != nil {
			return err
		}
		if len(splitExpenseIDs) > 0 {
			if err := tx.Unscoped().Where("group_expense_id IN ?", splitExpenseIDs).
				Delete(&models.ExpenseSplit{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("payer_id = ?", userID).
				Delete(&models.GroupExpense{}).Error; err != nil {
				return err
			}
		}
		for _, m := range []interface{}{
			&models.ExpenseSplit{}, &models.GroupMember{},
		} {
			if err := tx.Unscoped().Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("debtor_id = ? OR creditor_id = ?", userID, userID).
			Delete(&models.GroupDebt{}).Error; err != nil {
			return err
		}

		// 个人数据级联：消费、预算、类别、提醒、通知
		for _, m := range []interface{}{
			&models.Expense{}, &models.GeneralBudget{}, &models.CategoryBudget{},
			&models.Category{}, &models.Alert{}, &models.Notification{},
		} {
			if err := tx.Unscoped().Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}

		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "删除账号失败"))
		return
	}

	c.JSON(200, gin.H{
		"detail": "Deleted account of '" + user.Username + "' successfully",
	})
}

// deleteGroupCascade 彻底删除群组及其消费、份额、欠款与成员关系
func deleteGroupCascade(tx *gorm.DB, groupID uint) error {
	var expenseIDs []uint
	if err := tx.Model(&models.GroupExpense{}).Where("group_id = ?", groupID).
		Pluck("id", &expenseIDs).Error; err != nil {
		return err
	}
	if len(expenseIDs) > 0 {
		if err := tx.Unscoped().Where("group_expense_id IN ?", expenseIDs).
			Delete(&models.ExpenseSplit{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Unscoped().Where("group_id = ?", groupID).Delete(&models.GroupExpense{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("group_id = ?", groupID).Delete(&models.GroupDebt{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Delete(&models.Group{}, groupID).Error
}
