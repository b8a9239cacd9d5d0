package database

import (
	"fmt"
	"log"

	"budgetwise/config"
	"budgetwise/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接
func Init(cfg *config.Config) error {
	// 构建 MySQL DSN 连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
	)

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 把驱动的唯一键冲突翻译为 gorm.ErrDuplicatedKey，
		// 提醒阈值/通知去重的唯一索引依赖该判定
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 连接池配置
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(10)  // 最大空闲连接数
	sqlDB.SetMaxOpenConns(100) // 最大打开连接数

	// 自动迁移数据库表
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Category{},
		&models.Expense{},
		&models.GeneralBudget{},
		&models.CategoryBudget{},
		&models.Alert{},
		&models.Notification{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupExpense{},
		&models.ExpenseSplit{},
		&models.GroupDebt{},
	); err != nil {
		return err
	}

	// 兼容历史数据：老版本预算没有 status 字段，默认置为 active
	_ = DB.Model(&models.GeneralBudget{}).
		Where("status IS NULL OR status = ''").
		Update("status", models.BudgetStatusActive).Error
	_ = DB.Model(&models.CategoryBudget{}).
		Where("status IS NULL OR status = ''").
		Update("status", models.BudgetStatusActive).Error

	log.Println("数据库初始化成功")
	return nil
}

// GetDB 获取数据库连接
func GetDB() *gorm.DB {
	return DB
}
