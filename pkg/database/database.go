package database

import (
	"fmt"
	"log"
	"maintech_backend/internal/config"
	"maintech_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release 模式下表结构由运维掌控，只有显式传 -migrate / -migrate-only 才执行迁移
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
		seedDefaults(db)
	}

	return db, nil
}

// Migrate 执行全部表结构迁移，测试环境也复用
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Course{},
		&model.Chapter{},
		&model.QuestionGroup{},
		&model.Question{},
		&model.Answer{},
		&model.UserProgress{},
		&model.QuizAttempt{},
		&model.QuizSession{},
		&model.Order{},
		&model.Enrollment{},
		&model.Certificate{},
	)
}

func seedDefaults(db *gorm.DB) {
	// 默认课程分类
	var count int64
	db.Model(&model.Category{}).Count(&count)
	if count == 0 {
		defaultCategories := []model.Category{
			{Name: "工业维护", Slug: "industrial-maintenance", Description: "设备维护与可靠性课程"},
			{Name: "电气技术", Slug: "electrical", Description: "电气安装与排障"},
			{Name: "机械技术", Slug: "mechanical", Description: "机械传动与装配"},
			{Name: "职业安全", Slug: "safety", Description: "作业安全与规范"},
		}
		for _, cat := range defaultCategories {
			db.Create(&cat)
		}
	}
}
