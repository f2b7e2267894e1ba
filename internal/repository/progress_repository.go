package repository

import (
	"maintech_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Ensure 幂等地保证 (用户, 章节) 的进度记录存在。
// FirstOrCreate 命中 (user_id, chapter_id) 唯一索引，并发下也不会产生重复行。
func (r *ProgressRepository) Ensure(userID, chapterID uint) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := r.DB.Where(model.UserProgress{UserID: userID, ChapterID: chapterID}).
		Attrs(model.UserProgress{IsCompleted: false}).
		FirstOrCreate(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) FindByID(id uint) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := r.DB.Preload("Attempts", func(db *gorm.DB) *gorm.DB {
		return db.Order("quiz_attempts.attempt asc")
	}).First(&progress, id).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) FindByUserAndChapter(userID, chapterID uint) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := r.DB.Preload("Attempts", func(db *gorm.DB) *gorm.DB {
		return db.Order("quiz_attempts.attempt asc")
	}).Where("user_id = ? AND chapter_id = ?", userID, chapterID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) ListByUserAndCourse(userID, courseID uint) ([]model.UserProgress, error) {
	var list []model.UserProgress
	err := r.DB.Preload("Attempts", func(db *gorm.DB) *gorm.DB {
		return db.Order("quiz_attempts.attempt asc")
	}).Joins("JOIN chapters ON chapters.id = user_progress.chapter_id").
		Where("user_progress.user_id = ? AND chapters.course_id = ?", userID, courseID).
		Order("chapters.position asc").
		Find(&list).Error
	return list, err
}

func (r *ProgressRepository) CountAttempts(progressID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).Where("progress_id = ?", progressID).Count(&count).Error
	return count, err
}

func (r *ProgressRepository) CountCompletedInCourse(userID, courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserProgress{}).
		Joins("JOIN chapters ON chapters.id = user_progress.chapter_id").
		Where("user_progress.user_id = ? AND chapters.course_id = ? AND user_progress.is_completed = ?",
			userID, courseID, true).
		Count(&count).Error
	return count, err
}

// RecordAttempt 在一个事务里追加成绩并更新进度，锁定判定与记分不可分离
func (r *ProgressRepository) RecordAttempt(progress *model.UserProgress, attempt *model.QuizAttempt) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		return tx.Model(&model.UserProgress{}).Where("id = ?", progress.ID).
			Updates(map[string]interface{}{
				"is_completed":  progress.IsCompleted,
				"failed_streak": progress.FailedStreak,
				"locked_until":  progress.LockedUntil,
			}).Error
	})
}

func (r *ProgressRepository) Update(progress *model.UserProgress) error {
	return r.DB.Save(progress).Error
}

// ClearLock 封禁到期后清除锁定并重置连败计数
func (r *ProgressRepository) ClearLock(progressID uint) error {
	return r.DB.Model(&model.UserProgress{}).Where("id = ?", progressID).
		Updates(map[string]interface{}{"locked_until": nil, "failed_streak": 0}).Error
}

// Reset 管理端重开：清完成态与锁定，历史成绩保留
func (r *ProgressRepository) Reset(progressID uint) error {
	return r.DB.Model(&model.UserProgress{}).Where("id = ?", progressID).
		Updates(map[string]interface{}{
			"is_completed":  false,
			"failed_streak": 0,
			"locked_until":  nil,
		}).Error
}

// SweepExpiredLocks 定时任务兜底清理已过期的锁定
func (r *ProgressRepository) SweepExpiredLocks(now time.Time) (int64, error) {
	res := r.DB.Model(&model.UserProgress{}).
		Where("locked_until IS NOT NULL AND locked_until <= ?", now).
		Updates(map[string]interface{}{"locked_until": nil, "failed_streak": 0})
	return res.RowsAffected, res.Error
}
