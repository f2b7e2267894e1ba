package model

import (
	"time"
)

// UserProgress 每个 (用户, 章节) 一条记录，唯一索引保证并发下不产生重复行
type UserProgress struct {
	BaseModel
	UserID       uint          `gorm:"index:idx_user_chapter,unique;type:bigint unsigned" json:"userId"`
	ChapterID    uint          `gorm:"index:idx_user_chapter,unique;type:bigint unsigned" json:"chapterId"`
	IsCompleted  bool          `gorm:"default:false" json:"isCompleted"`
	FailedStreak int           `gorm:"default:0" json:"failedStreak"`
	LockedUntil  *time.Time    `json:"lockedUntil,omitempty"`
	Attempts     []QuizAttempt `gorm:"foreignKey:ProgressID" json:"attempts,omitempty"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// IsLocked 判断封禁是否仍然生效
func (p *UserProgress) IsLocked(now time.Time) bool {
	return p.LockedUntil != nil && now.Before(*p.LockedUntil)
}

// QuizAttempt 只追加，从不修改或删除
type QuizAttempt struct {
	BaseModel
	ProgressID    uint    `gorm:"index;type:bigint unsigned" json:"progressId"`
	Attempt       int     `gorm:"not null" json:"attempt"`
	Qualification float64 `gorm:"not null" json:"qualification"`
	Approved      bool    `gorm:"default:false" json:"approved"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
