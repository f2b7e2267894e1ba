package model

import (
	"encoding/json"
	"time"
)

// QuestionGroup 一个章节可挂多个题组，抽题时合并打平
type QuestionGroup struct {
	BaseModel
	ChapterID uint       `gorm:"index;not null" json:"chapterId"`
	Title     string     `gorm:"size:255" json:"title"`
	Questions []Question `gorm:"foreignKey:GroupID" json:"questions,omitempty"`
}

func (QuestionGroup) TableName() string {
	return "question_groups"
}

type Question struct {
	BaseModel
	GroupID uint     `gorm:"index;not null" json:"groupId"`
	Content string   `gorm:"type:text;not null" json:"content"`
	Answers []Answer `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Answer 每题应恰好有一个 IsCorrect=true 的选项，写入时校验
type Answer struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Content    string `gorm:"type:text;not null" json:"content"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (Answer) TableName() string {
	return "answers"
}

const (
	QuizSessionInProgress = "in_progress"
	QuizSessionSubmitted  = "submitted"
)

// QuizSession 一次答题会话：记录抽题顺序与开始时间，剩余时间由服务端推算
type QuizSession struct {
	UUIDBase
	UserID      uint            `gorm:"index;type:bigint unsigned" json:"userId"`
	ChapterID   uint            `gorm:"index;type:bigint unsigned" json:"chapterId"`
	QuestionIDs json.RawMessage `gorm:"type:json" json:"questionIds"`
	Status      string          `gorm:"size:20;default:'in_progress'" json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	SubmittedAt *time.Time      `json:"submittedAt,omitempty"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}
