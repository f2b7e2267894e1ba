package model

import (
	"encoding/json"
	"time"
)

type Category struct {
	BaseModel
	Name        string   `gorm:"size:100;not null" json:"name"`
	Slug        string   `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string   `gorm:"type:text" json:"description"`
	Courses     []Course `gorm:"foreignKey:CategoryID" json:"courses,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

type Course struct {
	BaseModel
	Title        string     `gorm:"size:255;not null" json:"title"`
	Slug         string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description  string     `gorm:"type:text" json:"description"`
	Thumbnail    string     `gorm:"size:255" json:"thumbnail"`
	Price        float64    `gorm:"type:decimal(10,2);default:0" json:"price"`
	Currency     string     `gorm:"size:10;default:'PEN'" json:"currency"`
	IsPublished  bool       `gorm:"default:false" json:"isPublished"`
	PublishAt    *time.Time `json:"publishAt,omitempty"` // 到点自动发布
	CategoryID   uint       `gorm:"index" json:"categoryId"`
	InstructorID uint       `gorm:"index" json:"instructorId"`
	Chapters     []Chapter  `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Chapter 课程章节，正文为富文本 JSON 节点树，由前端渲染
type Chapter struct {
	BaseModel
	CourseID       uint            `gorm:"index;not null" json:"courseId"`
	Title          string          `gorm:"size:255;not null" json:"title"`
	Order          int             `gorm:"column:position;default:0" json:"order"`
	Content        json.RawMessage `gorm:"type:json" json:"content,omitempty"`
	IsFree         bool            `gorm:"default:false" json:"isFree"` // 免费试看
	QuestionGroups []QuestionGroup `gorm:"foreignKey:ChapterID" json:"questionGroups,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}
