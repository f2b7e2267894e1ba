package model

import (
	"time"
)

// Certificate 结业证书，Code 用于公开验证
type Certificate struct {
	BaseModel
	Code     string    `gorm:"size:36;uniqueIndex;not null" json:"code"`
	UserID   uint      `gorm:"index:idx_cert_user_course,unique;type:bigint unsigned" json:"userId"`
	CourseID uint      `gorm:"index:idx_cert_user_course,unique;type:bigint unsigned" json:"courseId"`
	IssuedAt time.Time `json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
