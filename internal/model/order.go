package model

import (
	"time"
)

const (
	OrderStatusCreated  = "created"  // 已创建，尚未跳转支付
	OrderStatusPending  = "pending"  // 已生成支付偏好，等待网关回调
	OrderStatusApproved = "approved" // 支付成功
	OrderStatusRejected = "rejected" // 支付失败或被拒
)

// Order 订单的状态机只沿 created -> pending -> approved/rejected 前进
type Order struct {
	UUIDBase
	UserID       uint       `gorm:"index;type:bigint unsigned" json:"userId"`
	CourseID     uint       `gorm:"index;type:bigint unsigned" json:"courseId"`
	Amount       float64    `gorm:"type:decimal(10,2)" json:"amount"`
	Currency     string     `gorm:"size:10" json:"currency"`
	Status       string     `gorm:"size:20;default:'created'" json:"status"`
	PreferenceID string     `gorm:"size:100" json:"preferenceId"`
	PaymentID    string     `gorm:"size:100" json:"paymentId"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// IsSettled 终态订单不再接受网关回调的修改
func (o *Order) IsSettled() bool {
	return o.Status == OrderStatusApproved || o.Status == OrderStatusRejected
}

type Enrollment struct {
	BaseModel
	UserID   uint   `gorm:"index:idx_user_course,unique;type:bigint unsigned" json:"userId"`
	CourseID uint   `gorm:"index:idx_user_course,unique;type:bigint unsigned" json:"courseId"`
	OrderID  string `gorm:"size:36" json:"orderId"`
	Active   bool   `gorm:"default:false" json:"active"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
