package repository

import (
	"maintech_backend/internal/model"

	"gorm.io/gorm"
)

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

func (r *OrderRepository) Create(order *model.Order) error {
	return r.DB.Create(order).Error
}

func (r *OrderRepository) Update(order *model.Order) error {
	return r.DB.Save(order).Error
}

func (r *OrderRepository) FindByID(id string) (*model.Order, error) {
	var order model.Order
	err := r.DB.First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListByUser(userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&orders).Error
	return orders, err
}

// Settle 订单落账与开通报名在同一事务内完成
func (r *OrderRepository) Settle(order *model.Order, enrollment *model.Enrollment) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		if enrollment == nil {
			return nil
		}
		var existing model.Enrollment
		err := tx.Where("user_id = ? AND course_id = ?", enrollment.UserID, enrollment.CourseID).
			First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(enrollment).Error
		}
		if err != nil {
			return err
		}
		existing.Active = enrollment.Active
		existing.OrderID = enrollment.OrderID
		return tx.Save(&existing).Error
	})
}

func (r *OrderRepository) CreateEnrollment(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *OrderRepository) FindEnrollment(userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *OrderRepository) ListEnrollmentsByUser(userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("user_id = ? AND active = ?", userID, true).Find(&enrollments).Error
	return enrollments, err
}
