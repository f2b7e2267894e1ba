package repository

import (
	"maintech_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

// EnsureIssued 幂等签发：同一 (用户, 课程) 只会存在一张证书
func (r *CertificateRepository) EnsureIssued(cert *model.Certificate) (*model.Certificate, error) {
	var existing model.Certificate
	err := r.DB.Where(model.Certificate{UserID: cert.UserID, CourseID: cert.CourseID}).
		Attrs(model.Certificate{Code: cert.Code, IssuedAt: cert.IssuedAt}).
		FirstOrCreate(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *CertificateRepository) FindByCode(code string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("code = ?", code).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) FindByUserAndCourse(userID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Where("user_id = ?", userID).Order("issued_at desc").Find(&certs).Error
	return certs, err
}
