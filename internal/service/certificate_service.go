package service

import (
	"maintech_backend/internal/model"
	"maintech_backend/internal/repository"
	"maintech_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type CertificateService struct {
	CertRepo     *repository.CertificateRepository
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	OrderRepo    *repository.OrderRepository
	UserRepo     *repository.UserRepository
	Email        *EmailService
}

func NewCertificateService(
	certRepo *repository.CertificateRepository,
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	orderRepo *repository.OrderRepository,
	userRepo *repository.UserRepository,
	email *EmailService,
) *CertificateService {
	return &CertificateService{
		CertRepo:     certRepo,
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		OrderRepo:    orderRepo,
		UserRepo:     userRepo,
		Email:        email,
	}
}

// IssueIfEligible 课程全部章节完成且报名有效时签发证书，幂等。
// 未达条件不算错误，静默返回。
func (s *CertificateService) IssueIfEligible(userID, courseID uint) error {
	enrollment, err := s.OrderRepo.FindEnrollment(userID, courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	if !enrollment.Active {
		return nil
	}

	total, err := s.CourseRepo.CountChapters(courseID)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	completed, err := s.ProgressRepo.CountCompletedInCourse(userID, courseID)
	if err != nil {
		return err
	}
	if completed < total {
		return nil
	}

	cert := &model.Certificate{
		Code:     model.GenerateUUID(),
		UserID:   userID,
		CourseID: courseID,
		IssuedAt: time.Now(),
	}
	issued, err := s.CertRepo.EnsureIssued(cert)
	if err != nil {
		return err
	}

	// 只有新签发的证书才发邮件
	if issued.Code == cert.Code {
		s.notifyIssued(issued)
	}
	return nil
}

type CertificateInfo struct {
	Code        string    `json:"code"`
	HolderName  string    `json:"holderName"`
	CourseTitle string    `json:"courseTitle"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// Verify 公开验证接口，凭 Code 返回持有人与课程信息
func (s *CertificateService) Verify(code string) (*CertificateInfo, error) {
	cert, err := s.CertRepo.FindByCode(code)
	if err != nil {
		return nil, util.ErrCertNotFound
	}

	info := &CertificateInfo{
		Code:     cert.Code,
		IssuedAt: cert.IssuedAt,
	}

	if user, err := s.UserRepo.FindByID(cert.UserID); err == nil {
		info.HolderName = user.Name
	}
	if course, err := s.CourseRepo.FindCourseByID(cert.CourseID); err == nil {
		info.CourseTitle = course.Title
	}
	return info, nil
}

func (s *CertificateService) ListByUser(userID uint) ([]model.Certificate, error) {
	return s.CertRepo.ListByUser(userID)
}

func (s *CertificateService) notifyIssued(cert *model.Certificate) {
	if s.Email == nil {
		return
	}
	user, err := s.UserRepo.FindByID(cert.UserID)
	if err != nil {
		return
	}
	course, err := s.CourseRepo.FindCourseByID(cert.CourseID)
	if err != nil {
		return
	}
	s.Email.SendCertificateIssued(user, course, cert)
}
