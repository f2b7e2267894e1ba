package service

import (
	"maintech_backend/internal/model"
	"maintech_backend/internal/repository"
	"maintech_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 管理端的用户操作
type UserService struct {
	UserRepo *repository.UserRepository
	DB       *gorm.DB
}

func NewUserService(userRepo *repository.UserRepository, db *gorm.DB) *UserService {
	return &UserService{UserRepo: userRepo, DB: db}
}

func (s *UserService) ListUsers(page, limit int, role string) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := s.DB.Model(&model.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	err := query.Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

type UpdateProfileRequest struct {
	Name     string `json:"name" binding:"omitempty,min=2,max=100"`
	Language string `json:"language" binding:"omitempty,max=10"`
	Avatar   string `json:"avatar" binding:"omitempty,max=255"`
}

func (s *UserService) UpdateProfile(userID uint, req *UpdateProfileRequest) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Language != "" {
		user.Language = req.Language
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return util.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return util.ErrUnauthorized
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashed)
	return s.UserRepo.Update(user)
}

// SetDisabled 禁用后用户无法登录，已签发的 token 到期自然失效
func (s *UserService) SetDisabled(userID uint, disabled bool) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return util.ErrUserNotFound
	}
	user.Disabled = disabled
	return s.UserRepo.Update(user)
}
