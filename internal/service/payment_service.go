package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"maintech_backend/internal/config"
	"maintech_backend/internal/model"
	"maintech_backend/internal/repository"
	"maintech_backend/internal/util"
	"maintech_backend/pkg/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService 对接支付网关：下单生成支付偏好，回调落账并开通报名
type PaymentService struct {
	OrderRepo  *repository.OrderRepository
	CourseRepo *repository.CourseRepository
	UserRepo   *repository.UserRepository
	Email      *EmailService
	Cfg        *config.PaymentConfig
	client     *resty.Client
}

func NewPaymentService(
	orderRepo *repository.OrderRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	email *EmailService,
	cfg *config.PaymentConfig,
) *PaymentService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.AccessToken).
		SetTimeout(10 * time.Second).
		SetRetryCount(2)

	return &PaymentService{
		OrderRepo:  orderRepo,
		CourseRepo: courseRepo,
		UserRepo:   userRepo,
		Email:      email,
		Cfg:        cfg,
		client:     client,
	}
}

type preferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Currency  string  `json:"currency_id"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	BackURLs          struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
	} `json:"back_urls"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type CheckoutResult struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	InitPoint string `json:"initPoint,omitempty"` // 跳转支付页的地址，免费课程为空
	Enrolled  bool   `json:"enrolled"`
}

// Checkout 创建订单。免费课程直接开通报名，付费课程生成支付偏好等待回调。
func (s *PaymentService) Checkout(userID, courseID uint) (*CheckoutResult, error) {
	course, err := s.CourseRepo.FindCourseByID(courseID)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotPublished
	}

	enrollment, err := s.OrderRepo.FindEnrollment(userID, courseID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if enrollment != nil && enrollment.Active {
		return nil, util.ErrAlreadyEnrolled
	}

	order := &model.Order{
		UserID:   userID,
		CourseID: courseID,
		Amount:   course.Price,
		Currency: course.Currency,
		Status:   model.OrderStatusCreated,
	}
	if err := s.OrderRepo.Create(order); err != nil {
		return nil, err
	}

	// 免费课程无需走网关
	if course.Price <= 0 {
		now := time.Now()
		order.Status = model.OrderStatusApproved
		order.PaidAt = &now
		err := s.OrderRepo.Settle(order, &model.Enrollment{
			UserID:   userID,
			CourseID: courseID,
			OrderID:  order.ID,
			Active:   true,
		})
		if err != nil {
			return nil, err
		}
		s.notifyEnrolled(userID, course)
		return &CheckoutResult{OrderID: order.ID, Status: order.Status, Enrolled: true}, nil
	}

	pref, err := s.createPreference(order, course)
	if err != nil {
		return nil, err
	}

	order.Status = model.OrderStatusPending
	order.PreferenceID = pref.ID
	if err := s.OrderRepo.Update(order); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID:   order.ID,
		Status:    order.Status,
		InitPoint: pref.InitPoint,
	}, nil
}

func (s *PaymentService) createPreference(order *model.Order, course *model.Course) (*preferenceResponse, error) {
	req := preferenceRequest{
		Items: []preferenceItem{{
			Title:     course.Title,
			Quantity:  1,
			UnitPrice: course.Price,
			Currency:  course.Currency,
		}},
		ExternalReference: order.ID,
	}
	req.BackURLs.Success = s.Cfg.SuccessURL
	req.BackURLs.Failure = s.Cfg.FailureURL

	var pref preferenceResponse
	resp, err := s.client.R().
		SetBody(req).
		SetResult(&pref).
		Post("/checkout/preferences")
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode(), resp.String())
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("payment gateway returned empty preference id")
	}
	return &pref, nil
}

// WebhookEvent 网关回调体，external_reference 回带我们的订单号
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		ExternalReference string `json:"external_reference"`
	} `json:"data"`
}

// VerifySignature 校验回调签名：HMAC-SHA256(payload, webhook_secret) 的十六进制串
func (s *PaymentService) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.Cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleWebhook 幂等处理支付回调。已落账订单直接返回当前状态，不会二次修改。
func (s *PaymentService) HandleWebhook(payload []byte, signature string) (*model.Order, error) {
	if !s.VerifySignature(payload, signature) {
		return nil, util.ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.Type != "payment" || event.Data.ExternalReference == "" {
		return nil, fmt.Errorf("unsupported webhook event type: %s", event.Type)
	}

	order, err := s.OrderRepo.FindByID(event.Data.ExternalReference)
	if err != nil {
		return nil, util.ErrOrderNotFound
	}

	if order.IsSettled() {
		logger.Log.Info("Webhook replay ignored for settled order",
			zap.String("orderId", order.ID),
			zap.String("status", order.Status))
		return order, nil
	}

	switch event.Data.Status {
	case "approved":
		now := time.Now()
		order.Status = model.OrderStatusApproved
		order.PaymentID = event.Data.ID
		order.PaidAt = &now
		err := s.OrderRepo.Settle(order, &model.Enrollment{
			UserID:   order.UserID,
			CourseID: order.CourseID,
			OrderID:  order.ID,
			Active:   true,
		})
		if err != nil {
			return nil, err
		}
		if course, err := s.CourseRepo.FindCourseByID(order.CourseID); err == nil {
			s.notifyEnrolled(order.UserID, course)
		}
	case "rejected", "cancelled":
		order.Status = model.OrderStatusRejected
		order.PaymentID = event.Data.ID
		if err := s.OrderRepo.Settle(order, nil); err != nil {
			return nil, err
		}
	default:
		// pending / in_process 等中间状态不改动订单
		logger.Log.Info("Webhook with non-final payment status",
			zap.String("orderId", order.ID),
			zap.String("paymentStatus", event.Data.Status))
	}

	return order, nil
}

func (s *PaymentService) ListOrders(userID uint) ([]model.Order, error) {
	return s.OrderRepo.ListByUser(userID)
}

func (s *PaymentService) ListEnrollments(userID uint) ([]model.Enrollment, error) {
	return s.OrderRepo.ListEnrollmentsByUser(userID)
}

// IsEnrolled 课程详情页的内容可见性校验
func (s *PaymentService) IsEnrolled(userID, courseID uint) bool {
	enrollment, err := s.OrderRepo.FindEnrollment(userID, courseID)
	if err != nil {
		return false
	}
	return enrollment.Active
}

func (s *PaymentService) notifyEnrolled(userID uint, course *model.Course) {
	if s.Email == nil {
		return
	}
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return
	}
	s.Email.SendEnrollmentConfirmed(user, course)
}
