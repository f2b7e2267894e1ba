package service

import (
	"fmt"
	"maintech_backend/internal/config"
	"maintech_backend/internal/model"
	"maintech_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailService SendGrid 封装。发送失败只记日志，绝不阻断主流程。
type EmailService struct {
	Cfg *config.EmailConfig
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{Cfg: cfg}
}

func (s *EmailService) send(toName, toEmail, subject, plain, html string) {
	if !s.Cfg.Enabled || s.Cfg.SendGridKey == "" {
		return
	}

	from := mail.NewEmail(s.Cfg.FromName, s.Cfg.FromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	client := sendgrid.NewSendClient(s.Cfg.SendGridKey)
	resp, err := client.Send(message)
	if err != nil {
		logger.Log.Error("Failed to send email", zap.String("to", toEmail), zap.Error(err))
		return
	}
	if resp.StatusCode >= 400 {
		logger.Log.Error("SendGrid rejected email",
			zap.String("to", toEmail),
			zap.Int("status", resp.StatusCode),
			zap.String("body", resp.Body))
	}
}

func (s *EmailService) SendEnrollmentConfirmed(user *model.User, course *model.Course) {
	subject := fmt.Sprintf("¡Bienvenido al curso %s!", course.Title)
	plain := fmt.Sprintf("Hola %s, tu inscripción al curso %s ya está activa.", user.Name, course.Title)
	html := fmt.Sprintf("<p>Hola %s,</p><p>Tu inscripción al curso <strong>%s</strong> ya está activa.</p>",
		user.Name, course.Title)
	go s.send(user.Name, user.Email, subject, plain, html)
}

func (s *EmailService) SendCertificateIssued(user *model.User, course *model.Course, cert *model.Certificate) {
	subject := fmt.Sprintf("Tu certificado del curso %s", course.Title)
	plain := fmt.Sprintf("Hola %s, completaste el curso %s. Código de verificación: %s",
		user.Name, course.Title, cert.Code)
	html := fmt.Sprintf("<p>Hola %s,</p><p>Completaste el curso <strong>%s</strong>.</p><p>Código de verificación: <code>%s</code></p>",
		user.Name, course.Title, cert.Code)
	go s.send(user.Name, user.Email, subject, plain, html)
}
