// internal/services/notification_service.go
package services

import (
	"fmt"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/config"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
)

// NotificationService is a best-effort side channel. When email is
// disabled (the default) every send is a no-op; a send failure is logged
// and never propagates to the transition that triggered it.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

func NewNotificationService(db *gorm.DB, cfg *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: cfg,
	}
}

func (s *NotificationService) SendSubscriptionPendingApproval(subscription *models.Subscription) {
	subject := fmt.Sprintf("Subscription %s awaits approval", subscription.Code)
	body := fmt.Sprintf(
		"Subscription %s (%s) has been created and awaits POC approval for department %s.",
		subscription.Code, subscription.ToolName, subscription.DepartmentID,
	)
	s.notifyDepartmentPOCs(subscription.DepartmentID, subject, body)
}

func (s *NotificationService) SendCycleAwaitingApproval(cycle *models.PaymentCycle) {
	var subscription models.Subscription
	if err := s.db.First(&subscription, "id = ?", cycle.SubscriptionID).Error; err != nil {
		logrus.WithError(err).Warn("Skipping cycle notification, subscription lookup failed")
		return
	}

	subject := fmt.Sprintf("Payment cycle %d for %s awaits approval", cycle.CycleNumber, subscription.Code)
	body := fmt.Sprintf(
		"Payment for cycle %d of subscription %s (%s) was recorded and awaits POC approval.",
		cycle.CycleNumber, subscription.Code, subscription.ToolName,
	)
	s.notifyDepartmentPOCs(subscription.DepartmentID, subject, body)
}

func (s *NotificationService) SendCycleDeclined(cycle *models.PaymentCycle) {
	var subscription models.Subscription
	if err := s.db.First(&subscription, "id = ?", cycle.SubscriptionID).Error; err != nil {
		logrus.WithError(err).Warn("Skipping cycle notification, subscription lookup failed")
		return
	}

	var creator models.User
	if err := s.db.First(&creator, "id = ?", subscription.CreatedByID).Error; err != nil {
		logrus.WithError(err).Warn("Skipping cycle notification, creator lookup failed")
		return
	}

	subject := fmt.Sprintf("Renewal for %s was declined", subscription.Code)
	body := fmt.Sprintf(
		"Cycle %d of subscription %s (%s) was declined: %s. The subscription has been discontinued.",
		cycle.CycleNumber, subscription.Code, subscription.ToolName, cycle.POCRejectionReason,
	)
	s.sendEmail(creator.Email, subject, body)
}

func (s *NotificationService) notifyDepartmentPOCs(departmentID uuid.UUID, subject, body string) {
	var pocs []models.User
	err := s.db.Where("role = ? AND status = ? AND id IN (SELECT user_id FROM user_departments WHERE department_id = ?)",
		models.RolePOC, models.UserStatusActive, departmentID).
		Find(&pocs).Error
	if err != nil {
		logrus.WithError(err).Warn("Skipping notification, POC lookup failed")
		return
	}

	for _, poc := range pocs {
		s.sendEmail(poc.Email, subject, body)
	}
}

func (s *NotificationService) sendEmail(to, subject, body string) {
	if !s.config.Email.Enabled {
		return
	}

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.config.Email.FromName, s.config.Email.FromEmail, to, subject, body,
	))

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)
	addr := s.config.Email.SMTPHost + ":" + s.config.Email.SMTPPort

	if err := smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg); err != nil {
		logrus.WithError(err).WithField("to", to).Error("Failed to send notification email")
	}
}
