package services

import (
	"fmt"
	"html/template"
	"log"
	"time"

	"gorm.io/gorm"

	"algo-asset-api/config"
	"algo-asset-api/models"
	"algo-asset-api/utils"
)

// NotificationContent is a rendered notification before delivery. Templates
// are pure; channel sets are fixed per event type so delivery behaviour is
// deterministic.
type NotificationContent struct {
	Title    string
	Content  string
	Type     string
	Channels []string
}

/* ==========================
   Templates
   ========================== */

// TemplateSubmitApplication renders the "new application awaiting action"
// notice for team leads. The workflow service deliberately does not send
// this on Submit; the presentation layer may.
func TemplateSubmitApplication(applicantName, algorithmName string) NotificationContent {
	return NotificationContent{
		Title:    "新算法申请待审批",
		Content:  fmt.Sprintf("%s提交了《%s》算法申请，请尽快发起评审流程。", applicantName, algorithmName),
		Type:     models.NotifyStatusUpdate,
		Channels: []string{models.ChannelInternal, models.ChannelChat},
	}
}

// TemplateAssignReview renders the review task notice sent to each reviewer.
func TemplateAssignReview(algorithmName, deadline string) NotificationContent {
	return NotificationContent{
		Title:    "算法评审任务分配",
		Content:  fmt.Sprintf("您被指派评审《%s》算法，请在%s前完成评审。", algorithmName, deadline),
		Type:     models.NotifyReviewRequest,
		Channels: []string{models.ChannelInternal, models.ChannelEmail},
	}
}

// TemplateReviewCompleted renders the progress/completion notice for the
// review initiator.
func TemplateReviewCompleted(algorithmName string, completed, total int) NotificationContent {
	if completed == total {
		return NotificationContent{
			Title:    "算法评审已完成",
			Content:  fmt.Sprintf("《%s》所有评审人已完成评审，请确认评审结果。", algorithmName),
			Type:     models.NotifyReviewCompleted,
			Channels: []string{models.ChannelInternal, models.ChannelChat},
		}
	}
	return NotificationContent{
		Title:    "算法评审进度更新",
		Content:  fmt.Sprintf("《%s》评审进度：%d/%d 已完成。", algorithmName, completed, total),
		Type:     models.NotifyReviewCompleted,
		Channels: []string{models.ChannelInternal, models.ChannelChat},
	}
}

// TemplateApprovalResult renders the confirmation outcome for the owner.
func TemplateApprovalResult(algorithmName string, approved bool, nextStep string) NotificationContent {
	resultText := "已通过"
	channel := models.ChannelEmail
	if !approved {
		resultText = "需修改"
		channel = models.ChannelChat
	}
	content := fmt.Sprintf("《%s》审批%s", algorithmName, resultText)
	if nextStep != "" {
		content += "，" + nextStep
	}
	content += "。"
	return NotificationContent{
		Title:    "算法审批" + resultText,
		Content:  content,
		Type:     models.NotifyApprovalResult,
		Channels: []string{models.ChannelInternal, channel},
	}
}

// TemplateStatusChanged renders hand-off and deprecation notices.
func TemplateStatusChanged(algorithmName, statusText string) NotificationContent {
	return NotificationContent{
		Title:    "算法状态更新",
		Content:  fmt.Sprintf("《%s》%s。", algorithmName, statusText),
		Type:     models.NotifyStatusUpdate,
		Channels: []string{models.ChannelInternal, models.ChannelChat},
	}
}

// TemplateOverdueReminder renders the overdue nag sent by the sweep.
func TemplateOverdueReminder(algorithmName string, daysPassed int, roleLabel string) NotificationContent {
	return NotificationContent{
		Title:    "算法评审超时提醒",
		Content:  fmt.Sprintf("《%s》%s任务已超时%d天，请尽快处理。", algorithmName, roleLabel, daysPassed),
		Type:     models.NotifyOverdueReminder,
		Channels: []string{models.ChannelChat},
	}
}

/* ==========================
   Delivery
   ========================== */

// createNotification persists one notification row inside the caller's
// transaction. Email delivery happens after commit via DeliverEmails.
func createNotification(tx *gorm.DB, recipient *models.User, nc NotificationContent, algorithmID *uint) (*models.Notification, error) {
	n := &models.Notification{
		RecipientID:        recipient.UserID,
		RecipientName:      recipient.Name,
		Title:              nc.Title,
		Content:            nc.Content,
		Type:               nc.Type,
		Channels:           nc.Channels,
		RelatedAlgorithmID: algorithmID,
		IsRead:             false,
		CreateAt:           time.Now(),
	}
	if err := tx.Create(n).Error; err != nil {
		return nil, storageError(err)
	}
	return n, nil
}

// pendingEmail is a notification whose channel set includes email, queued
// until the surrounding transaction commits.
type pendingEmail struct {
	to      string
	subject string
	name    string
	body    string
}

func queueEmail(queue []pendingEmail, recipient *models.User, nc NotificationContent) []pendingEmail {
	for _, ch := range nc.Channels {
		if ch == models.ChannelEmail && utils.ValidateEmail(recipient.Email) {
			return append(queue, pendingEmail{
				to:      recipient.Email,
				subject: nc.Title,
				name:    recipient.Name,
				body:    nc.Content,
			})
		}
	}
	return queue
}

// DeliverEmails sends queued notification emails in the background. Mail
// failures are logged and never fail the workflow write that produced them.
func DeliverEmails(queue []pendingEmail) {
	for _, m := range queue {
		m := m
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[mail] panic while sending to %s: %v", m.to, r)
				}
			}()
			html := buildNotificationEmailHTML(m.subject, m.name, m.body)
			if err := config.SendMail([]string{m.to}, m.subject, html); err != nil {
				log.Printf("[mail] send to %s failed: %v", m.to, err)
			}
		}()
	}
}

func buildNotificationEmailHTML(subject, recipientName, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h3>%s</h3>
  <p>%s：</p>
  <p>%s</p>
  <p style="color:#888;font-size:12px;">此邮件由算法资产管理系统自动发送，请勿直接回复。</p>
</body>
</html>`,
		template.HTMLEscapeString(subject),
		template.HTMLEscapeString(recipientName),
		template.HTMLEscapeString(message),
	)
}
