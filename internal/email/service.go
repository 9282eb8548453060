package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"boxflow/internal/logger"
	"boxflow/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Type    string    `json:"type"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	return s.enqueue(ctx, EmailJob{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Type:    "generic",
		Created: time.Now(),
	})
}

func (s *Service) enqueue(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", job.To, err)
		return err
	}

	logger.Infof("Email queued: %s to %s", job.Subject, job.To)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Sending email to %s (attempt %d)", job.To, job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.To, maxTries)
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "success")
	logger.Infof("Email sent successfully to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendCheckInConfirmation(ctx context.Context, to, name, programName, date, startTime string) error {
	subject := "Check-in Confirmed - " + programName
	body := fmt.Sprintf(`Hi %s,

You're checked in!

Class: %s
Date: %s
Time: %s

See you at the box!

- BoxFlow Team`, name, programName, date, startTime)

	return s.enqueue(ctx, EmailJob{
		To: to, Name: name, Subject: subject, Body: body,
		Type: "checkin_confirmation", Created: time.Now(),
	})
}

func (s *Service) SendCheckInCancellation(ctx context.Context, to, name, programName, date string) error {
	subject := "Check-in Cancelled - " + programName
	body := fmt.Sprintf(`Hi %s,

Your check-in has been cancelled:

Class: %s
Date: %s

- BoxFlow Team`, name, programName, date)

	return s.enqueue(ctx, EmailJob{
		To: to, Name: name, Subject: subject, Body: body,
		Type: "checkin_cancellation", Created: time.Now(),
	})
}

func (s *Service) SendClassChangeConfirmation(ctx context.Context, to, name, programName, date, startTime string) error {
	subject := "Class Changed - " + programName
	body := fmt.Sprintf(`Hi %s,

Your check-in was moved to a new class:

Class: %s
Date: %s
Time: %s

See you there!

- BoxFlow Team`, name, programName, date, startTime)

	return s.enqueue(ctx, EmailJob{
		To: to, Name: name, Subject: subject, Body: body,
		Type: "class_change", Created: time.Now(),
	})
}

func (s *Service) SendSubscriptionReceipt(ctx context.Context, to, name, plan string, amountCents int64) error {
	subject := "Subscription Receipt - " + plan
	body := fmt.Sprintf(`Hi %s,

Thanks for your payment!

Plan: %s
Amount: R$ %.2f

- BoxFlow Team`, name, plan, float64(amountCents)/100)

	return s.enqueue(ctx, EmailJob{
		To: to, Name: name, Subject: subject, Body: body,
		Type: "subscription_receipt", Created: time.Now(),
	})
}
