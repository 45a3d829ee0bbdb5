package services

import (
	"context"
	"time"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/core/domain"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Loan event types
const (
	EventLoanRequested = "loan.requested"
	EventLoanApproved  = "loan.approved"
	EventLoanRejected  = "loan.rejected"
	EventLoanReturned  = "loan.returned"
	EventLoanExtended  = "loan.extended"
	EventLoanOverdue   = "loan.overdue"
)

// LoanEvent is the payload published for every loan transition
type LoanEvent struct {
	Type        string            `json:"type"`
	LoanID      uint              `json:"loan_id"`
	Code        string            `json:"kode_peminjaman"`
	UserID      uint              `json:"user_id"`
	BookID      uint              `json:"buku_id"`
	Status      domain.LoanStatus `json:"status"`
	DueDate     *string           `json:"tanggal_kembali,omitempty"`
	OverdueDays int               `json:"hari_terlambat,omitempty"`
	Fine        int64             `json:"denda,omitempty"`
	Reason      string            `json:"alasan,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Notifier receives loan events after they are committed
type Notifier interface {
	Publish(ctx context.Context, event LoanEvent)
}

// NotificationService publishes loan events to a redis channel so the
// front-end and mail workers can react. Publishing never fails a loan
// operation; errors are only logged.
type NotificationService struct {
	client  *redis.Client
	channel string
	enabled bool
	log     *zap.Logger
}

// NewNotificationService creates a new notification service. A nil client disables publishing.
func NewNotificationService(client *redis.Client, channel string, log *zap.Logger) *NotificationService {
	return &NotificationService{
		client:  client,
		channel: channel,
		enabled: client != nil,
		log:     log,
	}
}

// IsEnabled checks if notification is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// Publish sends the event to the loan channel
func (s *NotificationService) Publish(ctx context.Context, event LoanEvent) {
	if !s.enabled {
		s.log.Debug("loan event", zap.String("type", event.Type), zap.Uint("loan_id", event.LoanID))
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to encode loan event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	// detach from the request so a client disconnect does not drop the event
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := s.client.Publish(pubCtx, s.channel, payload).Err(); err != nil {
		s.log.Warn("failed to publish loan event",
			zap.String("type", event.Type),
			zap.Uint("loan_id", event.LoanID),
			zap.Error(err),
		)
	}
}

// newLoanEvent builds an event from the loan row as it is after the transition
func newLoanEvent(eventType string, loan *models.Loan, at time.Time) LoanEvent {
	return LoanEvent{
		Type:        eventType,
		LoanID:      loan.ID,
		Code:        loan.Code,
		UserID:      loan.UserID,
		BookID:      loan.BookID,
		Status:      loan.Status,
		DueDate:     domain.FormatDate(loan.DueDate),
		OverdueDays: loan.OverdueDays,
		Fine:        loan.Fine,
		Reason:      loan.RejectReason,
		OccurredAt:  at,
	}
}
