package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"boxflow/internal/class"
	"boxflow/internal/email"
	"boxflow/internal/logger"
	"boxflow/internal/member"
	"boxflow/internal/metrics"
	"boxflow/internal/payment"
	"boxflow/internal/subscription"
)

// Price of a single check-in for members without a usable subscription.
const dropInPriceCents int64 = 2500

var (
	ErrClassNotFound     = errors.New("class not found")
	ErrClassFull         = errors.New("class is full")
	ErrAlreadyCheckedIn  = errors.New("member already checked in to this class")
	ErrCancelFailed      = errors.New("failed to cancel existing check-in")
	ErrCheckInFailed     = errors.New("failed to create check-in")
	ErrInsufficientFunds = errors.New("insufficient account balance")
)

type Service interface {
	RequestCheckIn(ctx context.Context, memberID, classID int) (*CheckInResult, error)
	CancelCheckIn(ctx context.Context, memberID, classID int) error
	ChangeCheckIn(ctx context.Context, memberID, fromClassID, toClassID int) (*ChangeResult, error)
	VerifyAvailability(ctx context.Context, classID, memberID int) (*Availability, error)
	GetMemberCheckIns(ctx context.Context, memberID int) ([]CheckInWithClass, error)
	GetClassRoster(ctx context.Context, classID int) ([]RosterEntry, error)
}

type service struct {
	repo             Repository
	classRepo        class.Repository
	memberRepo       member.Repository
	subscriptionRepo subscription.Repository
	paymentRepo      payment.Repository
	emailService     *email.Service
}

func NewService(
	repo Repository,
	classRepo class.Repository,
	memberRepo member.Repository,
	subscriptionRepo subscription.Repository,
	paymentRepo payment.Repository,
	emailService *email.Service,
) Service {
	return &service{
		repo:             repo,
		classRepo:        classRepo,
		memberRepo:       memberRepo,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		emailService:     emailService,
	}
}

// RequestCheckIn decides a member's check-in request for a class. A
// confirmed check-in on another class of the same calendar date returns
// a Conflict instead of an error, so the caller can offer the
// change-class flow. No row is written on any conflict or failure path.
func (s *service) RequestCheckIn(ctx context.Context, memberID, classID int) (*CheckInResult, error) {
	conflicts, err := s.repo.FindSameDayCheckIns(ctx, memberID, classID)
	if err != nil {
		return nil, fmt.Errorf("conflict scan: %w", err)
	}

	if len(conflicts) > 0 {
		// Multiple same-day check-ins should not exist, but historical
		// data can contain them; pick the first row the store returned.
		metrics.RecordCheckInConflict()
		return &CheckInResult{Conflict: conflictFrom(conflicts[0])}, nil
	}

	avail, err := s.VerifyAvailability(ctx, classID, memberID)
	if err != nil {
		return nil, err
	}

	if !avail.ClassExists {
		metrics.RecordCheckIn("class_not_found")
		return nil, ErrClassNotFound
	}
	if !avail.HasCapacity {
		metrics.RecordCheckIn("class_full")
		return nil, ErrClassFull
	}
	if avail.MemberCheckedIn {
		metrics.RecordCheckIn("already_checked_in")
		return nil, ErrAlreadyCheckedIn
	}

	ci, err := s.repo.InsertCheckIn(ctx, memberID, classID)
	if err != nil {
		// The guarded insert re-checks under lock, so a concurrent
		// request can still lose the last spot here.
		switch {
		case errors.Is(err, ErrClassNotFound), errors.Is(err, ErrClassFull), errors.Is(err, ErrAlreadyCheckedIn):
			metrics.RecordCheckIn("lost_race")
			return nil, err
		}
		return nil, fmt.Errorf("insert check-in: %w", err)
	}

	method, err := s.settleVisit(ctx, memberID)
	if err != nil {
		if _, derr := s.repo.DeleteCheckIn(ctx, memberID, classID); derr != nil {
			logger.Error("failed to release check-in after settlement failure",
				"member_id", memberID,
				"class_id", classID,
				"error", derr,
			)
		}
		metrics.RecordCheckIn("payment_failed")
		return nil, err
	}

	metrics.RecordCheckIn("success")
	s.notifyCheckIn(ctx, memberID, classID)

	return &CheckInResult{CheckIn: ci, Payment: method}, nil
}

// settleVisit consumes a visit from the member's active subscription.
// Members without an active plan, or with their visit pack exhausted,
// pay the drop-in price from their account instead.
func (s *service) settleVisit(ctx context.Context, memberID int) (string, error) {
	sub, err := s.subscriptionRepo.GetActiveForMember(ctx, memberID)
	if err == nil && sub.Status == subscription.StatusActive &&
		(sub.VisitsLimit == nil || sub.VisitsUsed < *sub.VisitsLimit) {
		if err := s.subscriptionRepo.IncrementVisits(ctx, sub.ID); err != nil {
			// The check-in stands; the visit goes unrecorded.
			logger.Error("failed to record subscription visit",
				"member_id", memberID,
				"subscription_id", sub.ID,
				"error", err,
			)
		}
		return PaymentSubscription, nil
	}

	if err := s.paymentRepo.AddTransaction(ctx, memberID, -dropInPriceCents, "checkin_payment"); err != nil {
		if errors.Is(err, payment.ErrInsufficientBalance) {
			return "", ErrInsufficientFunds
		}
		return "", fmt.Errorf("drop-in charge: %w", err)
	}
	metrics.RecordPayment("checkin")

	return PaymentDropIn, nil
}

// CancelCheckIn deletes the member's confirmed check-in on the class.
// Cancelling a check-in that does not exist is not an error.
func (s *service) CancelCheckIn(ctx context.Context, memberID, classID int) error {
	removed, err := s.repo.DeleteCheckIn(ctx, memberID, classID)
	if err != nil {
		return fmt.Errorf("cancel check-in: %w", err)
	}

	if removed > 0 {
		metrics.RecordCheckInCancellation()
		s.notifyCancellation(ctx, memberID, classID)
	}

	return nil
}

// ChangeCheckIn moves the member's check-in from one class to another
// after the member confirmed displacing the original. The delete and
// insert are separate store writes; when the insert leg fails the
// original check-in is restored best-effort, and the Outcome reports
// whether that restoration held. The move reuses the visit settled by
// the original check-in, so nothing new is consumed or charged.
func (s *service) ChangeCheckIn(ctx context.Context, memberID, fromClassID, toClassID int) (*ChangeResult, error) {
	if _, err := s.repo.DeleteCheckIn(ctx, memberID, fromClassID); err != nil {
		metrics.RecordClassChange(string(ChangeFailedRestored))
		return &ChangeResult{Outcome: ChangeFailedRestored}, ErrCancelFailed
	}

	avail, err := s.VerifyAvailability(ctx, toClassID, memberID)
	if err != nil {
		outcome := s.restoreCheckIn(ctx, memberID, fromClassID)
		metrics.RecordClassChange(string(outcome))
		return &ChangeResult{Outcome: outcome}, ErrCheckInFailed
	}

	if !avail.ClassExists {
		outcome := s.restoreCheckIn(ctx, memberID, fromClassID)
		metrics.RecordClassChange(string(outcome))
		return &ChangeResult{Outcome: outcome}, ErrClassNotFound
	}
	if !avail.HasCapacity {
		outcome := s.restoreCheckIn(ctx, memberID, fromClassID)
		metrics.RecordClassChange(string(outcome))
		return &ChangeResult{Outcome: outcome}, ErrClassFull
	}

	ci, err := s.repo.InsertCheckIn(ctx, memberID, toClassID)
	if err != nil {
		outcome := s.restoreCheckIn(ctx, memberID, fromClassID)
		metrics.RecordClassChange(string(outcome))
		switch {
		case errors.Is(err, ErrClassNotFound), errors.Is(err, ErrClassFull), errors.Is(err, ErrAlreadyCheckedIn):
			return &ChangeResult{Outcome: outcome}, err
		}
		return &ChangeResult{Outcome: outcome}, ErrCheckInFailed
	}

	metrics.RecordClassChange(string(ChangeSucceeded))
	s.notifyClassChange(ctx, memberID, toClassID)

	return &ChangeResult{Outcome: ChangeSucceeded, CheckIn: ci}, nil
}

// restoreCheckIn re-inserts the displaced check-in. Its own failure is
// logged but not escalated; the member may be left without a check-in.
func (s *service) restoreCheckIn(ctx context.Context, memberID, fromClassID int) ChangeOutcome {
	if _, err := s.repo.InsertCheckIn(ctx, memberID, fromClassID); err != nil {
		logger.Error("failed to restore check-in after aborted class change",
			"member_id", memberID,
			"class_id", fromClassID,
			"error", err,
		)
		return ChangeFailedStateUnknown
	}
	return ChangeFailedRestored
}

// VerifyAvailability is a pure read used both as a pre-flight UI check
// and internally before writes.
func (s *service) VerifyAvailability(ctx context.Context, classID, memberID int) (*Availability, error) {
	cls, err := s.classRepo.GetClassByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Availability{}, nil
		}
		return nil, fmt.Errorf("load class: %w", err)
	}

	count, err := s.repo.CountConfirmedForClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}

	checkedIn, err := s.repo.HasConfirmedCheckIn(ctx, memberID, classID)
	if err != nil {
		return nil, fmt.Errorf("check existing check-in: %w", err)
	}

	return &Availability{
		ClassExists:     true,
		HasCapacity:     count < cls.Capacity,
		MemberCheckedIn: checkedIn,
		Capacity:        cls.Capacity,
		ConfirmedCount:  count,
	}, nil
}

func (s *service) GetMemberCheckIns(ctx context.Context, memberID int) ([]CheckInWithClass, error) {
	return s.repo.ListMemberCheckIns(ctx, memberID)
}

func (s *service) GetClassRoster(ctx context.Context, classID int) ([]RosterEntry, error) {
	return s.repo.ListClassRoster(ctx, classID)
}

func conflictFrom(ci CheckInWithClass) *Conflict {
	c := &Conflict{
		ClassID:     ci.ClassID,
		ProgramName: defaultProgramName,
		StartTime:   defaultStartTime,
	}
	if ci.ProgramName.Valid && ci.ProgramName.String != "" {
		c.ProgramName = ci.ProgramName.String
	}
	if ci.StartTime.Valid && ci.StartTime.String != "" {
		c.StartTime = ci.StartTime.String
	}
	return c
}

func (s *service) notifyCheckIn(ctx context.Context, memberID, classID int) {
	m, cls := s.loadNotifyData(ctx, memberID, classID)
	if m == nil || cls == nil {
		return
	}
	s.emailService.SendCheckInConfirmation(ctx, m.Email, m.Name, cls.ProgramName, cls.Date.Format("2006-01-02"), cls.StartTime)
}

func (s *service) notifyCancellation(ctx context.Context, memberID, classID int) {
	m, cls := s.loadNotifyData(ctx, memberID, classID)
	if m == nil || cls == nil {
		return
	}
	s.emailService.SendCheckInCancellation(ctx, m.Email, m.Name, cls.ProgramName, cls.Date.Format("2006-01-02"))
}

func (s *service) notifyClassChange(ctx context.Context, memberID, classID int) {
	m, cls := s.loadNotifyData(ctx, memberID, classID)
	if m == nil || cls == nil {
		return
	}
	s.emailService.SendClassChangeConfirmation(ctx, m.Email, m.Name, cls.ProgramName, cls.Date.Format("2006-01-02"), cls.StartTime)
}

func (s *service) loadNotifyData(ctx context.Context, memberID, classID int) (*member.Member, *class.Class) {
	m, _ := s.memberRepo.FindByID(ctx, memberID)
	cls, _ := s.classRepo.GetClassByID(ctx, classID)
	return m, cls
}
