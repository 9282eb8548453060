package checkin

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"boxflow/internal/class"
	"boxflow/internal/email"
	"boxflow/internal/member"
	"boxflow/internal/payment"
	"boxflow/internal/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock repositories
type MockCheckInRepo struct{ mock.Mock }
type MockClassRepo struct{ mock.Mock }
type MockMemberRepo struct{ mock.Mock }
type MockSubscriptionRepo struct{ mock.Mock }
type MockPaymentRepo struct{ mock.Mock }

func (m *MockCheckInRepo) InsertCheckIn(ctx context.Context, memberID, classID int) (*CheckIn, error) {
	args := m.Called(ctx, memberID, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckIn), args.Error(1)
}

func (m *MockCheckInRepo) DeleteCheckIn(ctx context.Context, memberID, classID int) (int64, error) {
	args := m.Called(ctx, memberID, classID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCheckInRepo) CountConfirmedForClass(ctx context.Context, classID int) (int, error) {
	args := m.Called(ctx, classID)
	return args.Int(0), args.Error(1)
}

func (m *MockCheckInRepo) HasConfirmedCheckIn(ctx context.Context, memberID, classID int) (bool, error) {
	args := m.Called(ctx, memberID, classID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCheckInRepo) FindSameDayCheckIns(ctx context.Context, memberID, targetClassID int) ([]CheckInWithClass, error) {
	args := m.Called(ctx, memberID, targetClassID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CheckInWithClass), args.Error(1)
}

func (m *MockCheckInRepo) ListMemberCheckIns(ctx context.Context, memberID int) ([]CheckInWithClass, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CheckInWithClass), args.Error(1)
}

func (m *MockCheckInRepo) ListClassRoster(ctx context.Context, classID int) ([]RosterEntry, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RosterEntry), args.Error(1)
}

func (m *MockClassRepo) CreateClass(ctx context.Context, date time.Time, startTime, endTime string, capacity int, programName, coachName string) (*class.Class, error) {
	args := m.Called(ctx, date, startTime, endTime, capacity, programName, coachName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*class.Class), args.Error(1)
}

func (m *MockClassRepo) GetClassByID(ctx context.Context, id int) (*class.Class, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*class.Class), args.Error(1)
}

func (m *MockClassRepo) ListClassesByDate(ctx context.Context, date time.Time) ([]class.Class, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]class.Class), args.Error(1)
}

func (m *MockClassRepo) ListClassesWithAvailability(ctx context.Context, date time.Time) ([]class.ClassWithAvailability, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]class.ClassWithAvailability), args.Error(1)
}

func (m *MockMemberRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*member.Member, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepo) FindByEmail(ctx context.Context, email string) (*member.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepo) FindByID(ctx context.Context, id int) (*member.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepo) CreateSubscription(ctx context.Context, memberID int, ptype subscription.PlanType, priceCents int64, visitsLimit *int) (*subscription.Subscription, error) {
	args := m.Called(ctx, memberID, ptype, priceCents, visitsLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) GetActiveForMember(ctx context.Context, memberID int) (*subscription.Subscription, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) IncrementVisits(ctx context.Context, subID int) error {
	args := m.Called(ctx, subID)
	return args.Error(0)
}

func (m *MockSubscriptionRepo) ListActiveByMember(ctx context.Context, memberID int) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) ListByMember(ctx context.Context, memberID int) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *MockPaymentRepo) GetOrCreateAccount(ctx context.Context, memberID int) (*payment.Account, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Account), args.Error(1)
}

func (m *MockPaymentRepo) AddTransaction(ctx context.Context, memberID int, amountCents int64, txType string) error {
	args := m.Called(ctx, memberID, amountCents, txType)
	return args.Error(0)
}

func (m *MockPaymentRepo) TopUp(ctx context.Context, memberID int, amountCents int64) error {
	args := m.Called(ctx, memberID, amountCents)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetTransactions(ctx context.Context, memberID int, limit, offset int) ([]payment.Transaction, error) {
	args := m.Called(ctx, memberID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Transaction), args.Error(1)
}

// newTestService wires a service whose member has no subscription and
// a funded account, so settlement falls through to a drop-in charge.
func newTestService(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) Service {
	sr := new(MockSubscriptionRepo)
	pr := new(MockPaymentRepo)
	sr.On("GetActiveForMember", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Maybe()
	pr.On("AddTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return newBillingTestService(cr, clr, mr, sr, pr)
}

func newBillingTestService(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo, sr *MockSubscriptionRepo, pr *MockPaymentRepo) Service {
	emailService := email.New("from@test.com", "Test", "localhost", "1025", "", "", "localhost:6379")
	return NewService(cr, clr, mr, sr, pr, emailService)
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func expectNotify(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo, memberID, classID int) {
	mr.On("FindByID", mock.Anything, memberID).Return(&member.Member{
		ID:    memberID,
		Name:  "Maria",
		Email: "maria@example.com",
	}, nil)
	clr.On("GetClassByID", mock.Anything, classID).Return(&class.Class{
		ID:          classID,
		Date:        time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		StartTime:   "18:00",
		EndTime:     "19:00",
		Capacity:    15,
		ProgramName: "CrossFit",
	}, nil)
}

func TestService_RequestCheckIn(t *testing.T) {
	tests := []struct {
		name         string
		memberID     int
		classID      int
		setupMocks   func(*MockCheckInRepo, *MockClassRepo, *MockMemberRepo)
		wantErr      error
		wantCheckIn  bool
		wantConflict *Conflict
	}{
		{
			name:     "successful check-in on free class with no same-day conflict",
			memberID: 1,
			classID:  10,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 10).Return([]CheckInWithClass{}, nil)
				clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{
					ID: 10, Capacity: 15, ProgramName: "CrossFit", StartTime: "18:00",
				}, nil).Once()
				cr.On("CountConfirmedForClass", mock.Anything, 10).Return(7, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(false, nil)
				cr.On("InsertCheckIn", mock.Anything, 1, 10).Return(&CheckIn{
					ID: 100, MemberID: 1, ClassID: 10, Status: StatusConfirmed,
				}, nil)
				expectNotify(cr, clr, mr, 1, 10)
			},
			wantCheckIn: true,
		},
		{
			name:     "same-day check-in returns conflict without writing",
			memberID: 1,
			classID:  20,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 20).Return([]CheckInWithClass{
					{
						CheckIn:     CheckIn{ID: 50, MemberID: 1, ClassID: 11, Status: StatusConfirmed},
						ProgramName: nullStr("CrossFit"),
						StartTime:   nullStr("06:00"),
					},
				}, nil)
			},
			wantConflict: &Conflict{ClassID: 11, ProgramName: "CrossFit", StartTime: "06:00"},
		},
		{
			name:     "conflict with missing class display data uses fallbacks",
			memberID: 1,
			classID:  20,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 20).Return([]CheckInWithClass{
					{CheckIn: CheckIn{ID: 51, MemberID: 1, ClassID: 12, Status: StatusConfirmed}},
				}, nil)
			},
			wantConflict: &Conflict{ClassID: 12, ProgramName: "Aula", StartTime: "00:00"},
		},
		{
			name:     "conflict check runs before class existence check",
			memberID: 1,
			classID:  999,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 999).Return([]CheckInWithClass{
					{
						CheckIn:     CheckIn{ID: 52, MemberID: 1, ClassID: 13, Status: StatusConfirmed},
						ProgramName: nullStr("Yoga"),
						StartTime:   nullStr("07:30"),
					},
				}, nil)
			},
			wantConflict: &Conflict{ClassID: 13, ProgramName: "Yoga", StartTime: "07:30"},
		},
		{
			name:     "class not found",
			memberID: 1,
			classID:  999,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 999).Return([]CheckInWithClass{}, nil)
				clr.On("GetClassByID", mock.Anything, 999).Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrClassNotFound,
		},
		{
			name:     "class full",
			memberID: 1,
			classID:  10,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 10).Return([]CheckInWithClass{}, nil)
				clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{ID: 10, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 10).Return(15, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(false, nil)
			},
			wantErr: ErrClassFull,
		},
		{
			name:     "already checked in to the same class",
			memberID: 1,
			classID:  10,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 10).Return([]CheckInWithClass{}, nil)
				clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{ID: 10, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 10).Return(7, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(true, nil)
			},
			wantErr: ErrAlreadyCheckedIn,
		},
		{
			name:     "concurrent request loses the last spot in the guarded insert",
			memberID: 1,
			classID:  10,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 10).Return([]CheckInWithClass{}, nil)
				clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{ID: 10, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 10).Return(14, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(false, nil)
				cr.On("InsertCheckIn", mock.Anything, 1, 10).Return(nil, ErrClassFull)
			},
			wantErr: ErrClassFull,
		},
		{
			name:     "conflict scan failure is reported",
			memberID: 1,
			classID:  10,
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("FindSameDayCheckIns", mock.Anything, 1, 10).Return(nil, errors.New("db down"))
			},
			wantErr: errors.New("conflict scan"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr := new(MockCheckInRepo)
			clr := new(MockClassRepo)
			mr := new(MockMemberRepo)
			tt.setupMocks(cr, clr, mr)

			service := newTestService(cr, clr, mr)
			result, err := service.RequestCheckIn(context.Background(), tt.memberID, tt.classID)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, result)
				if tt.wantConflict != nil {
					assert.Nil(t, result.CheckIn)
					assert.Equal(t, tt.wantConflict, result.Conflict)
					cr.AssertNotCalled(t, "InsertCheckIn", mock.Anything, mock.Anything, mock.Anything)
				}
				if tt.wantCheckIn {
					assert.Nil(t, result.Conflict)
					assert.NotNil(t, result.CheckIn)
					assert.Equal(t, StatusConfirmed, result.CheckIn.Status)
				}
			}
			cr.AssertExpectations(t)
			clr.AssertExpectations(t)
		})
	}
}

// expectOpenClass sets up everything RequestCheckIn needs up to and
// including the insert, so settlement tests only vary billing mocks.
func expectOpenClass(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo, memberID, classID int) {
	cr.On("FindSameDayCheckIns", mock.Anything, memberID, classID).Return([]CheckInWithClass{}, nil)
	clr.On("GetClassByID", mock.Anything, classID).Return(&class.Class{
		ID: classID, Capacity: 15, ProgramName: "CrossFit", StartTime: "18:00",
	}, nil).Once()
	cr.On("CountConfirmedForClass", mock.Anything, classID).Return(5, nil)
	cr.On("HasConfirmedCheckIn", mock.Anything, memberID, classID).Return(false, nil)
	cr.On("InsertCheckIn", mock.Anything, memberID, classID).Return(&CheckIn{
		ID: 200, MemberID: memberID, ClassID: classID, Status: StatusConfirmed,
	}, nil)
}

func visits(n int) *int { return &n }

func TestService_RequestCheckIn_Settlement(t *testing.T) {
	activeSub := func(limit *int, used int) *subscription.Subscription {
		return &subscription.Subscription{
			ID:          7,
			MemberID:    1,
			Type:        subscription.TypeBasic,
			Status:      subscription.StatusActive,
			VisitsLimit: limit,
			VisitsUsed:  used,
		}
	}

	t.Run("visit pack with remaining visits is consumed", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)
		sr := new(MockSubscriptionRepo)
		pr := new(MockPaymentRepo)

		expectOpenClass(cr, clr, mr, 1, 10)
		expectNotify(cr, clr, mr, 1, 10)
		sr.On("GetActiveForMember", mock.Anything, 1).Return(activeSub(visits(8), 3), nil)
		sr.On("IncrementVisits", mock.Anything, 7).Return(nil)

		service := newBillingTestService(cr, clr, mr, sr, pr)
		result, err := service.RequestCheckIn(context.Background(), 1, 10)

		assert.NoError(t, err)
		assert.Equal(t, PaymentSubscription, result.Payment)
		sr.AssertExpectations(t)
		pr.AssertNotCalled(t, "AddTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unlimited plan records the visit", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)
		sr := new(MockSubscriptionRepo)
		pr := new(MockPaymentRepo)

		expectOpenClass(cr, clr, mr, 1, 10)
		expectNotify(cr, clr, mr, 1, 10)
		sr.On("GetActiveForMember", mock.Anything, 1).Return(activeSub(nil, 42), nil)
		sr.On("IncrementVisits", mock.Anything, 7).Return(nil)

		service := newBillingTestService(cr, clr, mr, sr, pr)
		result, err := service.RequestCheckIn(context.Background(), 1, 10)

		assert.NoError(t, err)
		assert.Equal(t, PaymentSubscription, result.Payment)
		sr.AssertExpectations(t)
	})

	t.Run("exhausted visit pack falls back to drop-in charge", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)
		sr := new(MockSubscriptionRepo)
		pr := new(MockPaymentRepo)

		expectOpenClass(cr, clr, mr, 1, 10)
		expectNotify(cr, clr, mr, 1, 10)
		sr.On("GetActiveForMember", mock.Anything, 1).Return(activeSub(visits(8), 8), nil)
		pr.On("AddTransaction", mock.Anything, 1, -dropInPriceCents, "checkin_payment").Return(nil)

		service := newBillingTestService(cr, clr, mr, sr, pr)
		result, err := service.RequestCheckIn(context.Background(), 1, 10)

		assert.NoError(t, err)
		assert.Equal(t, PaymentDropIn, result.Payment)
		pr.AssertExpectations(t)
		sr.AssertNotCalled(t, "IncrementVisits", mock.Anything, mock.Anything)
	})

	t.Run("no subscription and empty account releases the check-in", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)
		sr := new(MockSubscriptionRepo)
		pr := new(MockPaymentRepo)

		expectOpenClass(cr, clr, mr, 1, 10)
		sr.On("GetActiveForMember", mock.Anything, 1).Return(nil, sql.ErrNoRows)
		pr.On("AddTransaction", mock.Anything, 1, -dropInPriceCents, "checkin_payment").Return(payment.ErrInsufficientBalance)
		cr.On("DeleteCheckIn", mock.Anything, 1, 10).Return(int64(1), nil)

		service := newBillingTestService(cr, clr, mr, sr, pr)
		result, err := service.RequestCheckIn(context.Background(), 1, 10)

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Nil(t, result)
		cr.AssertCalled(t, "DeleteCheckIn", mock.Anything, 1, 10)
		mr.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("missed visit increment does not fail the check-in", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)
		sr := new(MockSubscriptionRepo)
		pr := new(MockPaymentRepo)

		expectOpenClass(cr, clr, mr, 1, 10)
		expectNotify(cr, clr, mr, 1, 10)
		sr.On("GetActiveForMember", mock.Anything, 1).Return(activeSub(visits(8), 3), nil)
		sr.On("IncrementVisits", mock.Anything, 7).Return(errors.New("db down"))

		service := newBillingTestService(cr, clr, mr, sr, pr)
		result, err := service.RequestCheckIn(context.Background(), 1, 10)

		assert.NoError(t, err)
		assert.Equal(t, PaymentSubscription, result.Payment)
	})
}

func TestService_CancelCheckIn(t *testing.T) {
	t.Run("cancels existing check-in", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)

		cr.On("DeleteCheckIn", mock.Anything, 1, 10).Return(int64(1), nil)
		expectNotify(cr, clr, mr, 1, 10)

		service := newTestService(cr, clr, mr)
		err := service.CancelCheckIn(context.Background(), 1, 10)

		assert.NoError(t, err)
		cr.AssertExpectations(t)
	})

	t.Run("cancelling a missing check-in succeeds quietly", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)

		cr.On("DeleteCheckIn", mock.Anything, 1, 10).Return(int64(0), nil)

		service := newTestService(cr, clr, mr)
		err := service.CancelCheckIn(context.Background(), 1, 10)

		assert.NoError(t, err)
		mr.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		cr.AssertExpectations(t)
	})

	t.Run("cancel twice stays idempotent", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)

		cr.On("DeleteCheckIn", mock.Anything, 1, 10).Return(int64(1), nil).Once()
		cr.On("DeleteCheckIn", mock.Anything, 1, 10).Return(int64(0), nil).Once()
		expectNotify(cr, clr, mr, 1, 10)

		service := newTestService(cr, clr, mr)
		assert.NoError(t, service.CancelCheckIn(context.Background(), 1, 10))
		assert.NoError(t, service.CancelCheckIn(context.Background(), 1, 10))
		cr.AssertExpectations(t)
	})

	t.Run("store failure is reported", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)

		cr.On("DeleteCheckIn", mock.Anything, 1, 10).Return(int64(0), errors.New("db down"))

		service := newTestService(cr, clr, mr)
		err := service.CancelCheckIn(context.Background(), 1, 10)

		assert.Error(t, err)
	})
}

func TestService_ChangeCheckIn(t *testing.T) {
	tests := []struct {
		name        string
		setupMocks  func(*MockCheckInRepo, *MockClassRepo, *MockMemberRepo)
		wantErr     error
		wantOutcome ChangeOutcome
	}{
		{
			name: "moves the check-in to the new class",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("DeleteCheckIn", mock.Anything, 1, 11).Return(int64(1), nil)
				clr.On("GetClassByID", mock.Anything, 20).Return(&class.Class{ID: 20, Capacity: 15, ProgramName: "Muay Thai", StartTime: "19:00"}, nil).Once()
				cr.On("CountConfirmedForClass", mock.Anything, 20).Return(3, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 20).Return(false, nil)
				cr.On("InsertCheckIn", mock.Anything, 1, 20).Return(&CheckIn{
					ID: 101, MemberID: 1, ClassID: 20, Status: StatusConfirmed,
				}, nil)
				expectNotify(cr, clr, mr, 1, 20)
			},
			wantOutcome: ChangeSucceeded,
		},
		{
			name: "target full, original restored",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("DeleteCheckIn", mock.Anything, 1, 11).Return(int64(1), nil)
				clr.On("GetClassByID", mock.Anything, 20).Return(&class.Class{ID: 20, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 20).Return(15, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 20).Return(false, nil)
				cr.On("InsertCheckIn", mock.Anything, 1, 11).Return(&CheckIn{
					ID: 102, MemberID: 1, ClassID: 11, Status: StatusConfirmed,
				}, nil)
			},
			wantErr:     ErrClassFull,
			wantOutcome: ChangeFailedRestored,
		},
		{
			name: "target missing, original restored",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("DeleteCheckIn", mock.Anything, 1, 11).Return(int64(1), nil)
				clr.On("GetClassByID", mock.Anything, 20).Return(nil, sql.ErrNoRows)
				cr.On("InsertCheckIn", mock.Anything, 1, 11).Return(&CheckIn{
					ID: 103, MemberID: 1, ClassID: 11, Status: StatusConfirmed,
				}, nil)
			},
			wantErr:     ErrClassNotFound,
			wantOutcome: ChangeFailedRestored,
		},
		{
			name: "insert leg loses a race, original restored",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("DeleteCheckIn", mock.Anything, 1, 11).Return(int64(1), nil)
				clr.On("GetClassByID", mock.Anything, 20).Return(&class.Class{ID: 20, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 20).Return(14, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 20).Return(false, nil)
				cr.On("InsertCheckIn", mock.Anything, 1, 20).Return(nil, ErrClassFull)
				cr.On("InsertCheckIn", mock.Anything, 1, 11).Return(&CheckIn{
					ID: 104, MemberID: 1, ClassID: 11, Status: StatusConfirmed,
				}, nil)
			},
			wantErr:     ErrClassFull,
			wantOutcome: ChangeFailedRestored,
		},
		{
			name: "insert and restore both fail, state unknown",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("DeleteCheckIn", mock.Anything, 1, 11).Return(int64(1), nil)
				clr.On("GetClassByID", mock.Anything, 20).Return(&class.Class{ID: 20, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 20).Return(3, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 20).Return(false, nil)
				cr.On("InsertCheckIn", mock.Anything, 1, 20).Return(nil, errors.New("db down"))
				cr.On("InsertCheckIn", mock.Anything, 1, 11).Return(nil, errors.New("db down"))
			},
			wantErr:     ErrCheckInFailed,
			wantOutcome: ChangeFailedStateUnknown,
		},
		{
			name: "delete leg fails, nothing else attempted",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo, mr *MockMemberRepo) {
				cr.On("DeleteCheckIn", mock.Anything, 1, 11).Return(int64(0), errors.New("db down"))
			},
			wantErr:     ErrCancelFailed,
			wantOutcome: ChangeFailedRestored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr := new(MockCheckInRepo)
			clr := new(MockClassRepo)
			mr := new(MockMemberRepo)
			tt.setupMocks(cr, clr, mr)

			service := newTestService(cr, clr, mr)
			result, err := service.ChangeCheckIn(context.Background(), 1, 11, 20)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, result.CheckIn)
				assert.Equal(t, 20, result.CheckIn.ClassID)
			}
			assert.NotNil(t, result)
			assert.Equal(t, tt.wantOutcome, result.Outcome)
			cr.AssertExpectations(t)
			clr.AssertExpectations(t)
		})
	}

	t.Run("moving a check-in does not consume a new visit", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)
		sr := new(MockSubscriptionRepo)
		pr := new(MockPaymentRepo)

		cr.On("DeleteCheckIn", mock.Anything, 1, 11).Return(int64(1), nil)
		clr.On("GetClassByID", mock.Anything, 20).Return(&class.Class{ID: 20, Capacity: 15, ProgramName: "Muay Thai", StartTime: "19:00"}, nil)
		cr.On("CountConfirmedForClass", mock.Anything, 20).Return(3, nil)
		cr.On("HasConfirmedCheckIn", mock.Anything, 1, 20).Return(false, nil)
		cr.On("InsertCheckIn", mock.Anything, 1, 20).Return(&CheckIn{
			ID: 105, MemberID: 1, ClassID: 20, Status: StatusConfirmed,
		}, nil)
		mr.On("FindByID", mock.Anything, 1).Return(&member.Member{ID: 1, Name: "Maria", Email: "maria@example.com"}, nil)

		service := newBillingTestService(cr, clr, mr, sr, pr)
		result, err := service.ChangeCheckIn(context.Background(), 1, 11, 20)

		assert.NoError(t, err)
		assert.Equal(t, ChangeSucceeded, result.Outcome)
		sr.AssertNotCalled(t, "GetActiveForMember", mock.Anything, mock.Anything)
		sr.AssertNotCalled(t, "IncrementVisits", mock.Anything, mock.Anything)
		pr.AssertNotCalled(t, "AddTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_VerifyAvailability(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockCheckInRepo, *MockClassRepo)
		want       *Availability
	}{
		{
			name: "open class, member not checked in",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo) {
				clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{ID: 10, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 10).Return(7, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(false, nil)
			},
			want: &Availability{ClassExists: true, HasCapacity: true, Capacity: 15, ConfirmedCount: 7},
		},
		{
			name: "full class",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo) {
				clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{ID: 10, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 10).Return(15, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(false, nil)
			},
			want: &Availability{ClassExists: true, HasCapacity: false, Capacity: 15, ConfirmedCount: 15},
		},
		{
			name: "member already checked in",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo) {
				clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{ID: 10, Capacity: 15}, nil)
				cr.On("CountConfirmedForClass", mock.Anything, 10).Return(7, nil)
				cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(true, nil)
			},
			want: &Availability{ClassExists: true, HasCapacity: true, MemberCheckedIn: true, Capacity: 15, ConfirmedCount: 7},
		},
		{
			name: "missing class reports all false",
			setupMocks: func(cr *MockCheckInRepo, clr *MockClassRepo) {
				clr.On("GetClassByID", mock.Anything, 10).Return(nil, sql.ErrNoRows)
			},
			want: &Availability{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr := new(MockCheckInRepo)
			clr := new(MockClassRepo)
			mr := new(MockMemberRepo)
			tt.setupMocks(cr, clr)

			service := newTestService(cr, clr, mr)
			avail, err := service.VerifyAvailability(context.Background(), 10, 1)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, avail)
			cr.AssertExpectations(t)
			clr.AssertExpectations(t)
		})
	}

	t.Run("read never writes", func(t *testing.T) {
		cr := new(MockCheckInRepo)
		clr := new(MockClassRepo)
		mr := new(MockMemberRepo)
		clr.On("GetClassByID", mock.Anything, 10).Return(&class.Class{ID: 10, Capacity: 15}, nil)
		cr.On("CountConfirmedForClass", mock.Anything, 10).Return(7, nil)
		cr.On("HasConfirmedCheckIn", mock.Anything, 1, 10).Return(false, nil)

		service := newTestService(cr, clr, mr)
		_, err := service.VerifyAvailability(context.Background(), 10, 1)

		assert.NoError(t, err)
		cr.AssertNotCalled(t, "InsertCheckIn", mock.Anything, mock.Anything, mock.Anything)
		cr.AssertNotCalled(t, "DeleteCheckIn", mock.Anything, mock.Anything, mock.Anything)
	})
}
