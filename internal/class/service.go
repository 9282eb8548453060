package class

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClassNotFound = errors.New("class not found")
	ErrInvalidClass  = errors.New("invalid class")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type Service interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error)
	GetClassByID(ctx context.Context, id int) (*Class, error)
	GetSchedule(ctx context.Context, date string) ([]ClassWithAvailability, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, ErrInvalidClass
	}

	start, err := time.Parse(timeLayout, req.StartTime)
	if err != nil {
		return nil, ErrInvalidClass
	}

	end, err := time.Parse(timeLayout, req.EndTime)
	if err != nil {
		return nil, ErrInvalidClass
	}

	if !end.After(start) {
		return nil, ErrInvalidClass
	}

	if req.Capacity < 1 {
		return nil, ErrInvalidClass
	}

	return s.repo.CreateClass(ctx, date, req.StartTime, req.EndTime, req.Capacity, req.ProgramName, req.CoachName)
}

func (s *service) GetClassByID(ctx context.Context, id int) (*Class, error) {
	cls, err := s.repo.GetClassByID(ctx, id)
	if err != nil {
		return nil, ErrClassNotFound
	}
	return cls, nil
}

func (s *service) GetSchedule(ctx context.Context, date string) ([]ClassWithAvailability, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, ErrInvalidClass
	}

	return s.repo.ListClassesWithAvailability(ctx, day)
}
