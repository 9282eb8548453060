package class

import (
	"context"
	"time"
)

type Repository interface {
	CreateClass(ctx context.Context, date time.Time, startTime, endTime string, capacity int, programName, coachName string) (*Class, error)
	GetClassByID(ctx context.Context, id int) (*Class, error)
	ListClassesByDate(ctx context.Context, date time.Time) ([]Class, error)
	ListClassesWithAvailability(ctx context.Context, date time.Time) ([]ClassWithAvailability, error)
}
