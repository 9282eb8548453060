package checkin

import "context"

type Repository interface {
	InsertCheckIn(ctx context.Context, memberID, classID int) (*CheckIn, error)
	DeleteCheckIn(ctx context.Context, memberID, classID int) (int64, error)
	CountConfirmedForClass(ctx context.Context, classID int) (int, error)
	HasConfirmedCheckIn(ctx context.Context, memberID, classID int) (bool, error)
	FindSameDayCheckIns(ctx context.Context, memberID, targetClassID int) ([]CheckInWithClass, error)
	ListMemberCheckIns(ctx context.Context, memberID int) ([]CheckInWithClass, error)
	ListClassRoster(ctx context.Context, classID int) ([]RosterEntry, error)
}
