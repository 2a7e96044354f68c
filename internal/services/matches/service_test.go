package matches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
	redrepo "github.com/encontrocomfe/backend/internal/repo/redis"
)

type matchStoreStub struct {
	match model.Match
	err   error
}

func (s matchStoreStub) GetByID(context.Context, int64) (model.Match, error) {
	return s.match, s.err
}

func (s matchStoreStub) GetByPair(context.Context, int64, int64) (model.Match, error) {
	return s.match, s.err
}

func (s matchStoreStub) ListForUser(context.Context, int64, int) ([]pgrepo.MatchSummary, error) {
	return nil, nil
}

func (s matchStoreStub) SetStatus(context.Context, pgx.Tx, int64, string, time.Time) error {
	return nil
}

func TestGetHidesMatchFromOutsider(t *testing.T) {
	svc := NewService(Dependencies{
		MatchStore: matchStoreStub{match: model.Match{ID: 10, UserAID: 1, UserBID: 2, Status: model.MatchStatusActive}},
	})

	if _, err := svc.Get(context.Background(), 1, 10); err != nil {
		t.Fatalf("participant must see the match: %v", err)
	}
	if _, err := svc.Get(context.Background(), 3, 10); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("outsider must get not-found, got %v", err)
	}
}

func TestReportRejectsUnknownReason(t *testing.T) {
	svc := NewService(Dependencies{})

	if _, err := svc.Report(context.Background(), 1, 2, "ugly-shirt", "", false); !errors.Is(err, ErrInvalidReportReason) {
		t.Fatalf("unknown reason should be rejected, got %v", err)
	}
	if _, err := svc.Report(context.Background(), 1, 1, "spam", "", false); !errors.Is(err, ErrValidation) {
		t.Fatalf("self report should be rejected, got %v", err)
	}
}

func TestCheckReportRateBlocksFourthReportInTenMinutes(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	svc := NewService(Dependencies{
		ReportRateStore:   repo,
		ReportMaxPer10Min: 3,
	})

	ctx := context.Background()
	userID := int64(701)

	for i := 0; i < 3; i++ {
		if err := svc.checkReportRate(ctx, userID); err != nil {
			t.Fatalf("unexpected report rate error on attempt %d: %v", i+1, err)
		}
	}

	err := svc.checkReportRate(ctx, userID)
	rl, ok := IsTooManyReports(err)
	if !ok {
		t.Fatalf("expected TooManyReportsError on 4th report, got %v", err)
	}
	if rl.RetryAfter() <= 0 {
		t.Fatalf("expected positive retry_after for blocked report, got %d", rl.RetryAfter())
	}
}

func TestCheckReportRateFailsClosedOnRedisError(t *testing.T) {
	svc := NewService(Dependencies{
		ReportRateStore:   reportRateStoreErrStub{err: errors.New("redis unavailable")},
		ReportMaxPer10Min: 3,
	})

	err := svc.checkReportRate(context.Background(), 999)
	tu, ok := IsTempUnavailable(err)
	if !ok {
		t.Fatalf("expected TempUnavailableError, got %v", err)
	}
	if tu.RetryAfter() != 10 {
		t.Fatalf("unexpected retry_after: got %d want %d", tu.RetryAfter(), 10)
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}

type reportRateStoreErrStub struct {
	err error
}

func (s reportRateStoreErrStub) IncrementWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, s.err
}
