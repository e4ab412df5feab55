package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"studio_sales_backend/platform/logger"
)

func TestWithRetrySucceedsEventually(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), logger.Discard(), "op", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	err := WithRetry(context.Background(), logger.Discard(), "db", 2, time.Millisecond, func() error {
		return errors.New("refused")
	})
	if err == nil || err.Error() != "db: refused" {
		t.Fatalf("err = %v", err)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := WithRetry(ctx, logger.Discard(), "op", 5, time.Second, func() error {
		calls++
		return errors.New("x")
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}
