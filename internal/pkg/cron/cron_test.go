package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTriggersRegisteredJob(t *testing.T) {
	ctx := context.Background()
	s := New()

	ran := make(chan struct{})
	s.Register(Job{
		Name:        "reminder",
		Description: "sends expiry reminders",
		Interval:    24 * time.Hour,
		Fn: func(context.Context) error {
			close(ran)
			return nil
		},
	})

	require.NoError(t, s.Run(ctx, "reminder"))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	// The run is reflected in the listing once the goroutine finishes.
	assert.Eventually(t, func() bool {
		for _, item := range s.List() {
			if item.Name == "reminder" {
				return item.Status == StatusFulfill && item.LastRunAt != nil
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunUnknownJob(t *testing.T) {
	s := New()
	err := s.Run(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunRecordsFailure(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.Register(Job{
		Name:     "flaky",
		Interval: time.Hour,
		Fn: func(context.Context) error {
			return errors.New("smtp unreachable")
		},
	})

	require.NoError(t, s.Run(ctx, "flaky"))

	assert.Eventually(t, func() bool {
		for _, item := range s.List() {
			if item.Name == "flaky" {
				return item.Status == StatusReject
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
