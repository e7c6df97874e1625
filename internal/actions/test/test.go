// Package test has actions for rehearsing plans without a site.
package test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xyla-io/raspador/internal/utils"
)

func wait(ctx context.Context, durationMs int) error {
	if durationMs <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(durationMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// Sleep waits and returns a fresh id as its result.
func Sleep(ctx context.Context, durationMs int) (map[string]any, error) {
	if err := wait(ctx, durationMs); err != nil {
		return map[string]any{"status": "cancelled", "result": "none"}, err
	}
	return map[string]any{"status": "ok", "result": uuid.NewString()}, nil
}

// Fail waits, then fails with message.
func Fail(ctx context.Context, message string, durationMs int) error {
	if err := wait(ctx, durationMs); err != nil {
		return err
	}
	if message == "" {
		message = "test.fail triggered"
	}
	return errors.New(message)
}

func HandleTestAction(ctx context.Context, operation string, payload map[string]any) (map[string]any, error) {
	switch operation {
	case "sleep":
		ms, err := utils.GetIntPayload(payload, "duration_ms")
		if err != nil {
			return nil, err
		}
		return Sleep(ctx, ms)
	case "fail":
		ms, err := utils.OptionalInt(payload, "duration_ms", 0)
		if err != nil {
			return nil, err
		}
		return nil, Fail(ctx, utils.OptionalString(payload, "message"), ms)
	default:
		return nil, fmt.Errorf("unknown test operation: %s", operation)
	}
}
