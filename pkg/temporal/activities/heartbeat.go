package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
)

// DefaultHeartbeatInterval is used when an activity has no heartbeat timeout
const DefaultHeartbeatInterval = 10 * time.Second

// heartbeatInterval is a third of the activity heartbeat timeout
func (a *Activities) heartbeatInterval(ctx context.Context) time.Duration {
	if a.HeartbeatInterval > 0 {
		return a.HeartbeatInterval
	}
	if timeout := activity.GetInfo(ctx).HeartbeatTimeout; timeout >= 3*time.Millisecond {
		return timeout / 3
	}
	return DefaultHeartbeatInterval
}

func (a *Activities) heartbeat(ctx context.Context, details ...interface{}) {
	if a.recordHeartbeat != nil {
		a.recordHeartbeat(ctx, details...)
		return
	}
	activity.RecordHeartbeat(ctx, details...)
}

// keepAlive calls beat every interval until the returned stop is called.
// stop waits for the last beat to finish.
func keepAlive(ctx context.Context, interval time.Duration, beat func()) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				beat()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
