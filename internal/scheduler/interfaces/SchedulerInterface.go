package interfaces

import "context"

type SchedulerInterface interface {
	Init(ctx context.Context)
	Stop()
	Trigger() bool
	Running() bool
}
