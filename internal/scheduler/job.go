package scheduler

import (
	"context"

	"github.com/tevino/abool"
)

// job is one registered ScheduledTask's cron timing loop. The abool
// flag is what enforces max_instances=1 (spec.md §4.7, §5): a fire
// that lands while the previous one is still running is dropped
// rather than queued.
type job struct {
	id      int64
	expr    *Expr
	cancel  context.CancelFunc
	running *abool.AtomicBool
}
