package metrics

import "sync/atomic"

var (
	jobsSucceeded    int64
	jobsFailed       int64
	reportsAssembled int64
	insufficientData int64
)

func IncSucceeded()        { atomic.AddInt64(&jobsSucceeded, 1) }
func IncFailed()           { atomic.AddInt64(&jobsFailed, 1) }
func IncReports()          { atomic.AddInt64(&reportsAssembled, 1) }
func IncInsufficientData() { atomic.AddInt64(&insufficientData, 1) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"jobs_succeeded":         atomic.LoadInt64(&jobsSucceeded),
		"jobs_failed":            atomic.LoadInt64(&jobsFailed),
		"reports_assembled":      atomic.LoadInt64(&reportsAssembled),
		"insufficient_pose_data": atomic.LoadInt64(&insufficientData),
	}
}
