package models

import "time"

// ExecutionStats are the running statistics of one automation. The counters
// never decrease.
type ExecutionStats struct {
	TotalExecutions      uint64         `json:"total_executions"`
	SuccessfulExecutions uint64         `json:"successful_executions"`
	FailedExecutions     uint64         `json:"failed_executions"`
	LastError            *string        `json:"last_error,omitempty"`
	AverageExecutionTime *time.Duration `json:"average_execution_time,omitempty"`
}

// RecordCycle folds one executed cycle into the statistics. errMsg is only
// used when success is false.
//
// The average is maintained incrementally as avg' = avg + (elapsed-avg)/n,
// which never multiplies by the execution count.
func (s *ExecutionStats) RecordCycle(success bool, elapsed time.Duration, errMsg string) {
	s.TotalExecutions++

	if success {
		s.SuccessfulExecutions++
	} else {
		s.FailedExecutions++
		msg := errMsg
		s.LastError = &msg
	}

	if s.AverageExecutionTime == nil {
		avg := elapsed
		s.AverageExecutionTime = &avg

		return
	}

	n := time.Duration(s.TotalExecutions) //nolint:gosec // execution counts stay far below MaxInt64
	avg := *s.AverageExecutionTime + (elapsed-*s.AverageExecutionTime)/n
	s.AverageExecutionTime = &avg
}
