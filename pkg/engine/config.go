package engine

// Config holds the engine policy knobs.
type Config struct {
	// FailureThreshold moves an automation to Failed after a failed cycle
	// once its failed_executions exceed this value. Zero disables it.
	FailureThreshold uint64

	// AbortOnActionFailure skips the remaining actions of a cycle after the
	// first action that fails permanently.
	AbortOnActionFailure bool
}
