package execution

// Result is the outcome of one test execution.
type Result string

const (
	ResultStarted Result = "started"
	ResultPassed  Result = "passed"
	ResultFailed  Result = "failed"
	ResultSkipped Result = "skipped"
	ResultXFailed Result = "xfailed"
	ResultXPassed Result = "xpassed"
	ResultError   Result = "error"
	ResultRerun   Result = "rerun"
)

// IsSuccessful reports whether the result counts as a pass.
func (r Result) IsSuccessful() bool {
	return r == ResultPassed || r == ResultXFailed
}

// IsCompleted reports whether the result is terminal.
func (r Result) IsCompleted() bool {
	return r != ResultStarted && r != ResultRerun && r != ""
}

func (r Result) String() string {
	return string(r)
}
