package jobmanager

// Value is a job's result: either the JSON text produced by its evaluator,
// or an error. Non-dataset commands (start, stop, reenroll, ...) that
// produce no text of their own report "true" so CollectJobsValue still has
// a per-network result to show, distinguishing job-based execution from a
// plain single-command run where only completion is reported.
type Value struct {
	JSON string
	Err  error
}

// OK builds a successful Value, defaulting empty text to "true".
func OK(json string) Value {
	if json == "" {
		json = "true"
	}
	return Value{JSON: json}
}

// Failed builds a failed Value.
func Failed(err error) Value {
	return Value{Err: err}
}

func (v Value) HasNoError() bool { return v.Err == nil }

func (v Value) String() string {
	if v.Err != nil {
		return v.Err.Error()
	}
	return v.JSON
}
