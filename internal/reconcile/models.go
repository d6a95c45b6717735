package reconcile

// Outcome labels for the per-patient result of a run.
const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Result counts what a run did with each listed registry patient.
type Result struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total is the number of registry patients the run looked at.
func (r Result) Total() int {
	return r.Updated + r.Skipped + r.Failed
}

type RunResponse struct {
	Success bool   `json:"success"`
	Result  Result `json:"result"`
	Message string `json:"message"`
}
