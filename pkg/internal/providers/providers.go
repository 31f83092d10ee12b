package providers

// Result is the immediate provider acknowledgment for a single push. It is
// never persisted; the dispatcher only logs it.
type Result struct {
	Success    bool   `json:"success"`
	ProviderID string `json:"provider_id"`
	Error      string `json:"error"`
}

func Accepted(id string) Result {
	return Result{Success: true, ProviderID: id}
}

func Refused(reason string) Result {
	return Result{Success: false, Error: reason}
}
