package service

// Metric label values.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultPending  = "second_factor_required"

	SessionReasonLogin   = "login"
	SessionReasonRefresh = "refresh"
)

// AuthMetrics counts authentication protocol outcomes.
type AuthMetrics interface {
	RecordRegistration(result string)
	RecordLogin(result string)
	RecordSecondFactor(method, result string)
	RecordSessionIssued(reason string)
}

// SecurityEventRecorder counts security events received by the audit worker.
type SecurityEventRecorder interface {
	RecordSecurityEvent(eventType string)
}
