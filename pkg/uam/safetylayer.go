package uam

// SafetyLayer is the opaque primitive the safety mapper calls to run
// the actual safety protocol: composing a Response SPDU from a
// Provider's payloads and the latest Request, or validating a Response
// and producing the next Request for a Consumer. Its internals (CRC
// polynomial, freshness window, id checks) are out of scope; only its
// call signature and failure contract matter here.
type SafetyLayer interface {
	// ExecuteProvider composes resp in place from req (the latest
	// Request received from the non-safe side, or nil before the
	// first one arrives) and the Provider's current safety/non-safety
	// payload buffers. It increments resp.MonitoringNumber relative to
	// the previous Response for this Provider. A non-nil error is
	// fatal to the calling cycle; the application treats it as fatal.
	ExecuteProvider(req *SPDU, safetyData, nonSafetyData []byte, resp *SPDU) error

	// ExecuteConsumer validates resp (the latest Response received
	// from the non-safe side, or nil before the first one arrives)
	// and composes the next Request in place into req.
	ExecuteConsumer(resp *SPDU, req *SPDU) error
}
