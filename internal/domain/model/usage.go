package model

// UsageResult reports the outcome of one request made with a credential.
type UsageResult struct {
	Failed        bool
	ErrorMessage  string
	MarkUnhealthy bool // Only honored when Failed is true.
}

// AcquiredCredential is what a proxy needs to send one request with a
// credential: the upstream base URL and the request headers.
type AcquiredCredential struct {
	ID       string
	Name     string
	AuthType AuthType
	BaseURL  string
	Headers  map[string]string

	// Model is the upstream model id, which differs from the requested one
	// on Bedrock. InvokeURL is the endpoint a request for Model is sent to.
	Model     string
	InvokeURL string
}
