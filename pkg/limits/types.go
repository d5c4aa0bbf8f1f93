package limits

// Resource represents a countable tenant resource kind.
type Resource string

// Resource kinds gated by plan ceilings.
const (
	ResourcePlants    Resource = "plants"
	ResourceUsers     Resource = "users"
	ResourceAPIKeys   Resource = "api_keys"
	ResourceDocuments Resource = "documents"
	ResourceAPICalls  Resource = "api_calls"
)

// Unlimited marks a resource with no ceiling.
const Unlimited int64 = -1

// UsageInfo contains the current usage and ceiling for a resource.
type UsageInfo struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}
