package middleware

// Context keys shared between the quota gate and the middleware that
// run after it.
const (
	ContextUser         = "gate_user"
	ContextProductKey   = "gate_product_key"
	ContextSubscription = "gate_subscription"
	ContextQuotaPolicy  = "gate_quota_policy"
	ContextRequestID    = "request_id"
)
