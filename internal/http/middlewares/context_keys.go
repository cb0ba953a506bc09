package middlewares

// gin context keys; the caller identity travels on the request context via actorctx
const (
	CtxRequestID = "request_id"
)
