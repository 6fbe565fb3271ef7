package httputil

import "context"

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// ClientInfo describes the caller of the current request.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	RequestID string
}

type clientInfoKey struct{}

func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom returns the caller stored on ctx, or the zero value.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
