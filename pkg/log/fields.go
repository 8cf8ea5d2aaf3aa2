package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID = "user_id"

	// Interaction domain
	FieldVideoID     = "video_id"
	FieldCommentID   = "comment_id"
	FieldFollowerID  = "follower_id"
	FieldFollowingID = "following_id"
	FieldTopic       = "topic"

	// Service
	FieldService = "service"
)
