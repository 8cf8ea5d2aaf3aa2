package domain

// VideoStats is the counter snapshot for one video.
type VideoStats struct {
	VideoID  string `json:"videoId"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Views    int64  `json:"views"`
	Shares   int64  `json:"shares"`
}

// FollowerCounts is the counter snapshot for one user.
type FollowerCounts struct {
	UserID     string `json:"userId"`
	Followers  int64  `json:"followers"`
	Followings int64  `json:"followings"`
}

// CommentPage is one page of comments, newest first.
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int64     `json:"total"`
	HasMore  bool      `json:"hasMore"`
}

// FollowPage is one page of follower or following user IDs, newest first.
type FollowPage struct {
	UserIDs []string `json:"userIds"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Total   int64    `json:"total"`
	HasMore bool     `json:"hasMore"`
}
