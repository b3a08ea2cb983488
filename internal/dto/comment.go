package dto

// PostCommentRequest adds a review comment.
type PostCommentRequest struct {
	Content string `json:"content" validate:"max=5000"`
}

// UpdateCommentRequest replaces the content of an own comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"max=5000"`
}

// ResolveCommentRequest changes the status of a top-level comment. OPEN reopens it.
type ResolveCommentRequest struct {
	Status         string `json:"status" binding:"required,oneof=OPEN RESOLVED CLOSED"`
	ResolutionNote string `json:"resolutionNote" binding:"max=2000"`
}

// RecentCommentsQuery bounds the recent comments read.
type RecentCommentsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}
