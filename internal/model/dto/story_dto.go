package dto

// StoryListRequest 故事列表请求参数
type StoryListRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Search   string `form:"search"`
	Tag      string `form:"tag"`
	Sort     string `form:"sort,default=recent"` // recent, likes, views
}

// CreateStoryRequest 发布故事
type CreateStoryRequest struct {
	Title            string   `json:"title" binding:"required,max=200"`
	Content          string   `json:"content" binding:"required,max=2000"`
	Tags             []string `json:"tags" binding:"required,max=20,dive,required,max=50"`
	CriteriaAccepted []bool   `json:"criteria_accepted" binding:"required"`
}

// StoryInfo 故事
type StoryInfo struct {
	ID          int64    `json:"id"`
	AuthorID    string   `json:"author_id"`
	AuthorName  string   `json:"author_name"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt"`
	Content     string   `json:"content,omitempty"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
	Likes       int      `json:"likes"`
	Views       int      `json:"views"`
	IsLiked     bool     `json:"is_liked"`
	CreatedAt   string   `json:"created_at"`
	PublishedAt string   `json:"published_at,omitempty"`
}

// LikeResponse 点赞响应
type LikeResponse struct {
	Liked          bool `json:"liked"`
	LikeCount      int  `json:"like_count"`
	RemainingLikes int  `json:"remaining_likes"`
}

// ViewResponse 浏览记录
type ViewResponse struct {
	Counted        bool `json:"counted"`
	ViewCount      int  `json:"view_count"`
	RemainingViews int  `json:"remaining_views"`
}

// ContactAuthorRequest 联系作者
type ContactAuthorRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// AuthorProfile 作者主页
type AuthorProfile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	StoriesCount int          `json:"stories_count"`
	TotalLikes   int          `json:"total_likes"`
	TotalViews   int          `json:"total_views"`
	Stories      []*StoryInfo `json:"stories"`
}
