package dto

// CreateCollectionRequest 手动创建合集
type CreateCollectionRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"max=2000"`
	StoryIDs    []string `json:"story_ids"`
}

// CreateAICollectionRequest 创建 AI 合集
type CreateAICollectionRequest struct {
	Prompt string `json:"prompt" binding:"required,max=1000"`
}

// CollectionInfo 合集
type CollectionInfo struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	IsAIGenerated bool     `json:"is_ai_generated"`
	Prompt        string   `json:"prompt,omitempty"`
	Status        string   `json:"status"`
	StoryIDs      []string `json:"story_ids"`
	StoriesCount  int      `json:"stories_count"`
	CreatedAt     string   `json:"created_at"`
}

// CollectionExport 下载的合集内容
type CollectionExport struct {
	Collection *CollectionInfo `json:"collection"`
	Stories    []*StoryInfo    `json:"stories"`
	ExportedAt string          `json:"exported_at"`
}
