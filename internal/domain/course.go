package domain

// Course is an external record produced by the course-search capability.
// The chat core passes it through unmodified.
type Course struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Provider       string   `json:"provider"`
	Level          string   `json:"level"`
	Skills         []string `json:"skills"`
	Description    string   `json:"description"`
	RelevanceScore float64  `json:"relevance_score"`
}
