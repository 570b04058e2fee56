package models

// Tag is a user-defined or predefined label. Predefined tags ship with the
// application, are excluded from rename/delete, and UsageCount tracks how
// many notes currently reference the tag.
type Tag struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usageCount"`
	Predefined bool   `json:"predefined"`
}

// PredefinedTags are always available and immutable.
var PredefinedTags = []string{"work", "personal", "ideas", "todo"}
