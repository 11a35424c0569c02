package domain

// SubjectType differentiates chat-platform users from service principals.
type SubjectType string

const (
	SubjectTypeUser    SubjectType = "USER"
	SubjectTypeService SubjectType = "SERVICE"
)
