package rag

// ScopeFilter derives the retrieval scope from user and project identity.
// It is always non-empty: without a project the user id alone is the scope.
func ScopeFilter(userId, projectId string) string {
	if projectId == "" {
		return userId
	}
	return userId + "/" + projectId
}
