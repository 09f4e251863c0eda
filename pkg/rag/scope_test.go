package rag

import (
	"testing"
)

func TestScopeFilter(t *testing.T) {
	tests := []struct {
		name      string
		userId    string
		projectId string
		want      string
	}{
		{"user and project", "user-1", "proj-9", "user-1/proj-9"},
		{"user only", "user-1", "", "user-1"},
		{"anonymous default", "anonymous", "", "anonymous"},
		{"anonymous with project", "anonymous", "docs", "anonymous/docs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScopeFilter(tt.userId, tt.projectId); got != tt.want {
				t.Errorf("ScopeFilter(%q, %q) = %q, want %q", tt.userId, tt.projectId, got, tt.want)
			}
		})
	}
}
