package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCacheKey(t *testing.T) {
	tests := []struct {
		name       string
		service    string
		objectType string
		identifier string
		params     []string
		want       string
	}{
		{
			name:       "run result",
			service:    "generation",
			objectType: "result",
			identifier: "run-1",
			want:       "difymanga:generation:result:run-1",
		},
		{
			name:       "with params",
			service:    "session",
			objectType: "snapshot",
			identifier: "abc",
			params:     []string{"v1", "ja"},
			want:       "difymanga:session:snapshot:abc:v1_ja",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateCacheKey(tt.service, tt.objectType, tt.identifier, tt.params...))
		})
	}
}
