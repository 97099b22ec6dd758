package apperr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"connectivity", fmt.Errorf("fetch x: %w: %w", ErrConnectivity, io.EOF), "connectivity"},
		{"content", fmt.Errorf("list: %w", ErrContentUnavailable), "content-unavailable"},
		{"permission", fmt.Errorf("push: %w", ErrPermission), "permission"},
		{"value", fmt.Errorf("questions: %w", ErrInvalidValue), "invalid-value"},
		{"element", ErrElementNotFound, "element-not-found"},
		{"other", errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestWrappedCauseSurvives(t *testing.T) {
	err := fmt.Errorf("fetch: %w: %w", ErrConnectivity, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
