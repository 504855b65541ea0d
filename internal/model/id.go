package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewID：生成带前缀的短 ID
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
