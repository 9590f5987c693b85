package utils

import (
	"regexp"

	"github.com/google/uuid"
)

var subjectIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewRequestID 生成请求ID
func NewRequestID() string {
	return uuid.NewString()
}

// ValidSubjectID 主体ID会直接拼进暂存文件名，只允许安全字符
func ValidSubjectID(id string) bool {
	return subjectIDPattern.MatchString(id)
}
