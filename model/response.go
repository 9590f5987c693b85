package model

// MarkRequest 图标叠加请求，Command 形如 /logo_all_top，与 Axis/Marks 二选一
type MarkRequest struct {
	Axis    string   `json:"axis"`
	Marks   []string `json:"marks"`
	Command string   `json:"command"`
}

// StageResponse 暂存主体图片的响应
type StageResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SubjectID string `json:"subject_id"`
	SHA256    string `json:"sha256"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// MarksResponse 可用图标列表
type MarksResponse struct {
	Success bool     `json:"success"`
	Marks   []string `json:"marks"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}
