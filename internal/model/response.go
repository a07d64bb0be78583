package model

// RobotNameResponse 助手名字响应
type RobotNameResponse struct {
	Name string `json:"name"`
}

// MessageResponse 操作成功响应
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorMessage 简单错误响应（/api/init 与 /api/robotName 使用）
type ErrorMessage struct {
	Error string `json:"error"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ChatResponse 对话响应
// Messages 为本次提交新增的消息；Loading 恒为 false，表示请求已结束
type ChatResponse struct {
	Messages []Message `json:"messages"`
	Loading  bool      `json:"loading"`
}

// HistoryResponse 会话记录响应
type HistoryResponse struct {
	Messages []Message `json:"messages"`
}
