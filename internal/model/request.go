package model

// RobotNameRequest 修改助手名字请求
// name 必须是字符串，类型不符时绑定失败
type RobotNameRequest struct {
	Name *string `json:"name"`
}

// ChatRequest 对话请求
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}
