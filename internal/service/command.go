package service

import (
	"fmt"
	"strings"
)

// nameCommandPrefix 修改助手名字的保留前缀
const nameCommandPrefix = "/name "

const renameFailedReply = "修改名字失败，请稍后重试。"

// ParseNameCommand 识别 "/name <新名字>" 指令
// 前缀后的内容去空白后为空时不视为指令，按普通消息处理
func ParseNameCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, nameCommandPrefix) {
		return "", false
	}
	name := strings.TrimSpace(text[len(nameCommandPrefix):])
	if name == "" {
		return "", false
	}
	return name, true
}

func renameConfirmedReply(name string) string {
	return fmt.Sprintf("好的，从现在起我的名字是「%s」。", name)
}
