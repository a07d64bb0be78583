package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"robochat/internal/model"
	"robochat/internal/pkg/id"
	"robochat/internal/service"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	chat       *service.ChatService
	cookieName string
	secure     bool
}

// NewChatHandler 创建对话处理器
func NewChatHandler(chat *service.ChatService, cookieName string, secure bool) *ChatHandler {
	return &ChatHandler{
		chat:       chat,
		cookieName: cookieName,
		secure:     secure,
	}
}

// Chat 提交一条消息
// @Summary      发送消息
// @Description  以 "/name 新名字" 开头的消息修改助手名字，不转发给模型；会话已有进行中的请求时返回 409
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      model.ChatRequest  true  "消息"
// @Success      200      {object}  model.ChatResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      500      {object}  model.ErrorResponse
// @Router       /api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	sessionID := h.sessionID(c)
	res, err := h.chat.Submit(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Code:    40002,
				Message: "Message is empty",
			})
		case errors.Is(err, service.ErrBusy):
			c.JSON(http.StatusConflict, model.ErrorResponse{
				Code:    40901,
				Message: "A reply is still in progress",
			})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{
				Code:    50001,
				Message: "Failed to handle message",
				Detail:  err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{
		Messages: res.Added,
		Loading:  false,
	})
}

// History 获取当前会话记录
// @Summary      会话记录
// @Tags         对话
// @Produce      json
// @Success      200  {object}  model.HistoryResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/chat [get]
func (h *ChatHandler) History(c *gin.Context) {
	msgs, err := h.chat.History(c.Request.Context(), h.sessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50002,
			Message: "Failed to load conversation",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.HistoryResponse{Messages: msgs})
}

// Reset 结束当前会话
// @Summary      结束会话
// @Tags         对话
// @Produce      json
// @Success      200  {object}  model.MessageResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/chat [delete]
func (h *ChatHandler) Reset(c *gin.Context) {
	sessionID, err := c.Cookie(h.cookieName)
	if err == nil && id.IsValidSessionID(sessionID) {
		if err := h.chat.Reset(c.Request.Context(), sessionID); err != nil {
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{
				Code:    50003,
				Message: "Failed to reset conversation",
				Detail:  err.Error(),
			})
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Conversation reset"})
}

// sessionID 读取会话 cookie；缺失或非法时签发新会话
// cookie 不设置 MaxAge，随浏览器会话结束
func (h *ChatHandler) sessionID(c *gin.Context) string {
	if v, err := c.Cookie(h.cookieName); err == nil && id.IsValidSessionID(v) {
		return v
	}

	sessionID := id.NewSessionID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, sessionID, 0, "/", "", h.secure, true)
	return sessionID
}
