package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"robochat/internal/model"
	"robochat/internal/service"
)

// SettingsHandler 设置项处理器
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler 创建设置项处理器
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Init 初始化设置表
// @Summary      初始化数据库
// @Description  创建 settings 表并写入默认助手名字，可重复调用
// @Tags         设置
// @Produce      json
// @Success      200  {object}  model.MessageResponse
// @Failure      500  {object}  model.ErrorMessage
// @Router       /api/init [get]
func (h *SettingsHandler) Init(c *gin.Context) {
	if err := h.settings.Initialize(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("failed to initialize database")
		c.JSON(http.StatusInternalServerError, model.ErrorMessage{
			Error: "Failed to initialize database",
		})
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{
		Message: "Database initialized successfully",
	})
}

// GetRobotName 获取助手名字
// @Summary      获取助手名字
// @Description  始终返回 200；存储不可用时返回默认名字
// @Tags         设置
// @Produce      json
// @Success      200  {object}  model.RobotNameResponse
// @Router       /api/robotName [get]
func (h *SettingsHandler) GetRobotName(c *gin.Context) {
	c.JSON(http.StatusOK, model.RobotNameResponse{
		Name: h.settings.RobotName(c.Request.Context()),
	})
}

// SetRobotName 修改助手名字
// @Summary      修改助手名字
// @Tags         设置
// @Accept       json
// @Produce      json
// @Param        request  body      model.RobotNameRequest  true  "新名字"
// @Success      200      {object}  model.RobotNameResponse
// @Failure      400      {object}  model.ErrorMessage
// @Failure      500      {object}  model.ErrorMessage
// @Router       /api/robotName [post]
func (h *SettingsHandler) SetRobotName(c *gin.Context) {
	var req model.RobotNameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == nil {
		c.JSON(http.StatusBadRequest, model.ErrorMessage{Error: "Invalid name"})
		return
	}

	name, err := h.settings.SetRobotName(c.Request.Context(), *req.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, model.ErrorMessage{Error: "Invalid name"})
			return
		}
		log.Error().Err(err).Msg("failed to update robot name")
		c.JSON(http.StatusInternalServerError, model.ErrorMessage{Error: "Failed to update name"})
		return
	}

	c.JSON(http.StatusOK, model.RobotNameResponse{Name: name})
}
