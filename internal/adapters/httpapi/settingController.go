package httpapi

import (
	"errors"
	"net/http"

	settingapp "newsdesk/internal/core/setting/service"

	"github.com/gin-gonic/gin"
)

type SettingController struct{ sc SettingUseCase }

func NewSettingController(sc SettingUseCase) *SettingController { return &SettingController{sc: sc} }

func (ctl *SettingController) GetModerationPrompt(c *gin.Context) {
	prompt, err := ctl.sc.GetModerationPrompt(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load moderation prompt"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

// SetModerationPrompt قالب جدید از درخواست بعدی moderation اعمال می‌شود
func (ctl *SettingController) SetModerationPrompt(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	if err := ctl.sc.SetModerationPrompt(c.Request.Context(), req.Prompt); err != nil {
		if errors.Is(err, settingapp.ErrPromptMissingPlaceholder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save moderation prompt"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": req.Prompt})
}
