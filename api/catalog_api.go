package api

import (
	"chatrelay/domain"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ModelInfo struct {
	domain.Model
	Configured bool `json:"configured"`
	Streaming  bool `json:"streaming"`
}

func (ctrl *Controller) GetModelsHandler(c *gin.Context) {
	models := domain.AvailableModels()
	result := make([]ModelInfo, 0, len(models))
	for _, model := range models {
		result = append(result, ModelInfo{
			Model:      model,
			Configured: ctrl.registry.Configured(model.Provider),
			Streaming:  model.Provider.SupportsStreaming(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": result})
}

func (ctrl *Controller) GetToolsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": domain.AvailableTools()})
}

func (ctrl *Controller) HealthHandler(c *gin.Context) {
	providers := gin.H{}
	for _, provider := range domain.Providers {
		providers[string(provider)] = ctrl.registry.Configured(provider)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": providers})
}
