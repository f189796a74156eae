package api

import (
	"chatrelay/common"
	"chatrelay/domain"
	"chatrelay/llm"
	"chatrelay/secret_manager"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "chatrelay"

// RunServer starts the relay in the background and returns the server so the
// caller can shut it down.
func RunServer(config common.RelayConfig, secrets secret_manager.SecretManager) (*http.Server, error) {
	gin.SetMode(gin.ReleaseMode)

	allowedOrigins, err := GetAllowedOrigins(config.Server)
	if err != nil {
		return nil, fmt.Errorf("invalid allowed origins: %w", err)
	}

	ctrl := NewController(config, secrets)
	router := DefineRoutes(ctrl, allowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", common.GetServerHost(), config.Server.Port),
		Handler: router.Handler(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Bool("openai", ctrl.registry.Configured(domain.ProviderOpenAI)).
		Bool("anthropic", ctrl.registry.Configured(domain.ProviderAnthropic)).
		Msg("Chat relay listening")

	return srv, nil
}

type Controller struct {
	registry *llm.Registry
}

// NewController resolves provider credentials once; they are not re-read per
// request.
func NewController(config common.RelayConfig, secrets secret_manager.SecretManager) Controller {
	return Controller{registry: llm.NewRegistry(config, secrets)}
}

func DefineRoutes(ctrl Controller, allowedOrigins *AllowedOrigins) *gin.Engine {
	r := gin.New()
	r.ForwardedByClientIP = true
	r.SetTrustedProxies(nil)

	r.Use(gin.Recovery())
	r.Use(RequestIdMiddleware())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(AccessLogMiddleware())
	r.Use(CORSMiddleware(allowedOrigins))

	r.GET("/healthz", ctrl.HealthHandler)

	apiRoutes := r.Group("/api")
	apiRoutes.POST("/chat", ctrl.ChatHandler)
	apiRoutes.GET("/models", ctrl.GetModelsHandler)
	apiRoutes.GET("/tools", ctrl.GetToolsHandler)

	return r
}

func (ctrl *Controller) ErrorHandler(c *gin.Context, status int, err error) {
	log.Error().Err(err).Str("requestId", c.GetString(requestIdKey)).Int("status", status).Msg("Request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
