package apirouter

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/hookdeck/workerctl/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouteDefinition struct {
	Method      string
	Path        string
	Handler     gin.HandlerFunc
	Public      bool
	Middlewares []gin.HandlerFunc
}

type RouterConfig struct {
	ServiceName string
	APIKey      string
	GinMode     string
}

func registerRoutes(router *gin.RouterGroup, cfg RouterConfig, routes []RouteDefinition) {
	for _, route := range routes {
		router.Handle(route.Method, route.Path, buildMiddlewareChain(cfg, route)...)
	}
}

func buildMiddlewareChain(cfg RouterConfig, def RouteDefinition) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(def.Middlewares)+2)
	if !def.Public {
		chain = append(chain, APIKeyAuthMiddleware(cfg.APIKey))
	}
	chain = append(chain, def.Middlewares...)
	chain = append(chain, def.Handler)
	return chain
}

func NewRouter(
	cfg RouterConfig,
	logger *logging.Logger,
	registry Registry,
	logs LogReader,
	messages MessageRouter,
	reporter Reporter,
	health HealthChecker,
) http.Handler {
	// Only set mode from config if we're not in test mode
	if gin.Mode() != gin.TestMode && cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(LoggerMiddleware(logger))
	r.Use(ErrorHandlerMiddleware())

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}

	healthHandler := HealthHandler(health)
	r.GET("/healthz", healthHandler)

	workerHandlers := NewWorkerHandlers(logger, registry, logs, reporter)
	messageHandlers := NewMessageHandlers(logger, messages)

	routes := []RouteDefinition{
		{Method: http.MethodGet, Path: "/healthz", Handler: healthHandler, Public: true},

		{Method: http.MethodGet, Path: "/workers", Handler: workerHandlers.List},
		{Method: http.MethodPost, Path: "/workers", Handler: workerHandlers.Create},
		{Method: http.MethodPost, Path: "/workers/stop-latest", Handler: workerHandlers.StopLatest},
		{Method: http.MethodPost, Path: "/workers/stop-all", Handler: workerHandlers.StopAll},
		{Method: http.MethodGet, Path: "/workers/:name", Handler: workerHandlers.Retrieve},
		{Method: http.MethodGet, Path: "/workers/:name/log", Handler: workerHandlers.Log},
		{Method: http.MethodPost, Path: "/workers/:name/stop", Handler: workerHandlers.Stop},

		{Method: http.MethodPost, Path: "/messages", Handler: messageHandlers.Send},
	}

	apiRouter := r.Group("/api/v1")
	registerRoutes(apiRouter, cfg, routes)

	return r
}
