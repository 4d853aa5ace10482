// Package server wires the HTTP surface: document upload and chat, the
// workflow planner/executor, health + metrics.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mandelbrot-ai/neural-engine/config"
	"github.com/mandelbrot-ai/neural-engine/internal/assemble"
	"github.com/mandelbrot-ai/neural-engine/internal/llm"
	"github.com/mandelbrot-ai/neural-engine/internal/registry"
	"github.com/mandelbrot-ai/neural-engine/internal/registry/inmemory"
	"github.com/mandelbrot-ai/neural-engine/internal/registry/redisstore"
	"github.com/mandelbrot-ai/neural-engine/internal/workflow"
)

const version = "3.0.0"

// Run configures and starts the HTTP server. It blocks until the listener
// fails.
func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Neural Engine API",
			"version": version,
			"status":  "operational",
			"model":   cfg.LLM.Model,
		})
	})
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Registry backend: Redis when configured, process memory otherwise.
	var store registry.Store
	if cfg.Storage.Redis.Host != "" {
		rs, err := redisstore.NewStore(cfg.Storage.Redis.Addr(), cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err != nil {
			return err
		}
		store = rs
	} else {
		store = inmemory.NewStore()
	}

	completer := llm.NewClient(cfg.LLM)
	assembler := assemble.New(store, completer)
	engine := workflow.NewEngine(completer)

	api := e.Group("/api")
	dh := &DocumentsHandler{
		Store:     store,
		Assembler: assembler,
		DataDir:   cfg.Storage.File.DataDir,
		Logger:    log.New(log.Writer(), "[DOCS] ", log.LstdFlags),
	}
	if err := dh.Init(); err != nil {
		return err
	}
	dh.Register(api)

	wh := &WorkflowsHandler{Engine: engine}
	wh.Register(api)

	if addr == "" {
		addr = cfg.General.Listen
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
