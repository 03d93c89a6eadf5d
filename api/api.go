package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pairline/pairline/stores"
	"github.com/pairline/pairline/utils"
)

type JSON map[string]interface{}

func RegisterApiHandlers(g *echo.Group, version, gitCommit string, stats *stores.StatsStore, sampler *utils.RecordSampler) {
	v1 := g.Group("/v1")
	v1.GET("/", func(c echo.Context) error {
		build := gitCommit
		if len(build) > 6 {
			build = build[:6]
		}
		return c.JSON(http.StatusOK, JSON{
			"message": "Hello, world! Welcome to Pairline API!",
			"version": version,
			"build":   build,
		})
	})

	v1.GET("/statistics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, JSON{
			"documents_processed": stats.DocumentsProcessed(),
			"pairs_emitted":       stats.PairsEmitted(),
			"notices_emitted":     stats.NoticesEmitted(),
			"values_dropped":      stats.ValuesDropped(),
			"stream_failures":     stats.StreamFailures(),
			"pairs_per_second":    sampler.GetSample(),
			"uptime_seconds":      int(stats.Uptime().Seconds()),
		})
	})
}
