package main

import (
	"github.com/labstack/echo/v4"

	"github.com/cardops/shiplane/cmd/shiplaned/handlers"
	"github.com/cardops/shiplane/pkg/domain"
	kdb "github.com/cardops/shiplane/pkg/domain/history/db"
	"github.com/cardops/shiplane/pkg/utils/echoutil"
)

func BuildServer(
	dbHistory kdb.HistoryInterface,
	verifier handlers.TokenVerifier,
	classify domain.Classifier,
	start handlers.StartRun,
	loglevel string,
) *echo.Echo {

	e := echo.New()

	echoutil.SetLevel(e, loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}

	// logging for server-side latency.
	e.Use(echoutil.LogHandlerFunc)

	api := e.Group("/api", handlers.BearerAuth(verifier))
	api.POST("/runs", handlers.TriggerRunHandler(dbHistory, classify, start))
	api.GET("/runs", handlers.FindRunHandler(dbHistory))
	api.GET("/runs/:runId", handlers.GetRunHandler(dbHistory, "runId"))

	return e
}
