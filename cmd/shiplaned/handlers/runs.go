package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apierr "github.com/cardops/shiplane/pkg/api/types/errors"
	apiruns "github.com/cardops/shiplane/pkg/api/types/runs"
	"github.com/cardops/shiplane/pkg/domain"
	kdb "github.com/cardops/shiplane/pkg/domain/history/db"
	"github.com/cardops/shiplane/pkg/domain/trigger"
	"github.com/cardops/shiplane/pkg/utils"
)

// ContextKeyIdentity is the echo context key BearerAuth stores the
// verified token identity under.
const ContextKeyIdentity = "shiplane-identity"

// TokenVerifier is the part of trigger.Issuer the API needs.
type TokenVerifier interface {
	Verify(token string) (trigger.Identity, error)
}

// BearerAuth guards routes with trigger tokens.
//
// `Authorization: Bearer <token>` is required. Requests holding no
// token, or a token Verify rejects, get 401.
func BearerAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:Authorization",
		AuthScheme: "Bearer",
		Validator: func(token string, c echo.Context) (bool, error) {
			identity, err := verifier.Verify(token)
			if err != nil {
				return false, err
			}
			c.Set(ContextKeyIdentity, identity)
			return true, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return apierr.Unauthorized("set a valid trigger token to the Authorization header", err)
		},
	})
}

// StartRun hands an accepted run over to the pipeline executor.
// It must not block.
type StartRun func(runId string, ev trigger.Event)

// TriggerRunHandler accepts `POST /api/runs`.
//
// The run is registered and handed to start; the response is 202 with
// the new run id, not the outcome.
func TriggerRunHandler(
	dbHistory kdb.HistoryInterface,
	classify domain.Classifier,
	start StartRun,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		req := apiruns.Trigger{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("the request body should be a JSON trigger", err)
		}

		ev := trigger.Event{Ref: req.Ref, Commit: req.Commit, Requester: req.Requester}
		if ev.Requester == "" {
			if identity, ok := c.Get(ContextKeyIdentity).(trigger.Identity); ok {
				ev.Requester = identity.Subject
			}
		}
		if err := ev.Validate(); err != nil {
			return apierr.BadRequest(`"ref" is required`, err)
		}

		runId := uuid.NewString()
		ctx := c.Request().Context()
		if err := dbHistory.Register(ctx, domain.PipelineRun{
			RunId:     runId,
			Ref:       ev.Ref,
			Commit:    ev.Commit,
			Class:     classify(ev.Ref),
			StartedAt: time.Now(),
		}); err != nil {
			return apierr.InternalServerError(err)
		}

		start(runId, ev)

		return c.JSON(http.StatusAccepted, apiruns.TriggerResult{RunId: runId})
	}
}

func FindRunHandler(dbHistory kdb.HistoryInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		query := kdb.Query{Ref: c.QueryParam("ref")}

		if outcome := c.QueryParam("outcome"); outcome != "" {
			o, err := domain.AsRunOutcome(outcome)
			if err != nil {
				return apierr.BadRequest(
					`"outcome" should be one of "success", "failed" or "aborted"`,
					err,
				)
			}
			query.Outcome = o
		}

		if limit := c.QueryParam("limit"); limit != "" {
			l, err := strconv.Atoi(limit)
			if err != nil || l < 1 {
				return apierr.BadRequest(`"limit" should be a positive integer`, err)
			}
			query.Limit = l
		}

		ctx := c.Request().Context()
		found, err := dbHistory.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, utils.Map(found, apiruns.ComposeDetail))
	}
}

func GetRunHandler(dbHistory kdb.HistoryInterface, paramRunId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		runId := c.Param(paramRunId)
		ctx := c.Request().Context()

		r, err := dbHistory.Get(ctx, runId)
		if err != nil {
			if errors.Is(err, kdb.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apiruns.ComposeDetail(r))
	}
}
