package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"battery-eval/internal/api/models"
	"battery-eval/internal/config"
	"battery-eval/internal/data"
	"battery-eval/internal/eval"
	"battery-eval/internal/policy"
	"battery-eval/internal/store"
	"battery-eval/internal/trial"
)

// EvaluateHandler runs policy evaluations on behalf of API clients.
type EvaluateHandler struct {
	Cfg   *config.Config
	Cache *data.DatasetCache
	Store *store.SubmissionStore
	Log   *logrus.Logger
}

func NewEvaluateHandler(cfg *config.Config, cache *data.DatasetCache, st *store.SubmissionStore, log *logrus.Logger) *EvaluateHandler {
	return &EvaluateHandler{Cfg: cfg, Cache: cache, Store: st, Log: log}
}

// Evaluate handles POST /api/v1/evaluate. A completed evaluation always
// returns 200 with the submission result, even when its status is "error";
// non-2xx responses mean the request itself was bad.
func (h *EvaluateHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	pol, harness, numRuns, params, errResp := h.prepare(req)
	if errResp != nil {
		c.JSON(http.StatusBadRequest, errResp)
		return
	}

	res := harness.Evaluate(c.Request.Context(), pol, numRuns, params)
	h.persist(req, res)

	c.Header("X-Run-ID", res.RunID)
	c.JSON(http.StatusOK, res)
}

// prepare resolves a request against the server configuration into a ready
// harness. Shared by the REST and websocket endpoints.
func (h *EvaluateHandler) prepare(req models.EvaluateRequest) (policy.Policy, *eval.Harness, int, map[string]any, *models.ErrorResponse) {
	className := req.ClassName
	params := req.Parameters
	if className == "" {
		className = h.Cfg.Policy.ClassName
		params = h.Cfg.Policy.Parameters
	}
	pol, err := policy.Build(className, params)
	if err != nil {
		return nil, nil, 0, nil, errResponse("UNKNOWN_POLICY", err.Error())
	}

	dataPath := req.Data
	if dataPath == "" {
		dataPath = h.Cfg.Data
	}
	dataset, err := h.Cache.Load(dataPath)
	if err != nil {
		return nil, nil, 0, nil, errResponse("DATA_LOAD_ERROR", err.Error())
	}

	runner, err := trial.NewRunner(dataset, h.Cfg.ToBatterySpec(), h.Cfg.ToSimOptions(), h.Cfg.ToTrialConfig())
	if err != nil {
		return nil, nil, 0, nil, errResponse("INVALID_CONFIG", err.Error())
	}

	numRuns := req.NumRuns
	if numRuns == 0 {
		numRuns = h.Cfg.Eval.NumRuns
	}
	seed := req.Seed
	if seed == 0 {
		seed = h.Cfg.Eval.Seed
	}
	parallelism := req.Parallelism
	if parallelism == 0 {
		parallelism = h.Cfg.Eval.Parallelism
	}
	team := req.Team
	if team == "" {
		team = h.Cfg.Team
	}
	commit := req.CommitHash
	if commit == "" {
		commit = h.Cfg.CommitHash
	}

	harness := &eval.Harness{
		Runner:       runner,
		Log:          logrus.NewEntry(h.Log),
		Seed:         seed,
		Parallelism:  parallelism,
		TrialTimeout: h.Cfg.TrialTimeout(),
		Team:         team,
		CommitHash:   commit,
	}
	return pol, harness, numRuns, params, nil
}

func (h *EvaluateHandler) persist(req models.EvaluateRequest, res *eval.SubmissionResult) {
	if !req.Persist || h.Store == nil {
		return
	}
	if err := h.Store.Save(res); err != nil {
		h.Log.WithError(err).WithField("run_id", res.RunID).Error("failed to persist submission")
	}
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, errResponse(code, message))
}

func errResponse(code, message string) *models.ErrorResponse {
	return &models.ErrorResponse{Error: models.ErrorDetail{Code: code, Message: message}}
}
