package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"battery-eval/internal/store"
)

// SubmissionsHandler serves persisted evaluation results.
type SubmissionsHandler struct {
	Store *store.SubmissionStore
	Log   *logrus.Logger
}

func NewSubmissionsHandler(st *store.SubmissionStore, log *logrus.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{Store: st, Log: log}
}

// History handles GET /api/v1/submissions/:team.
func (h *SubmissionsHandler) History(c *gin.Context) {
	if h.Store == nil {
		badRequest(c, "STORE_DISABLED", "no submission store configured")
		return
	}
	results, err := h.Store.History(c.Param("team"))
	if err != nil {
		h.Log.WithError(err).Error("submission history query failed")
		c.JSON(http.StatusInternalServerError, errResponse("STORE_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, results)
}

// Latest handles GET /api/v1/submissions/:team/latest.
func (h *SubmissionsHandler) Latest(c *gin.Context) {
	if h.Store == nil {
		badRequest(c, "STORE_DISABLED", "no submission store configured")
		return
	}
	res, err := h.Store.Latest(c.Param("team"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errResponse("NOT_FOUND", "no submissions for team"))
		return
	}
	if err != nil {
		h.Log.WithError(err).Error("latest submission query failed")
		c.JSON(http.StatusInternalServerError, errResponse("STORE_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, res)
}
