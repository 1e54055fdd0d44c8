package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"battery-eval/internal/api/models"
	"battery-eval/internal/policy"
)

// ListPolicies handles GET /api/v1/policies.
func ListPolicies(c *gin.Context) {
	c.JSON(http.StatusOK, models.PolicyListResponse{Policies: policy.Names()})
}
