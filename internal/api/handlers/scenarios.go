package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"everwatt-battery-optimizer/internal/apitypes"
	"everwatt-battery-optimizer/internal/orchestrate"
)

// ScenariosHandler serves the tariff scenarios a run would be evaluated
// against for a given rate code.
type ScenariosHandler struct{}

// NewScenariosHandler creates a scenarios handler.
func NewScenariosHandler() *ScenariosHandler {
	return &ScenariosHandler{}
}

// ListScenarios handles GET /api/v1/scenarios?tariff_rate_code=B-19.
func (h *ScenariosHandler) ListScenarios(c *gin.Context) {
	code := c.DefaultQuery("tariff_rate_code", "B-19")
	scenarios := orchestrate.Scenarios(code)

	dtos := make([]apitypes.ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, apitypes.ScenarioDTO{ID: s.ID, Name: s.Name, Kind: s.Kind})
	}
	c.JSON(http.StatusOK, apitypes.ScenariosResponse{Scenarios: dtos})
}
