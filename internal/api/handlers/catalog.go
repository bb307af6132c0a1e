package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"everwatt-battery-optimizer/internal/apitypes"
	"everwatt-battery-optimizer/internal/catalog"
)

// CatalogHandler serves the battery SKU catalog loaded at startup.
type CatalogHandler struct {
	skus []catalog.SKU
}

// NewCatalogHandler creates a handler over an already-loaded catalog.
func NewCatalogHandler(skus []catalog.SKU) *CatalogHandler {
	return &CatalogHandler{skus: skus}
}

// ListCatalog handles GET /api/v1/catalog.
func (h *CatalogHandler) ListCatalog(c *gin.Context) {
	dtos := make([]apitypes.SKUDTO, 0, len(h.skus))
	for _, s := range h.skus {
		if !s.Active {
			continue
		}
		dtos = append(dtos, apitypes.SKUDTO{
			ID:                  s.ID,
			Manufacturer:        s.Manufacturer,
			EnergyKWh:           s.EnergyKWh,
			PowerKW:             s.PowerKW,
			ContinuousPowerKW:   s.ContinuousPowerKW(),
			RoundTripEfficiency: s.RoundTripEfficiency,
			WarrantyYears:       s.WarrantyYears,
		})
	}
	c.JSON(http.StatusOK, apitypes.CatalogResponse{SKUs: dtos})
}
