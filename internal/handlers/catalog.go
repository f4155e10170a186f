package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"luxtravel/internal/models"
)

// ListCatalog - GET /api/catalog
// Список направлений и впечатлений с фильтрами id, featured, category, kind
func (h *Handlers) ListCatalog(c *gin.Context) {
	filter := models.CatalogFilter{
		ID:       strings.TrimSpace(c.Query("id")),
		Category: strings.TrimSpace(c.Query("category")),
		Kind:     models.ItemKind(strings.TrimSpace(c.Query("kind"))),
	}

	if raw, ok := c.GetQuery("featured"); ok && raw != "" {
		featured, err := models.ParseFlexibleBool(raw)
		if err != nil {
			badRequest(c, "featured must be true or false")
			return
		}
		// featured=false не фильтрует
		filter.FeaturedOnly = featured
	}

	switch filter.Kind {
	case "", models.KindDestination, models.KindExperience:
	default:
		badRequest(c, "kind must be destination or experience")
		return
	}

	items, err := h.services.Catalog.Query(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "list catalog")
		return
	}

	respond(c, http.StatusOK, "", items)
}

// GetCatalogItem - GET /api/catalog/:id
func (h *Handlers) GetCatalogItem(c *gin.Context) {
	item, err := h.services.Catalog.FindItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get catalog item")
		return
	}

	respond(c, http.StatusOK, "", item)
}

// ListAddOns - GET /api/addons
func (h *Handlers) ListAddOns(c *gin.Context) {
	addOns, err := h.services.Catalog.ListAddOns(c.Request.Context())
	if err != nil {
		writeError(c, err, "list add-ons")
		return
	}

	respond(c, http.StatusOK, "", addOns)
}
