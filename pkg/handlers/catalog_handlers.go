package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/andrescris/shopfront/pkg/catalog"
	"github.com/andrescris/shopfront/pkg/models"
	"github.com/andrescris/shopfront/pkg/pricing"
)

// catalogItem is a storefront product with its display price.
type catalogItem struct {
	models.Product
	Currency   pricing.Currency `json:"currency"`
	Price      string           `json:"price"`
	PriceLabel pricing.Label    `json:"priceLabel"`
}

type catalogFilter struct {
	Search   string `form:"q"`
	Label    string `form:"label"`
	Currency string `form:"currency"`
}

func (f catalogFilter) apply(products []models.Product) []catalogItem {
	cur := pricing.ParseCurrency(f.Currency)
	filtered := catalog.Filter(products, f.Search, f.Label)
	items := make([]catalogItem, 0, len(filtered))
	for _, p := range filtered {
		label := pricing.LabelFor(p, cur)
		items = append(items, catalogItem{Product: p, Currency: cur, Price: label.String(), PriceLabel: label})
	}
	return items
}

func (h *Handler) ListCatalog(c *gin.Context) {
	var f catalogFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": err.Error()})
		return
	}
	products, ready := h.storefront.Products()
	items := f.apply(products)
	c.JSON(http.StatusOK, gin.H{"success": true, "ready": ready, "count": len(items), "data": items})
}

// StreamCatalog sends a "catalog" event with the filtered listing every time
// the published catalog changes.
func (h *Handler) StreamCatalog(c *gin.Context) {
	var f catalogFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": err.Error()})
		return
	}
	updates, stop := h.storefront.Listen()
	defer stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	// Send headers now so clients connect before the first snapshot.
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("catalog", f.apply(snap))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) CatalogMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"labels":     h.catalog.StandardLabels,
		"categories": h.catalog.DefaultCategories,
		"currencies": pricing.Currencies,
		"comingSoon": pricing.ComingSoon,
	})
}

// ServeAsset serves images held by the in-process asset store.
func (h *Handler) ServeAsset(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	r, ok := h.assets.Get(path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	data, err := io.ReadAll(r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}
