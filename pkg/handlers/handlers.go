// Package handlers exposes the storefront and the admin console over HTTP.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/config"
	"github.com/andrescris/shopfront/pkg/assets"
	"github.com/andrescris/shopfront/pkg/catalog"
	"github.com/andrescris/shopfront/pkg/console"
	"github.com/andrescris/shopfront/pkg/form"
	"github.com/andrescris/shopfront/pkg/logger"
	"github.com/andrescris/shopfront/pkg/middleware"
	"github.com/andrescris/shopfront/pkg/models"
	"github.com/andrescris/shopfront/pkg/session"
)

type Deps struct {
	Storefront *catalog.Browser
	Consoles   *console.Registry
	Catalog    config.CatalogConfig
	StagingDir string
	APIKey     string
	// Assets is set when images are kept in process and served by this
	// server under /assets.
	Assets *assets.MemoryStore
	Log    *zap.Logger
}

type Handler struct {
	storefront *catalog.Browser
	consoles   *console.Registry
	catalog    config.CatalogConfig
	stagingDir string
	apiKey     string
	assets     *assets.MemoryStore
	log        *zap.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		storefront: d.Storefront,
		consoles:   d.Consoles,
		catalog:    d.Catalog,
		stagingDir: d.StagingDir,
		apiKey:     d.APIKey,
		assets:     d.Assets,
		log:        logger.OrNop(d.Log),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	if h.assets != nil {
		r.GET("/assets/*path", h.ServeAsset)
	}

	api := r.Group("/api/v1")
	{
		storefront := api.Group("/catalog")
		storefront.Use(middleware.APIKeyAuthMiddleware(h.apiKey))
		{
			storefront.GET("", h.ListCatalog)
			storefront.GET("/stream", h.StreamCatalog)
			storefront.GET("/meta", h.CatalogMeta)
		}

		api.POST("/console", h.OpenConsole)

		cons := api.Group("/console")
		cons.Use(middleware.ConsoleSessionMiddleware(h.consoles))
		{
			cons.GET("", h.ConsoleState)
			cons.DELETE("", h.CloseConsole)
			cons.POST("/sign-in", h.SignIn)
			cons.POST("/sign-out", h.SignOut)

			// --- Editor routes, signed in only ---
			editor := cons.Group("")
			editor.Use(middleware.RequireSignedIn())
			{
				editor.GET("/products", h.ListProducts)
				editor.GET("/products/export.csv", h.ExportProducts)

				editor.GET("/form", h.GetForm)
				editor.PATCH("/form", h.PatchForm)
				editor.POST("/form/labels/:label", h.ToggleLabel)
				editor.POST("/form/images", h.UploadImages)
				editor.DELETE("/form/images/:index", h.RemoveImage)
				editor.POST("/form/load/:id", h.LoadProduct)
				editor.POST("/form/reset", h.ResetForm)
				editor.POST("/form/save", h.SaveProduct)
			}
		}
	}
}

func currentConsole(c *gin.Context) *console.Console {
	cons, ok := middleware.Console(c)
	if !ok {
		// Routes using this sit behind ConsoleSessionMiddleware.
		panic("handlers: console missing from context")
	}
	return cons
}

// respondError maps domain errors to status codes.
func respondError(c *gin.Context, err error) {
	var (
		verr *models.ValidationError
		aerr *session.AuthError
		uerr *assets.UploadError
		perr *catalog.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "details": verr.Fields})
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrUnknownLabel):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &aerr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": aerr.Message})
	case errors.Is(err, session.ErrNotAuthenticated):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrSaveInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &uerr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload images", "details": uerr.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.As(err, &perr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to save product", "details": perr.Error()})
	case errors.Is(err, console.ErrUnknownConsole):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}
