package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/pkg/models"
)

type openConsoleRequest struct {
	Token string `json:"token"`
}

// OpenConsole starts a console session. A token from an earlier sign-in,
// given in the body or as a bearer token, resumes it.
func (h *Handler) OpenConsole(c *gin.Context) {
	var req openConsoleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}
	if req.Token == "" {
		req.Token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	cons := h.consoles.Open(c.Request.Context(), req.Token)
	c.JSON(http.StatusCreated, gin.H{"sessionId": cons.ID, "state": cons.Gate.State()})
}

func (h *Handler) CloseConsole(c *gin.Context) {
	cons := currentConsole(c)
	if err := h.consoles.Close(cons.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ConsoleState(c *gin.Context) {
	cons := currentConsole(c)
	resp := gin.H{
		"sessionId": cons.ID,
		"state":     cons.Gate.State(),
		"saveState": cons.Editor.State(),
		"lastSave":  cons.Editor.Last(),
	}
	if id, ok := cons.Gate.Identity(); ok {
		resp["identity"] = id
	}
	c.JSON(http.StatusOK, resp)
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	cons := currentConsole(c)
	id, err := cons.SignIn(c.Request.Context(), req.Email, []byte(req.Password))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": cons.Gate.State(), "identity": id, "token": id.Token})
}

func (h *Handler) SignOut(c *gin.Context) {
	cons := currentConsole(c)
	if err := cons.SignOut(c.Request.Context()); err != nil {
		h.log.Warn("sign-out", zap.String("console", cons.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"state": cons.Gate.State()})
}

// ListProducts returns every product, drafts included, newest first.
func (h *Handler) ListProducts(c *gin.Context) {
	cons := currentConsole(c)
	products, ready := cons.Products.Products()
	c.JSON(http.StatusOK, gin.H{"success": true, "ready": ready, "count": len(products), "data": products})
}

type productRow struct {
	ID        string `csv:"id"`
	Title     string `csv:"title"`
	Category  string `csv:"category"`
	Status    string `csv:"status"`
	SKU       string `csv:"sku"`
	Barcode   string `csv:"barcode"`
	Stock     int    `csv:"stock"`
	PriceZAR  string `csv:"priceZAR"`
	PriceEUR  string `csv:"priceEUR"`
	Labels    string `csv:"labels"`
	Tags      string `csv:"tags"`
	Images    int    `csv:"images"`
	UpdatedAt string `csv:"updatedAt"`
	UpdatedBy string `csv:"updatedBy"`
}

func toRow(p models.Product) productRow {
	return productRow{
		ID:        p.ID,
		Title:     p.Title,
		Category:  p.Category,
		Status:    string(p.Status),
		SKU:       p.SKU,
		Barcode:   p.Barcode,
		Stock:     p.Stock,
		PriceZAR:  csvNumber(p.PriceZAR),
		PriceEUR:  csvNumber(p.PriceEUR),
		Labels:    strings.Join(p.Labels, "|"),
		Tags:      strings.Join(p.Tags, "|"),
		Images:    len(p.Images),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
		UpdatedBy: p.UpdatedBy,
	}
}

func csvNumber(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func (h *Handler) ExportProducts(c *gin.Context) {
	cons := currentConsole(c)
	products, _ := cons.Products.Products()
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, toRow(p))
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename=products.csv")
	c.Status(http.StatusOK)
	if err := gocsv.Marshal(rows, c.Writer); err != nil {
		h.log.Error("csv export", zap.Error(err))
	}
}
