package handlers

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/pkg/console"
	"github.com/andrescris/shopfront/pkg/form"
	"github.com/andrescris/shopfront/pkg/models"
)

const maxImagesPerRequest = 10

func formResponse(cons *console.Console) gin.H {
	return gin.H{
		"draft":       cons.Editor.Draft(),
		"derivedTags": cons.Editor.DerivedTags(),
		"saveState":   cons.Editor.State(),
		"lastSave":    cons.Editor.Last(),
	}
}

func (h *Handler) GetForm(c *gin.Context) {
	c.JSON(http.StatusOK, formResponse(currentConsole(c)))
}

// PatchForm sets text fields. Keys are document field names, with
// dimensions addressed as "dimensions.length" and so on.
func (h *Handler) PatchForm(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	cons := currentConsole(c)
	err := cons.Editor.Edit(func(f *form.Form) error {
		return f.SetFields(values)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, formResponse(cons))
}

func (h *Handler) ToggleLabel(c *gin.Context) {
	cons := currentConsole(c)
	label := c.Param("label")
	err := cons.Editor.Edit(func(f *form.Form) error {
		return f.ToggleLabel(label)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, formResponse(cons))
}

// UploadImages stages the uploaded files on local disk and adds them to the
// form as pending images. They reach the asset store on save.
func (h *Handler) UploadImages(c *gin.Context) {
	mf, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form", "details": err.Error()})
		return
	}
	files := make([]*multipart.FileHeader, 0, len(mf.File["image"])+len(mf.File["images"]))
	files = append(files, mf.File["image"]...)
	files = append(files, mf.File["images"]...)
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No images in request"})
		return
	}
	if len(files) > maxImagesPerRequest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many images", "max": maxImagesPerRequest})
		return
	}

	cons := currentConsole(c)
	picked := make([]models.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size == 0 {
			continue
		}
		dst := filepath.Join(h.stagingDir, uuid.NewString()+filepath.Ext(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			h.log.Error("stage image", zap.String("file", fh.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stage image", "details": err.Error()})
			return
		}
		picked = append(picked, models.Image{URI: "file://" + dst, Name: filepath.Base(fh.Filename)})
	}

	err = cons.Editor.Edit(func(f *form.Form) error {
		f.AddPickedImages(picked...)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, formResponse(cons))
}

func (h *Handler) RemoveImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image index must be a number"})
		return
	}
	cons := currentConsole(c)
	outOfRange := false
	err = cons.Editor.Edit(func(f *form.Form) error {
		if index < 0 || index >= f.ImageCount() {
			outOfRange = true
			return nil
		}
		f.RemoveImage(index)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if outOfRange {
		c.JSON(http.StatusNotFound, gin.H{"error": "No image at index " + c.Param("index")})
		return
	}
	c.JSON(http.StatusOK, formResponse(cons))
}

func (h *Handler) LoadProduct(c *gin.Context) {
	cons := currentConsole(c)
	if err := cons.Editor.Load(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, formResponse(cons))
}

func (h *Handler) ResetForm(c *gin.Context) {
	cons := currentConsole(c)
	err := cons.Editor.Edit(func(f *form.Form) error {
		f.Reset()
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, formResponse(cons))
}

// SaveProduct creates or updates the product in the form. The form is reset
// on success and left as it was on failure.
func (h *Handler) SaveProduct(c *gin.Context) {
	cons := currentConsole(c)
	creating := cons.Editor.Draft().ID == ""
	out, err := cons.Save(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if creating {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "message": out.Message, "id": out.ID, "state": out.State})
}
