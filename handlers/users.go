package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/picload/picload/internal/assets"
	"github.com/picload/picload/internal/models"
	"github.com/picload/picload/internal/storage"
	"github.com/picload/picload/internal/users"
	"github.com/picload/picload/pkg/logger"
	"github.com/picload/picload/pkg/metrics"
	"github.com/picload/picload/pkg/middleware"
)

// AssetStore is the remote asset store surface the upload handler needs.
// Satisfied by storage.MinIOStorage and by test fakes.
type AssetStore interface {
	Store(ctx context.Context, reader io.Reader, size int64, contentType, originalName string) (models.ImageRef, error)
	Delete(ctx context.Context, filename string) error
}

// DeleteImagesRequest names the filenames to remove from the caller's collection
type DeleteImagesRequest struct {
	Filenames []string `json:"filenames" binding:"required,min=1"`
}

// imageView is an ImageRef plus its derived rendition URLs
type imageView struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	ThumbnailURL string `json:"thumbnailUrl"`
	PreviewURL   string `json:"previewUrl"`
}

// UserHandler serves the resource-scoped user/image endpoints
type UserHandler struct {
	svc   *users.Service
	store AssetStore
	sync  *assets.Synchronizer
}

func NewUserHandler(svc *users.Service, store AssetStore, sync *assets.Synchronizer) *UserHandler {
	return &UserHandler{svc: svc, store: store, sync: sync}
}

// Register mounts the guarded routes. Each resource-scoped route runs
// the full chain: well-formed ID, resource exists, caller authenticated,
// caller owns resource. Every stage fails closed.
func (h *UserHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier) {
	u := rg.Group("/api/v1/users/:id",
		middleware.ValidUserID(),
		middleware.UserExists(h.svc),
		middleware.AuthMiddleware(ver),
		middleware.RequireOwner(),
	)
	u.GET("", h.ViewProfile)
	u.POST("/images", h.UploadImages)
	u.DELETE("/images", h.DeleteImages)

	rg.GET("/api/v1/me", middleware.AuthMiddleware(ver), h.Me)
}

// ViewProfile returns the target user with derived rendition URLs
func (h *UserHandler) ViewProfile(c *gin.Context) {
	u := middleware.TargetUser(c)
	c.JSON(http.StatusOK, gin.H{"user": u, "images": imageViews(u.Images)})
}

// UploadImages accepts a multipart batch under the "image" field, stores
// each file in the remote asset store and appends the resulting refs to
// the user's image list in one update.
func (h *UserHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	files := form.File["image"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files submitted"})
		return
	}

	userID := c.Param("id")
	refs := make([]models.ImageRef, 0, len(files))
	var storeErr error
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			storeErr = err
			break
		}
		ref, err := h.store.Store(c.Request.Context(), f, fh.Size, fh.Header.Get("Content-Type"), fh.Filename)
		f.Close()
		if err != nil {
			storeErr = err
			break
		}
		refs = append(refs, ref)
	}

	// attach whatever was stored so nothing is silently orphaned, even
	// when a later file in the batch failed
	var u *models.User
	if len(refs) > 0 {
		u, err = h.sync.Attach(c.Request.Context(), userID, refs)
		if err != nil {
			switch {
			case errors.Is(err, users.ErrDuplicateFilename):
				c.JSON(http.StatusConflict, gin.H{"error": "duplicate image filename"})
			case errors.Is(err, users.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			default:
				logger.Errorf("upload: attach failed for user %s: %v", userID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save uploaded images"})
			}
			return
		}
		metrics.ImagesUploaded.Add(float64(len(refs)))
	}

	if storeErr != nil {
		if errors.Is(storeErr, storage.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": storeErr.Error(), "stored": len(refs)})
			return
		}
		metrics.RemoteStoreFailures.WithLabelValues("store").Inc()
		logger.Errorf("upload: store failed for user %s: %v", userID, storeErr)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store one or more images", "stored": len(refs)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u, "images": imageViews(u.Images)})
}

// DeleteImages removes the named objects from the remote store and then
// pulls the successfully deleted filenames from the user's image list.
func (h *UserHandler) DeleteImages(c *gin.Context) {
	var req DeleteImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.Param("id")
	u, err := h.sync.Remove(c.Request.Context(), userID, req.Filenames)
	// count entries actually pulled from the list; absent filenames are
	// tolerated no-ops and must not inflate the counter
	removed := 0
	if pre := middleware.TargetUser(c); pre != nil && u != nil {
		if d := len(pre.Images) - len(u.Images); d > 0 {
			removed = d
		}
	}
	if err != nil {
		var rse *assets.RemoteStoreError
		if errors.As(err, &rse) {
			metrics.RemoteStoreFailures.WithLabelValues("delete").Add(float64(len(rse.Failed)))
			metrics.ImagesDeleted.Add(float64(removed))
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "some images could not be deleted from the remote store",
				"failed": rse.Failed,
				"user":   u,
			})
			return
		}
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Errorf("delete: failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete images"})
		return
	}
	metrics.ImagesDeleted.Add(float64(removed))
	c.JSON(http.StatusOK, gin.H{"user": u, "images": imageViews(u.Images)})
}

// Me returns the caller's own record resolved from token claims
func (h *UserHandler) Me(c *gin.Context) {
	caller := middleware.CallerID(c)
	if caller == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no subject claim"})
		return
	}
	u, err := h.svc.GetByID(c.Request.Context(), caller)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "images": imageViews(u.Images)})
}

func imageViews(refs []models.ImageRef) []imageView {
	out := make([]imageView, 0, len(refs))
	for _, r := range refs {
		out = append(out, imageView{
			URL:          r.URL,
			Filename:     r.Filename,
			ThumbnailURL: r.Thumbnail(),
			PreviewURL:   r.Preview(),
		})
	}
	return out
}
