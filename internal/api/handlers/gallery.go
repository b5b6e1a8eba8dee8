package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"reid-worker-go/internal/logging"
	"reid-worker-go/internal/services/reid"
)

// GalleryStore is the read and tune surface of the re-identifier
type GalleryStore interface {
	Gallery() *reid.Gallery
	ModelID() string
	SetPerIDGalleryLimit(count int, dropMethod string) error
}

type GalleryHandler struct {
	store GalleryStore
}

func NewGalleryHandler(store GalleryStore) *GalleryHandler {
	return &GalleryHandler{store: store}
}

type GalleryIdentity struct {
	ID      int `json:"id" example:"3"`
	Samples int `json:"samples" example:"42"`
}

type GalleryResponse struct {
	ModelID    string            `json:"model_id" example:"alwaysai/re_id"`
	Identities int               `json:"identities"`
	Limit      int               `json:"per_id_limit"`
	DropMethod string            `json:"drop_method"`
	Added      int64             `json:"samples_added"`
	Dropped    int64             `json:"samples_dropped"`
	Entries    []GalleryIdentity `json:"entries"`
}

type GalleryLimitRequest struct {
	Count      int    `json:"count" binding:"required,min=1" example:"100"`
	DropMethod string `json:"drop_method" example:"drop_random"`
}

// @Summary Gallery contents
// @Description Identities in the gallery with their sample counts
// @Tags gallery
// @Produce json
// @Success 200 {object} GalleryResponse
// @Router /gallery [get]
func (h *GalleryHandler) GetGallery(c *gin.Context) {
	g := h.store.Gallery()
	counts := g.Counts()
	added, dropped := g.Stats()
	limit, drop := g.Limit()

	entries := make([]GalleryIdentity, 0, len(counts))
	for id, n := range counts {
		entries = append(entries, GalleryIdentity{ID: id, Samples: n})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	c.JSON(http.StatusOK, GalleryResponse{
		ModelID:    h.store.ModelID(),
		Identities: len(entries),
		Limit:      limit,
		DropMethod: string(drop),
		Added:      added,
		Dropped:    dropped,
		Entries:    entries,
	})
}

// @Summary Set per id gallery limit
// @Description Change the per identity sample limit and drop method
// @Tags gallery
// @Accept json
// @Produce json
// @Param request body GalleryLimitRequest true "Limit"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /gallery/limit [put]
func (h *GalleryHandler) SetLimit(c *gin.Context) {
	var req GalleryLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.DropMethod == "" {
		req.DropMethod = string(reid.DropRandom)
	}

	if err := h.store.SetPerIDGalleryLimit(req.Count, req.DropMethod); err != nil {
		logging.Warn(c).Err(err).Msg("Rejected gallery limit")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Int("count", req.Count).Str("drop_method", req.DropMethod).Msg("Gallery limit updated")
	c.JSON(http.StatusOK, SuccessResponse{Status: "ok"})
}

// @Summary Clear gallery
// @Description Remove every identity from the gallery
// @Tags gallery
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /gallery [delete]
func (h *GalleryHandler) ResetGallery(c *gin.Context) {
	h.store.Gallery().Reset()
	logging.Info(c).Msg("Gallery cleared")
	c.JSON(http.StatusOK, SuccessResponse{Status: "ok", Message: "gallery cleared"})
}
