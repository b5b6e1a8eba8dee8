package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reid-worker-go/internal/logging"
)

// StreamSource serves MJPEG streams and accepts exit requests from viewers
type StreamSource interface {
	Streams() []string
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, streamID string)
	RequestExit()
	CheckExit() bool
}

type StreamHandler struct {
	source  StreamSource
	allowed map[string]struct{}
}

func NewStreamHandler(source StreamSource, streamIDs ...string) *StreamHandler {
	allowed := make(map[string]struct{}, len(streamIDs))
	for _, id := range streamIDs {
		allowed[id] = struct{}{}
	}
	return &StreamHandler{source: source, allowed: allowed}
}

type StreamsResponse struct {
	Streams []string `json:"streams"`
	Active  []string `json:"active"`
}

type ExitResponse struct {
	Status    string    `json:"status" example:"exiting"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// @Summary List streams
// @Description Stream ids that can be viewed and those that already have frames
// @Tags streams
// @Produce json
// @Success 200 {object} StreamsResponse
// @Router /streams [get]
func (h *StreamHandler) ListStreams(c *gin.Context) {
	ids := make([]string, 0, len(h.allowed))
	for _, id := range []string{"composite", "entry", "exit"} {
		if _, ok := h.allowed[id]; ok {
			ids = append(ids, id)
		}
	}
	c.JSON(http.StatusOK, StreamsResponse{Streams: ids, Active: h.source.Streams()})
}

// @Summary MJPEG stream
// @Description Live annotated frames as multipart/x-mixed-replace
// @Tags streams
// @Produce multipart/x-mixed-replace
// @Param id path string true "Stream id (composite, entry, exit)"
// @Success 200
// @Failure 404 {object} ErrorResponse
// @Router /stream/{id} [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.allowed[id]; !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "stream not found"})
		return
	}

	logging.Debug(c).Msg("MJPEG viewer connected")
	h.source.StreamMJPEGHTTP(c.Writer, c.Request, id)
	logging.Debug(c).Msg("MJPEG viewer disconnected")
}

// @Summary Stop the loop
// @Description Ask the re-identification loop to exit after the current frame
// @Tags streams
// @Produce json
// @Success 202 {object} ExitResponse
// @Router /exit [post]
func (h *StreamHandler) Exit(c *gin.Context) {
	already := h.source.CheckExit()
	h.source.RequestExit()

	msg := "Exit requested"
	if already {
		msg = "Exit already requested"
	}
	logging.Info(c).Bool("repeat", already).Msg(msg)

	c.JSON(http.StatusAccepted, ExitResponse{
		Status:    "exiting",
		Message:   msg,
		Timestamp: time.Now(),
	})
}
