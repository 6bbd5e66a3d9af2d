package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/audit"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/identity"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/protocol"
)

// IngestResponse is the body of every POST /api/events response.
type IngestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Ingest accepts single telemetry events over plain HTTP. Unlike the WebSocket path it validates
// strictly and reports failures to the caller.
type Ingest struct {
	resolver Resolver
	writer   telemetry.Writer
	maxBody  int64
	logger   *zap.Logger
}

// NewIngest returns the HTTP ingest handler. maxBody bounds the request body (8 KiB when <= 0).
func NewIngest(resolver Resolver, writer telemetry.Writer, maxBody int64, logger *zap.Logger) *Ingest {
	if maxBody <= 0 {
		maxBody = 8192
	}
	return &Ingest{
		resolver: resolver,
		writer:   writer,
		maxBody:  maxBody,
		logger:   logging.OrNop(logger).Named("ingest"),
	}
}

// Register mounts POST /api/events on r.
func (h *Ingest) Register(r gin.IRouter) {
	r.POST("/api/events", h.Post)
}

// Post handles POST /api/events.
func (h *Ingest) Post(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	frame, err := protocol.Decode(body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !frame.Truthy("type") || !frame.Truthy("userId") {
		fail(c, http.StatusBadRequest, "Missing required fields: type and userId")
		return
	}

	id, ok := identity.CoerceID(frame.UserID)
	if !ok {
		fail(c, http.StatusNotFound, "User not found with ID: "+string(frame.UserID))
		return
	}
	ctx := telemetry.WithSource(c.Request.Context(), telemetry.SourceHTTP)
	u, err := h.resolver.ResolveID(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrLookup) {
			h.logger.Error("user lookup failed", zap.Int64("user_id", id), zap.Error(err))
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}
		fail(c, http.StatusNotFound, "User not found with ID: "+strconv.FormatInt(id, 10))
		return
	}

	if msg := missingField(frame); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	ev := frame.Event
	if err := h.writer.WriteEvent(ctx, u.ID, ev); err != nil {
		h.logger.Error("event not stored", zap.Int64("user_id", u.ID), zap.String("type", frame.Type), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	entry, _ := audit.ForEvent(ev)
	if err := h.writer.WriteAudit(ctx, u.ID, entry.Category, entry.Detail); err != nil {
		h.logger.Error("audit entry not stored", zap.Int64("user_id", u.ID), zap.String("category", entry.Category), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	c.JSON(http.StatusOK, IngestResponse{Success: true})
}

// missingField returns the client message for a frame lacking its kind's required field, or for
// a kind HTTP does not accept. Empty means the frame is acceptable.
func missingField(f protocol.Frame) string {
	switch f.Kind() {
	case domain.KindKeystroke:
		if !f.Truthy("keyPressed") {
			return "keyPressed is required for keystroke events"
		}
	case domain.KindPointerMove:
		if !f.Has("xPos") || !f.Has("yPos") {
			return "xPos and yPos are required for mouseMovement events"
		}
	case domain.KindVisibilityChange:
		if !f.Truthy("tabUrl") {
			return "tabUrl is required for tabSwitch events"
		}
	default:
		return fmt.Sprintf("Invalid event type: %s", f.Type)
	}
	return ""
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, IngestResponse{Success: false, Message: message})
}
