package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client  *mongo.Client
	Started time.Time
	Log     *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client and logger.
func NewHandler(client *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Started: time.Now(),
		Log:     logger,
	}
}

// Status is the data of the health envelope.
type Status struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "success":true, "data":{"status":"ok","database":"connected","uptimeSeconds":42} }
//
// On DB failure: 503 and
//
//	{ "success":false, "message":"Database unavailable", "data":{"status":"error","database":"disconnected",...} }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	st := Status{
		Status:        "ok",
		Database:      "connected",
		UptimeSeconds: int64(time.Since(h.Started).Seconds()),
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		st.Status = "error"
		st.Database = "disconnected"
		respond.JSON(w, http.StatusServiceUnavailable, respond.Envelope{
			Success: false,
			Message: "Database unavailable",
			Data:    st,
		})
		return
	}
	respond.OK(w, "", st)
}
