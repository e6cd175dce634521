package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"replog/internal/model"
	"replog/internal/secondary"
)

// SecondaryHandler mounts the secondary's client-facing read/sabotage
// endpoints and the inter-node replicate/health/sync RPC endpoints.
type SecondaryHandler struct {
	server     *secondary.Server
	syncServer *secondary.SyncServer
	log        zerolog.Logger
}

// NewSecondaryHandler wires a SecondaryHandler over the replication server
// and sync server.
func NewSecondaryHandler(server *secondary.Server, syncServer *secondary.SyncServer, log zerolog.Logger) *SecondaryHandler {
	return &SecondaryHandler{server: server, syncServer: syncServer, log: log}
}

// Register mounts every route this process serves.
func (h *SecondaryHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.GET("/messages", h.ListMessages)
	v1.POST("/sabotage", h.ToggleSabotage)

	rpc := r.Group("/rpc")
	rpc.POST("/replicate", h.Replicate)
	rpc.GET("/health", h.RPCHealth)
	rpc.POST("/sync", h.Sync)

	r.GET("/health", h.Health)
}

// ListMessages handles GET /api/v1/messages.
func (h *SecondaryHandler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, toContentList(h.server.Log().All()))
}

// ToggleSabotage handles POST /api/v1/sabotage: flips the process-wide
// sabotage test-hook flag.
func (h *SecondaryHandler) ToggleSabotage(c *gin.Context) {
	next := !h.server.Sabotage()
	h.server.SetSabotage(next)
	c.JSON(http.StatusOK, gin.H{"sabotage": next})
}

// Replicate handles POST /rpc/replicate: apply a replicated message and
// translate the classification error into an Ack.
func (h *SecondaryHandler) Replicate(c *gin.Context) {
	var replica model.Replica
	if err := c.ShouldBindJSON(&replica); err != nil {
		c.JSON(http.StatusBadRequest, model.Ack{Success: false})
		return
	}
	err := h.server.Replicate(c.Request.Context(), replica)
	c.JSON(http.StatusOK, model.Ack{Success: err == nil})
}

// RPCHealth is the standard liveness endpoint consumed by the master's
// prober while the process is alive.
func (h *SecondaryHandler) RPCHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "SERVING"})
}

// Sync handles POST /rpc/sync: always responds immediately, regardless of
// whether a resync was actually started.
func (h *SecondaryHandler) Sync(c *gin.Context) {
	h.syncServer.HandleSync(c.Request.Context())
	c.JSON(http.StatusOK, model.EmptyAck{})
}

// Health is the operator-facing liveness endpoint.
func (h *SecondaryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
