package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"replog/internal/master"
	"replog/internal/rerrors"
)

// MasterHandler mounts the master's client-facing write/read endpoints and
// the inter-node join RPC.
type MasterHandler struct {
	coordinator    *master.Coordinator
	joinServer     *master.JoinServer
	writeQuorum    int
	defaultRPCPort int // RPC_PORT: used to reconstruct a joiner's dial address when it omits its own port
	log            zerolog.Logger
}

// NewMasterHandler wires a MasterHandler over the replication coordinator
// and join server. defaultRPCPort is the fallback port used to build a
// joining node's dial address when its NodeState.Port is zero.
func NewMasterHandler(coordinator *master.Coordinator, joinServer *master.JoinServer, writeQuorum, defaultRPCPort int, log zerolog.Logger) *MasterHandler {
	return &MasterHandler{coordinator: coordinator, joinServer: joinServer, writeQuorum: writeQuorum, defaultRPCPort: defaultRPCPort, log: log}
}

// Register mounts every route this process serves.
func (h *MasterHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.POST("/messages", h.PostMessage)
	v1.GET("/messages", h.ListMessages)
	v1.GET("/cluster/nodes", h.ClusterNodes)

	rpc := r.Group("/rpc")
	rpc.POST("/join", h.Join)

	r.GET("/health", h.Health)
}

type postMessageRequest struct {
	Message    string  `json:"message" binding:"required"`
	WC         int     `json:"wc"`
	Ordering   *uint32 `json:"__ordering,omitempty"`
	Duplicate  bool    `json:"__duplicate,omitempty"`
}

// PostMessage handles POST /api/v1/messages: 503 with
// {status:false, message:...} when quorum is not met, otherwise 201 with
// {status:true, message:"Message delivered"}.
func (h *MasterHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}

	if err := h.coordinator.Admit(h.writeQuorum); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": false, "message": "quorum not met"})
		return
	}

	ctx := c.Request.Context()
	if err := h.coordinator.Replicate(ctx, req.Message, req.WC, req.Ordering); err != nil {
		if rerrors.IsKind(err, rerrors.KindQuorumUnmet) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": false, "message": "quorum not met"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": err.Error()})
		return
	}

	// Optional duplicate fire for exercising duplicate-suppression end to end.
	if req.Duplicate {
		_ = h.coordinator.Replicate(ctx, req.Message, req.WC, req.Ordering)
	}

	c.JSON(http.StatusCreated, gin.H{"status": true, "message": "Message delivered"})
}

// ListMessages handles GET /api/v1/messages.
func (h *MasterHandler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, toContentList(h.coordinator.LocalLog().All()))
}

type nodeView struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ClusterNodes handles GET /api/v1/cluster/nodes: an operator-facing
// snapshot of the active membership set, for `replogctl cluster nodes`.
func (h *MasterHandler) ClusterNodes(c *gin.Context) {
	members := h.coordinator.Table().Snapshot()
	out := make([]nodeView, len(members))
	for i, m := range members {
		out[i] = nodeView{Name: m.Name, Address: m.Address}
	}
	c.JSON(http.StatusOK, out)
}

type joinRequestBody struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Ordering uint32 `json:"ordering"`
}

// Join handles POST /rpc/join: derive the dial address from host (plus its
// announced port, falling back to defaultRPCPort) if host is non-empty,
// else from the observed peer address. The address always carries a
// scheme and a port, per internal/master.BuildAddress, so it is directly
// dialable by the replicate/health/sync transport.
func (h *MasterHandler) Join(c *gin.Context) {
	var body joinRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	host := body.Host
	if host == "" {
		host = c.ClientIP()
	}
	address := master.BuildAddress(host, body.Port, h.defaultRPCPort)
	name := host

	ctx := context.Background()
	success := h.joinServer.HandleJoin(ctx, name, address, body.Ordering)
	c.JSON(http.StatusOK, gin.H{"success": success})
}

// Health is the operator-facing liveness endpoint, distinct from the
// inter-node /rpc/health used by the prober.
func (h *MasterHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type messageView struct {
	Content string `json:"content"`
}

func toContentList(messages []string) []messageView {
	out := make([]messageView, len(messages))
	for i, m := range messages {
		out[i] = messageView{Content: m}
	}
	return out
}
