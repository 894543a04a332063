package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"xanalytics/services"
)

// GetPNodes godoc
// @Summary Credits leaderboard
// @Description Ranked pNodes with live stats, locations and aggregate statistics
// @Tags pnodes
// @Produce json
// @Param network query string false "mainnet, devnet or testnet (default: mainnet)"
// @Success 200 {object} models.Snapshot
// @Failure 400 {object} models.ErrorResponse
// @Router /api/pnodes [get]
func (h *Handler) GetPNodes(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	snapshot, err := h.Aggregator.GetNetworkSnapshot(ctx, network(c))
	if err != nil {
		return h.serviceError(c, err)
	}
	if !snapshot.Success {
		return degraded(c, snapshot)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// GetPNode godoc
// @Summary One pNode
// @Tags pnodes
// @Produce json
// @Param identity path string true "Node public key"
// @Param network query string false "mainnet, devnet or testnet (default: mainnet)"
// @Success 200 {object} models.NodeRecord
// @Failure 404 {object} models.ErrorResponse
// @Router /api/pnodes/{identity} [get]
func (h *Handler) GetPNode(c echo.Context) error {
	identity := c.Param("identity")
	if identity == "" {
		return errorJSON(c, http.StatusBadRequest, "Node identity required")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	node, snapshot, err := h.Aggregator.GetNode(ctx, network(c), identity)
	if err != nil {
		return h.serviceError(c, err)
	}
	if !snapshot.Success {
		return degraded(c, snapshot)
	}
	if node == nil {
		return errorJSON(c, http.StatusNotFound, "Node not found")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"network":      snapshot.Network,
		"epoch":        snapshot.Epoch,
		"totalCredits": snapshot.TotalCredits,
		"node":         node,
		"timestamp":    snapshot.Timestamp,
	})
}

// CompareNodes godoc
// @Summary Side-by-side comparison of up to five pNodes
// @Tags pnodes
// @Produce json
// @Param ids query string true "Comma separated node public keys"
// @Param network query string false "mainnet, devnet or testnet (default: mainnet)"
// @Success 200 {object} models.NodeComparison
// @Router /api/compare [get]
func (h *Handler) CompareNodes(c echo.Context) error {
	ids, err := services.ParseIdentities(c.QueryParam("ids"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	comparison, snapshot, err := h.Aggregator.CompareNodes(ctx, network(c), ids)
	if err != nil {
		return h.serviceError(c, err)
	}
	if !snapshot.Success {
		return degraded(c, snapshot)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"comparison": comparison,
		"timestamp":  snapshot.Timestamp,
	})
}
