package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/roomservice/internal/order"
	"github.com/dshills/roomservice/internal/report"
	"github.com/dshills/roomservice/internal/service"
	"github.com/dshills/roomservice/pkg/types"
)

// Handler serves the /api routes
type Handler struct {
	svc    *service.Service
	gate   *Gate
	logger *slog.Logger
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !h.gate.Check(req.Passphrase) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) getMenu(c *gin.Context) {
	version := c.Query("version")
	if version == "" {
		version = h.svc.DefaultMenuVersion()
	}
	items, err := h.svc.Menu(c.Request.Context(), version)
	if err != nil {
		h.writeError(c, err)
		return
	}
	versions, err := h.svc.MenuVersions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version, "versions": versions, "items": items})
}

func (h *Handler) publishMenu(c *gin.Context) {
	var req struct {
		Version string            `json:"version" binding:"required"`
		Items   []*types.MenuItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.PublishMenu(c.Request.Context(), req.Version, req.Items); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "version": req.Version, "count": len(req.Items)})
}

func (h *Handler) listOrders(c *gin.Context) {
	filter := types.ListFilter{
		Status:        types.Status(c.Query("status")),
		PaymentStatus: types.PaymentStatus(c.Query("payment_status")),
		RoomNo:        c.Query("room_no"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(c, types.NewValidationError("limit", "must be an integer"))
			return
		}
		filter.Limit = n
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &filter.CreatedFrom}, {"to", &filter.CreatedTo}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(c, types.NewValidationError(p.name, "must be RFC 3339"))
			return
		}
		*p.dst = t
	}

	orders, err := h.svc.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) createOrder(c *gin.Context) {
	var in service.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := h.svc.CreateOrder(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) addItems(c *gin.Context) {
	var req struct {
		Items []types.ItemRequest `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := h.svc.AddItemsToOrder(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) updateItemQuantity(c *gin.Context) {
	var req struct {
		Qty *int `json:"qty" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := h.svc.UpdateItemQuantity(c.Request.Context(), c.Param("id"), c.Param("key"), *req.Qty)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) removeItem(c *gin.Context) {
	o, err := h.svc.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) updateOrder(c *gin.Context) {
	var u order.FieldUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := h.svc.UpdateOrder(c.Request.Context(), c.Param("id"), u)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) notifyKitchen(c *gin.Context) {
	o, err := h.svc.NotifyKitchen(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": o})
}

func (h *Handler) printBill(c *gin.Context) {
	b, err := h.svc.RenderBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	switch c.DefaultQuery("format", "html") {
	case "text":
		err = report.RenderText(&buf, b)
		c.Header("Content-Type", "text/plain; charset=utf-8")
	case "json":
		c.JSON(http.StatusOK, b)
		return
	default:
		err = report.RenderHTML(&buf, b)
		c.Header("Content-Type", "text/html; charset=utf-8")
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.String(http.StatusOK, buf.String())
}

func (h *Handler) exportCSV(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		h.writeError(c, types.NewValidationError("date", "is required (YYYY-MM-DD)"))
		return
	}
	csvText, err := h.svc.ExportCSV(c.Request.Context(), date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="orders-%s.csv"`, date))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csvText))
}
