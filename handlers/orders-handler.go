package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/CristhianMazon/ecommerce-api-main/internal/auth"
	"github.com/CristhianMazon/ecommerce-api-main/internal/orders"
	"github.com/CristhianMazon/ecommerce-api-main/internal/products"
	"github.com/CristhianMazon/ecommerce-api-main/internal/stores/kafka"
	"github.com/CristhianMazon/ecommerce-api-main/pkg/ctxmanage"
	"github.com/CristhianMazon/ecommerce-api-main/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// PlaceOrder creates an order for the authenticated user from the requested
// line items. The whole placement is one unit of work: any line failing
// leaves no order, no items and no stock change behind.
func (h *Handler) PlaceOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request struct {
		Products []orders.LineRequest `json:"products"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Products are required and must be a non-empty array"})
		return
	}

	orderID, err := h.o.PlaceOrder(c.Request.Context(), claims.Subject, request.Products)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrInvalidRequest):
			slog.Error("invalid order request", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Products are required and must be a non-empty array"})
		case errors.Is(err, products.ErrNotFound):
			slog.Error("product not found", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, products.ErrInsufficientStock):
			slog.Error("insufficient stock", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.Error("error in creating order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Order creation failed"})
		}
		return
	}

	slog.Info("order placed", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.UserID, claims.Subject), slog.Int64(logkey.OrderID, orderID))

	h.publishOrderPlaced(traceId, orderID, claims.Subject, request.Products)

	c.JSON(http.StatusCreated, gin.H{"message": "Order created successfully", "order_id": orderID})
}

func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.o.ListOrders(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error in fetching orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		slog.Error("invalid order id", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	order, err := h.o.GetOrder(c.Request.Context(), claims.Subject, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found or does not belong to this user"})
			return
		}
		slog.Error("error in fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder removes the user's order, restoring the stock its lines had
// reserved. A missing order and another user's order answer identically.
func (h *Handler) CancelOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		slog.Error("invalid order id", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	if err := h.o.CancelOrder(c.Request.Context(), claims.Subject, orderID); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found or does not belong to this user"})
			return
		}
		slog.Error("error in cancelling order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Order cancellation failed"})
		return
	}

	slog.Info("order cancelled", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.UserID, claims.Subject), slog.Int64(logkey.OrderID, orderID))

	h.publishOrderCancelled(traceId, orderID, claims.Subject)

	c.Status(http.StatusNoContent)
}

// Event publication is best-effort and happens after the unit of work has
// committed; failures are logged, never surfaced to the caller.
func (h *Handler) publishOrderPlaced(traceId string, orderID int64, userID string, lines []orders.LineRequest) {
	if h.k == nil {
		return
	}
	go func() {
		key := []byte(strconv.FormatInt(orderID, 10))
		for _, line := range lines {
			quantity := line.Quantity
			if quantity == 0 {
				quantity = 1
			}
			jsonData, err := json.Marshal(kafka.OrderPlacedEvent{
				OrderId:   orderID,
				UserId:    userID,
				ProductId: line.ProductID,
				Quantity:  quantity,
				CreatedAt: time.Now().UTC(),
			})
			if err != nil {
				slog.Error("failed to marshal OrderPlacedEvent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
				return
			}
			if err := h.k.ProduceMessage(kafka.TopicOrderPlaced, key, jsonData); err != nil {
				slog.Error("failed to produce message", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
				return
			}
		}
	}()
}

func (h *Handler) publishOrderCancelled(traceId string, orderID int64, userID string) {
	if h.k == nil {
		return
	}
	go func() {
		jsonData, err := json.Marshal(kafka.OrderCancelledEvent{
			OrderId:     orderID,
			UserId:      userID,
			CancelledAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to marshal OrderCancelledEvent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			return
		}
		key := []byte(strconv.FormatInt(orderID, 10))
		if err := h.k.ProduceMessage(kafka.TopicOrderCancelled, key, jsonData); err != nil {
			slog.Error("failed to produce message", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		}
	}()
}
