package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shop-cart-service/internal/cart/application"
	"github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("cart-http"),
	}
}

// Routes is mounted under /api/cart.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.getCart)
	r.Post("/", h.createCart)
	r.Post("/items", h.addItem)
	r.Put("/items", h.updateItem)
	r.Delete("/items", h.removeItem)
	r.Delete("/clear", h.clearCart)
	r.Delete("/delete", h.deleteCart)
	return r
}

type cartData struct {
	Cart domain.Cart `json:"cart"`
}

type itemReq struct {
	Phone     string `json:"phone"`
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
	Size      string `json:"size"`
}

type phoneReq struct {
	Phone string `json:"phone"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	c, err := h.service.GetCart(ctx, r.URL.Query().Get("phone"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, cartData{Cart: c})
}

// createCart returns the existing cart or stores a new empty one.
func (h *Handler) createCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCart")
	defer span.End()

	var req phoneReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.service.GetOrCreate(ctx, req.Phone)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, cartData{Cart: c})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	var req itemReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	span.SetAttributes(attribute.String("product.id", req.ProductID), attribute.Int("quantity", qty))

	c, err := h.service.AddItem(ctx, application.AddItemInput{
		Phone:     req.Phone,
		ProductID: req.ProductID,
		Quantity:  qty,
		Size:      req.Size,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, cartData{Cart: c})
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartItem")
	defer span.End()

	var req itemReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(w, h.log, domain.ErrQuantityRequired)
		return
	}

	c, err := h.service.UpdateQuantity(ctx, req.Phone, req.ProductID, req.Size, *req.Quantity)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, cartData{Cart: c})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	var req itemReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	c, err := h.service.RemoveItem(ctx, req.Phone, req.ProductID, req.Size)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, cartData{Cart: c})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	var req phoneReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	c, err := h.service.Clear(ctx, req.Phone)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, cartData{Cart: c})
}

func (h *Handler) deleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteCart")
	defer span.End()

	var req phoneReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	if err := h.service.Delete(ctx, req.Phone); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "cart deleted")
}
