package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shop-cart-service/internal/order/application"
	"github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
	// createGuard wraps the create route, e.g. with idempotency replay.
	createGuard func(http.Handler) http.Handler
}

type Option func(*Handler)

func WithCreateMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.createGuard = mw }
}

func NewHandler(log *slog.Logger, service *application.Service, opts ...Option) *Handler {
	h := &Handler{
		log:         log,
		service:     service,
		tracer:      otel.Tracer("order-http"),
		createGuard: func(next http.Handler) http.Handler { return next },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes is mounted under /api/orders.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.With(h.createGuard).Post("/create", h.createOrder)
	r.Put("/update/{id}", h.updateOrder)
	r.Get("/", h.listOrders)
	r.Get("/{id}", h.getOrder)
	r.Delete("/{id}", h.deleteOrder)
	return r
}

type orderData struct {
	Order domain.Order `json:"order"`
}

type ordersData struct {
	Orders []domain.Order `json:"orders"`
}

type createOrderReq struct {
	User              string        `json:"user"`
	Products          []domain.Line `json:"products"`
	Address           string        `json:"address"`
	EstimatedDelivery time.Time     `json:"estimatedDelivery"`
	DeliveryStatus    string        `json:"deliveryStatus"`
	PaymentStatus     string        `json:"paymentStatus"`
}

type updateOrderReq struct {
	DeliveryStatus    *string    `json:"deliveryStatus"`
	PaymentStatus     *string    `json:"paymentStatus"`
	Address           *string    `json:"address"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	o, err := h.service.Create(ctx, application.CreateInput{
		User:              req.User,
		Products:          req.Products,
		Address:           req.Address,
		EstimatedDelivery: req.EstimatedDelivery,
		DeliveryStatus:    req.DeliveryStatus,
		PaymentStatus:     req.PaymentStatus,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.WriteData(w, http.StatusCreated, orderData{Order: o})
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var req updateOrderReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	o, err := h.service.Update(ctx, id, application.UpdateInput{
		DeliveryStatus:    req.DeliveryStatus,
		PaymentStatus:     req.PaymentStatus,
		Address:           req.Address,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, orderData{Order: o})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, orderData{Order: o})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.service.ListByUser(ctx, r.URL.Query().Get("user"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, ordersData{Orders: orders})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteOrder")
	defer span.End()

	if err := h.service.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "order deleted")
}
