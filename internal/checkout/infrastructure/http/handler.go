package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shop-cart-service/internal/checkout/application"
	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
	guard   func(http.Handler) http.Handler
}

// NewHandler wraps the checkout route in guard, normally the idempotency
// middleware. A nil guard leaves the route unwrapped.
func NewHandler(log *slog.Logger, service *application.Service, guard func(http.Handler) http.Handler) *Handler {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("checkout-http"),
		guard:   guard,
	}
}

// Routes is mounted under /api/checkout.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.With(h.guard).Post("/", h.checkout)
	return r
}

type checkoutReq struct {
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentMethod string `json:"paymentMethod"`
}

type orderData struct {
	Order order.Order `json:"order"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req checkoutReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("payment.method", req.PaymentMethod))

	o, err := h.service.Checkout(ctx, application.Input{
		Phone:         req.Phone,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		span.RecordError(err)
		httpx.WriteError(w, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.WriteData(w, http.StatusCreated, orderData{Order: o})
}
