package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

// CreateOrder places an order directly, without going through the cart.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	items, err := h.lineItems(req.Items)
	if err != nil {
		fail(w, r, err)
		return
	}

	o, err := h.orders.Create(r.Context(), principal(r), app.CreateOrderInput{
		Contact:        contactOf(req.ContactRequest),
		PickupDate:     req.PickupDate,
		PickupTime:     req.PickupTime,
		Notes:          req.Notes,
		Items:          items,
		IdempotencyKey: constants.IdempotencyKey(r.Context()),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(o))
}

// lineItems prices the requested items from the catalog.
func (h *Handler) lineItems(reqs []OrderItemRequest) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(reqs))
	for _, it := range reqs {
		if it.Cake != nil {
			sel := *it.Cake
			b, err := h.calc.Price(&sel, it.Quantity)
			if err != nil {
				return nil, err
			}
			item := h.calc.Flatten(sel, b, it.PhotoPath)
			if it.Details != "" {
				item.Details += "; Notes: " + it.Details
			}
			items = append(items, item)
			continue
		}
		m, ok := h.calc.Catalog().MenuItem(it.ItemID)
		if !ok {
			return nil, domain.Invalid("item_id", "unknown menu item %q", it.ItemID)
		}
		items = append(items, domain.LineItem{
			Name:      m.Name,
			Quantity:  it.Quantity,
			Price:     m.Price,
			Details:   it.Details,
			PhotoPath: it.PhotoPath,
		})
	}
	return items, nil
}

func contactOf(c ContactRequest) app.Contact {
	return app.Contact{Name: c.CustomerName, Email: c.CustomerEmail, Phone: c.CustomerPhone}
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	orders, err := h.orders.List(r.Context(), principal(r), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(orders))
}

func orderFilter(r *http.Request) (ports.OrderFilter, error) {
	var f ports.OrderFilter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		st, ok := domain.ParseOrderStatus(s)
		if !ok {
			return f, domain.Invalid("status", "unknown order status %q", s)
		}
		f.Status = st
	}
	n, err := limitParam(r)
	f.Limit = n
	return f, err
}

func limitParam(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 500 {
		return 0, domain.Invalid("limit", "limit must be between 1 and 500")
	}
	return n, nil
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Pay(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

// CancelOrder serves both the customer and the dashboard route; the service
// decides between cancelling and recording a request from the caller's role.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	o, err := h.orders.Cancel(r.Context(), principal(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	var req AdvanceOrderRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	o, err := h.orders.Advance(r.Context(), principal(r), chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) ApprovePrices(w http.ResponseWriter, r *http.Request) {
	var req ApprovePricesRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	prices := make(map[int]decimal.Decimal, len(req.Prices))
	for _, p := range req.Prices {
		if _, dup := prices[p.Index]; dup {
			fail(w, r, domain.Invalid("prices", "item %d is priced twice", p.Index))
			return
		}
		prices[p.Index] = p.Price
	}
	o, err := h.orders.ApprovePrices(r.Context(), principal(r), chi.URLParam(r, "id"), prices)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) ResolveCancellation(w http.ResponseWriter, r *http.Request) {
	var req ResolveCancellationRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	o, err := h.orders.ResolveCancellation(r.Context(), principal(r), chi.URLParam(r, "id"), *req.Approve)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.orders.Summary(r.Context(), principal(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
