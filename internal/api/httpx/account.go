package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Me(r.Context(), principal(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProfileToResponse(p))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	p, err := h.profiles.UpdateMe(r.Context(), principal(r), app.UpdateProfileInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		Language: req.Language,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProfileToResponse(p))
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context(), principal(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]ProfileResponse, len(profiles))
	for i, p := range profiles {
		out[i] = mapProfileToResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req SetRoleRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	p, err := h.profiles.SetRole(r.Context(), principal(r), chi.URLParam(r, "id"), domain.Role(req.Role))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProfileToResponse(p))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), principal(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	c, err := h.carts.AddMenuItem(r.Context(), principal(r), req.ItemID, req.Quantity, req.Details)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

func (h *Handler) AddCartCake(w http.ResponseWriter, r *http.Request) {
	var req AddCakeRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	c, err := h.carts.AddCake(r.Context(), principal(r), req.Selection, req.Quantity, req.PhotoPath)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		fail(w, r, domain.Invalid("index", "index must be a number"))
		return
	}
	c, err := h.carts.Remove(r.Context(), principal(r), i)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), principal(r)); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	o, err := h.carts.Checkout(r.Context(), principal(r), app.CheckoutInput{
		Contact:        contactOf(req.ContactRequest),
		PickupDate:     req.PickupDate,
		PickupTime:     req.PickupTime,
		Notes:          req.Notes,
		IdempotencyKey: constants.IdempotencyKey(r.Context()),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(o))
}
