package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	menu := h.calc.Catalog().Menu
	out := make([]MenuItemResponse, len(menu))
	for i, m := range menu {
		out[i] = MenuItemResponse{
			ID:          m.ID,
			Name:        m.Name,
			Category:    m.Category,
			Price:       money(m.Price),
			Description: m.Description,
			Image:       m.Image,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CakeOptions(w http.ResponseWriter, r *http.Request) {
	cat := h.calc.Catalog()
	sizes := make([]SizeResponse, len(cat.Sizes))
	for i, s := range cat.Sizes {
		sizes[i] = SizeResponse{Inches: s.Inches, Servings: s.Servings, Price: s.Price.StringFixed(2)}
	}
	writeJSON(w, http.StatusOK, CakeOptionsResponse{
		Shapes:      mapOptions(cat.Shapes),
		Sizes:       sizes,
		Flavors:     mapOptions(cat.Flavors),
		Colors:      mapOptions(cat.Colors),
		Fillings:    mapOptions(cat.Fillings),
		Decorations: mapOptions(cat.Decorations),
		MaxQuantity: cat.MaxQuantity,
		Default:     h.calc.NewSelection(),
	})
}

// PriceCake quotes a customizer selection without touching the cart.
func (h *Handler) PriceCake(w http.ResponseWriter, r *http.Request) {
	var req PriceCakeRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	b, err := h.calc.Price(&req.Selection, req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapBreakdown(b, h.calc.Flatten(req.Selection, b, "")))
}

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.contact)
}

// TrackOrder lets a guest follow an order with its id and contact email.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Track(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("email"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}
