package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

// SubmitQuote is open to guests; a bearer token links the quote to the account.
func (h *Handler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	var req SubmitQuoteRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	q, err := h.quotes.Submit(r.Context(), principal(r), app.SubmitQuoteInput{
		Contact:   contactOf(req.ContactRequest),
		Occasion:  req.Occasion,
		Theme:     req.Theme,
		Budget:    req.Budget,
		Servings:  req.Servings,
		EventDate: req.EventDate,
		Details:   req.Details,
		PhotoPath: req.PhotoPath,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapQuoteToResponse(q))
}

func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	var f ports.QuoteFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := domain.ParseQuoteStatus(s)
		if !ok {
			fail(w, r, domain.Invalid("status", "unknown quote status %q", s))
			return
		}
		f.Status = st
	}
	n, err := limitParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	f.Limit = n

	quotes, err := h.quotes.List(r.Context(), principal(r), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuotes(quotes))
}

func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuoteToResponse(q))
}

func (h *Handler) RespondQuote(w http.ResponseWriter, r *http.Request) {
	var req RespondQuoteRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	q, err := h.quotes.Respond(r.Context(), principal(r), chi.URLParam(r, "id"), req.EstimatedPrice, req.Message)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuoteToResponse(q))
}

// AcceptQuote answers with the order the quote turned into.
func (h *Handler) AcceptQuote(w http.ResponseWriter, r *http.Request) {
	var req AcceptQuoteRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	o, err := h.quotes.Accept(r.Context(), principal(r), chi.URLParam(r, "id"), req.PickupDate, req.PickupTime)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(o))
}

func (h *Handler) RejectQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.Reject(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuoteToResponse(q))
}

func (h *Handler) DeleteQuote(w http.ResponseWriter, r *http.Request) {
	if err := h.quotes.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Workflow shows the acceptance log of a quote.
func (h *Handler) Workflow(w http.ResponseWriter, r *http.Request) {
	entries, err := h.quotes.Workflow(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapWorkflow(entries))
}
