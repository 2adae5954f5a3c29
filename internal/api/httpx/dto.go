package httpx

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/pricing"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/workflowlog"
)

// pendingPrice is how a price that the bakery has not set yet is rendered.
const pendingPrice = "pending"

type ContactRequest struct {
	CustomerName  string `json:"customer_name" validate:"required,max=120"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email,max=254"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=40"`
}

type PickupRequest struct {
	PickupDate string `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	PickupTime string `json:"pickup_time" validate:"required,datetime=15:04"`
}

// OrderItemRequest names a menu item or carries a cake selection. Prices are
// always looked up on the server.
type OrderItemRequest struct {
	ItemID    string                `json:"item_id" validate:"required_without=Cake,excluded_with=Cake"`
	Cake      *domain.CakeSelection `json:"cake"`
	Quantity  int                   `json:"quantity" validate:"required,min=1,max=50"`
	Details   string                `json:"details" validate:"max=500"`
	PhotoPath string                `json:"photo_path" validate:"omitempty,startswith=temp-uploads/"`
}

type CreateOrderRequest struct {
	ContactRequest
	PickupRequest
	Notes string             `json:"notes" validate:"max=1000"`
	Items []OrderItemRequest `json:"items" validate:"required,min=1,max=30,dive"`
}

type CheckoutRequest struct {
	ContactRequest
	PickupRequest
	Notes string `json:"notes" validate:"max=1000"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type AdvanceOrderRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=baking decorating ready completed"`
}

type ItemPriceRequest struct {
	Index int             `json:"index" validate:"min=0"`
	Price decimal.Decimal `json:"price"`
}

type ApprovePricesRequest struct {
	Prices []ItemPriceRequest `json:"prices" validate:"required,min=1,dive"`
}

type ResolveCancellationRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

type SubmitQuoteRequest struct {
	ContactRequest
	Occasion  string `json:"occasion" validate:"required,max=120"`
	Theme     string `json:"theme" validate:"max=200"`
	Budget    string `json:"budget" validate:"max=60"`
	Servings  string `json:"servings" validate:"max=60"`
	EventDate string `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
	Details   string `json:"details" validate:"max=2000"`
	PhotoPath string `json:"photo_path" validate:"omitempty,startswith=temp-uploads/"`
}

type RespondQuoteRequest struct {
	EstimatedPrice *decimal.Decimal `json:"estimated_price"`
	Message        string           `json:"message" validate:"max=2000"`
}

type AcceptQuoteRequest struct {
	PickupRequest
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=40"`
	Language *string `json:"language" validate:"omitempty,oneof=en es"`
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner employee customer"`
}

type AddCartItemRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=50"`
	Details  string `json:"details" validate:"max=500"`
}

type AddCakeRequest struct {
	Selection domain.CakeSelection `json:"selection"`
	Quantity  int                  `json:"quantity" validate:"required,min=1,max=50"`
	PhotoPath string               `json:"photo_path" validate:"omitempty,startswith=temp-uploads/"`
}

type PriceCakeRequest struct {
	Selection domain.CakeSelection `json:"selection"`
	Quantity  int                  `json:"quantity" validate:"required,min=1,max=50"`
}

type SignUploadRequest struct {
	Key string `json:"key" validate:"required,startswith=temp-uploads/"`
}

type LineItemResponse struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
	Details   string `json:"details,omitempty"`
	PhotoPath string `json:"photo_path,omitempty"`
}

type OrderResponse struct {
	ID                string             `json:"id"`
	CustomerID        string             `json:"customer_id,omitempty"`
	CustomerName      string             `json:"customer_name"`
	CustomerEmail     string             `json:"customer_email,omitempty"`
	CustomerPhone     string             `json:"customer_phone,omitempty"`
	Items             []LineItemResponse `json:"items"`
	Subtotal          string             `json:"subtotal"`
	Tax               string             `json:"tax"`
	Total             string             `json:"total"`
	PricePending      bool               `json:"price_pending"`
	Status            string             `json:"status"`
	PaymentStatus     string             `json:"payment_status"`
	PickupDate        string             `json:"pickup_date"`
	PickupTime        string             `json:"pickup_time"`
	Notes             string             `json:"notes,omitempty"`
	QuoteID           string             `json:"quote_id,omitempty"`
	CancelRequestedBy string             `json:"cancel_requested_by,omitempty"`
	CancelReason      string             `json:"cancel_reason,omitempty"`
	CreatedAt         string             `json:"created_at"`
	UpdatedAt         string             `json:"updated_at"`
}

type QuoteResponse struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer_id,omitempty"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	CustomerPhone  string `json:"customer_phone,omitempty"`
	Occasion       string `json:"occasion"`
	Theme          string `json:"theme,omitempty"`
	Budget         string `json:"budget,omitempty"`
	Servings       string `json:"servings,omitempty"`
	EventDate      string `json:"event_date,omitempty"`
	Details        string `json:"details,omitempty"`
	PhotoPath      string `json:"photo_path,omitempty"`
	Status         string `json:"status"`
	EstimatedPrice string `json:"estimated_price"`
	Response       string `json:"response,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type ProfileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	Language  string `json:"language"`
	CreatedAt string `json:"created_at"`
}

type CartResponse struct {
	Items    []LineItemResponse `json:"items"`
	Estimate string             `json:"estimate"`
}

type MenuItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type OptionResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type SizeResponse struct {
	Inches   int    `json:"inches"`
	Servings int    `json:"servings"`
	Price    string `json:"price"`
}

type CakeOptionsResponse struct {
	Shapes      []OptionResponse     `json:"shapes"`
	Sizes       []SizeResponse       `json:"sizes"`
	Flavors     []OptionResponse     `json:"flavors"`
	Colors      []OptionResponse     `json:"colors"`
	Fillings    []OptionResponse     `json:"fillings"`
	Decorations []OptionResponse     `json:"decorations"`
	MaxQuantity int                  `json:"max_quantity"`
	Default     domain.CakeSelection `json:"default_selection"`
}

type LayerResponse struct {
	Size  int    `json:"size"`
	Price string `json:"price"`
}

type PriceBreakdownResponse struct {
	Layers      []LayerResponse  `json:"layers"`
	Shape       string           `json:"shape"`
	Flavors     string           `json:"flavors"`
	Colors      string           `json:"colors"`
	Fillings    string           `json:"fillings"`
	Decorations string           `json:"decorations"`
	UnitPrice   string           `json:"unit_price"`
	Quantity    int              `json:"quantity"`
	Total       string           `json:"total"`
	Item        LineItemResponse `json:"item"`
}

type WorkflowEntryResponse struct {
	ID          string          `json:"id"`
	RunID       string          `json:"run_id,omitempty"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	CurrentStep string          `json:"current_step,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
	TraceID     string          `json:"trace_id,omitempty"`
	Seq         int             `json:"seq"`
	UpdatedAt   string          `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func money(d *decimal.Decimal) string {
	if d == nil {
		return pendingPrice
	}
	return d.StringFixed(2)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func mapItems(items []domain.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i, it := range items {
		sub := pendingPrice
		if s, ok := it.Subtotal(); ok {
			sub = s.StringFixed(2)
		}
		out[i] = LineItemResponse{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     money(it.Price),
			Subtotal:  sub,
			Details:   it.Details,
			PhotoPath: it.PhotoPath,
		}
	}
	return out
}

func mapOrderToResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:                o.ID,
		CustomerID:        o.CustomerID,
		CustomerName:      o.CustomerName,
		CustomerEmail:     o.CustomerEmail,
		CustomerPhone:     o.CustomerPhone,
		Items:             mapItems(o.Items),
		Subtotal:          money(o.Subtotal),
		Tax:               money(o.Tax),
		Total:             money(o.Total),
		PricePending:      o.HasPendingPrice(),
		Status:            string(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		PickupDate:        o.PickupDate,
		PickupTime:        o.PickupTime,
		Notes:             o.Notes,
		QuoteID:           o.QuoteID,
		CancelRequestedBy: o.CancelRequestedBy,
		CancelReason:      o.CancelReason,
		CreatedAt:         timestamp(o.CreatedAt),
		UpdatedAt:         timestamp(o.UpdatedAt),
	}
}

func mapOrders(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = mapOrderToResponse(o)
	}
	return out
}

func mapQuoteToResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{
		ID:             q.ID,
		CustomerID:     q.CustomerID,
		CustomerName:   q.CustomerName,
		CustomerEmail:  q.CustomerEmail,
		CustomerPhone:  q.CustomerPhone,
		Occasion:       q.Occasion,
		Theme:          q.Theme,
		Budget:         q.Budget,
		Servings:       q.Servings,
		EventDate:      q.EventDate,
		Details:        q.Details,
		PhotoPath:      q.PhotoPath,
		Status:         string(q.Status),
		EstimatedPrice: money(q.EstimatedPrice),
		Response:       q.Response,
		OrderID:        q.OrderID,
		CreatedAt:      timestamp(q.CreatedAt),
		UpdatedAt:      timestamp(q.UpdatedAt),
	}
}

func mapQuotes(quotes []*domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = mapQuoteToResponse(q)
	}
	return out
}

func mapProfileToResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Phone:     p.Phone,
		Role:      string(p.Role),
		Language:  p.Language,
		CreatedAt: timestamp(p.CreatedAt),
	}
}

func mapCartToResponse(c *domain.Cart) CartResponse {
	est := pendingPrice
	if s, ok := c.Estimate(); ok {
		est = s.StringFixed(2)
	}
	return CartResponse{Items: mapItems(c.Items), Estimate: est}
}

func mapOptions(opts []pricing.Option) []OptionResponse {
	out := make([]OptionResponse, len(opts))
	for i, o := range opts {
		out[i] = OptionResponse{ID: o.ID, Name: o.Name, Price: o.Price.StringFixed(2)}
	}
	return out
}

func mapBreakdown(b pricing.Breakdown, item domain.LineItem) PriceBreakdownResponse {
	layers := make([]LayerResponse, len(b.Layers))
	for i, l := range b.Layers {
		layers[i] = LayerResponse{Size: l.Size, Price: l.Price.StringFixed(2)}
	}
	return PriceBreakdownResponse{
		Layers:      layers,
		Shape:       b.Shape.StringFixed(2),
		Flavors:     b.Flavors.StringFixed(2),
		Colors:      b.Colors.StringFixed(2),
		Fillings:    b.Fillings.StringFixed(2),
		Decorations: b.Decorations.StringFixed(2),
		UnitPrice:   b.UnitPrice.StringFixed(2),
		Quantity:    b.Quantity,
		Total:       b.Total.StringFixed(2),
		Item:        mapItems([]domain.LineItem{item})[0],
	}
}

func mapWorkflow(entries []*workflowlog.Entry) []WorkflowEntryResponse {
	out := make([]WorkflowEntryResponse, len(entries))
	for i, e := range entries {
		var payload json.RawMessage
		if json.Valid([]byte(e.Payload)) {
			payload = json.RawMessage(e.Payload)
		}
		out[i] = WorkflowEntryResponse{
			ID:          e.ID,
			RunID:       e.RunID,
			Kind:        e.Kind,
			Status:      string(e.Status),
			CurrentStep: e.CurrentStep,
			Payload:     payload,
			Errors:      e.Errors(),
			TraceID:     e.TraceID,
			Seq:         e.Seq,
			UpdatedAt:   timestamp(e.UpdatedAt),
		}
	}
	return out
}
