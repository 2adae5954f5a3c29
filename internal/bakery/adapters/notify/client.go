// Package notify calls the bakery's notification functions over HTTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

const (
	FunctionNotificationEmail = "send-notification-email"
	FunctionQuoteResponse     = "send-quote-response"
)

type Config struct {
	// BaseURL is the functions root; "<BaseURL>/<function>" is called.
	BaseURL string
	Token   string
	// FallbackURL receives a form post when send-quote-response fails.
	FallbackURL string
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

var _ ports.Notifier = (*Client)(nil)

type orderPayload struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	PickupDate    string     `json:"pickup_date"`
	PickupTime    string     `json:"pickup_time"`
	Items         []itemJSON `json:"items"`
	Subtotal      *string    `json:"subtotal"`
	Tax           *string    `json:"tax"`
	Total         *string    `json:"total"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
}

type itemJSON struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    *string `json:"price"`
	Details  string  `json:"details,omitempty"`
}

type quotePayload struct {
	ID             string  `json:"id"`
	CustomerName   string  `json:"customer_name"`
	CustomerEmail  string  `json:"customer_email"`
	CustomerPhone  string  `json:"customer_phone,omitempty"`
	Occasion       string  `json:"occasion"`
	EventDate      string  `json:"event_date,omitempty"`
	Status         string  `json:"status"`
	EstimatedPrice *string `json:"estimated_price"`
	Response       string  `json:"response,omitempty"`
}

type notificationRequest struct {
	Type  string        `json:"type"`
	To    string        `json:"to"`
	Order *orderPayload `json:"order,omitempty"`
	Quote *quotePayload `json:"quote,omitempty"`
}

func (c *Client) SendNotificationEmail(ctx context.Context, n ports.OrderNotification) error {
	req := notificationRequest{Type: string(n.Event)}
	if n.Order != nil {
		req.Order = toOrderPayload(n.Order)
		req.To = n.Order.CustomerEmail
	}
	if n.Quote != nil {
		req.Quote = toQuotePayload(n.Quote)
		if req.To == "" {
			req.To = n.Quote.CustomerEmail
		}
	}
	return c.call(ctx, FunctionNotificationEmail, req)
}

// SendQuoteResponse calls send-quote-response and, when that fails and a
// fallback endpoint is configured, posts the same message as a form.
func (c *Client) SendQuoteResponse(ctx context.Context, n ports.QuoteNotification) error {
	if n.Quote == nil {
		return errors.New("notify: quote response without a quote")
	}
	err := c.call(ctx, FunctionQuoteResponse, toQuotePayload(n.Quote))
	if err == nil || c.cfg.FallbackURL == "" {
		return err
	}
	slog.WarnContext(ctx, "quote response function failed, using form fallback",
		"quote_id", n.Quote.ID, "error", err)
	if ferr := c.postForm(ctx, n.Quote); ferr != nil {
		return errors.Join(err, ferr)
	}
	return nil
}

func (c *Client) call(ctx context.Context, function string, body any) error {
	if c.cfg.BaseURL == "" {
		slog.DebugContext(ctx, "notifications disabled, skipping", "function", function)
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", function, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+function, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("notify: build %s request: %w", function, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return c.do(req, function)
}

func (c *Client) postForm(ctx context.Context, q *domain.Quote) error {
	form := url.Values{}
	form.Set("_subject", "Your cake quote: "+q.Occasion)
	form.Set("name", q.CustomerName)
	form.Set("email", q.CustomerEmail)
	form.Set("message", quoteMessage(q))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FallbackURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: build fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req, "quote-fallback")
}

func (c *Client) do(req *http.Request, name string) error {
	if id := constants.RequestID(req.Context()); id != "" {
		req.Header.Set(constants.HeaderXRequestId, id)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: call %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: %s returned %d: %s", name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func quoteMessage(q *domain.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", q.CustomerName)
	if q.EstimatedPrice != nil {
		fmt.Fprintf(&b, "Estimated price: $%s\n", q.EstimatedPrice.StringFixed(2))
	}
	if q.Response != "" {
		b.WriteString(q.Response)
		b.WriteString("\n")
	}
	return b.String()
}

func toOrderPayload(o *domain.Order) *orderPayload {
	p := &orderPayload{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PickupDate:    o.PickupDate,
		PickupTime:    o.PickupTime,
		Subtotal:      money(o.Subtotal),
		Tax:           money(o.Tax),
		Total:         money(o.Total),
		CancelReason:  o.CancelReason,
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, itemJSON{Name: it.Name, Quantity: it.Quantity, Price: money(it.Price), Details: it.Details})
	}
	return p
}

func toQuotePayload(q *domain.Quote) *quotePayload {
	return &quotePayload{
		ID:             q.ID,
		CustomerName:   q.CustomerName,
		CustomerEmail:  q.CustomerEmail,
		CustomerPhone:  q.CustomerPhone,
		Occasion:       q.Occasion,
		EventDate:      q.EventDate,
		Status:         string(q.Status),
		EstimatedPrice: money(q.EstimatedPrice),
		Response:       q.Response,
	}
}

// money renders nil as JSON null, the pending marker.
func money(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
