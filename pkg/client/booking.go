package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"turfbook/pkg/middleware"
	"turfbook/pkg/model"
)

// BookingClient is a typed client for the booking API.
type BookingClient struct {
	httpClient *HttpClient
	// webhookSecret signs Confirm calls when set.
	webhookSecret string
}

func NewBookingClient(baseUrl string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// WithToken returns a client acting as the holder of token.
func (c *BookingClient) WithToken(token string) *BookingClient {
	hc := *c.httpClient
	hc.Token = token
	return &BookingClient{httpClient: &hc, webhookSecret: c.webhookSecret}
}

// WithWebhookSecret returns a client that signs payment confirmations.
func (c *BookingClient) WithWebhookSecret(secret string) *BookingClient {
	return &BookingClient{httpClient: c.httpClient, webhookSecret: secret}
}

func (c *BookingClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *BookingClient) Reserve(ctx context.Context, req *model.ReserveRequest) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/bookings", req)
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if _, err := resp.decode(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Confirm(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	var headers map[string]string
	if c.webhookSecret != "" {
		headers = map[string]string{
			middleware.PaymentSignatureHeader: middleware.SignPayload(body, c.webhookSecret),
		}
	}

	resp, err := c.httpClient.POSTRaw(ctx, "/api/v1/bookings/confirm", body, headers)
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if _, err := resp.decode(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if _, err := resp.decode(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Cancel(ctx context.Context, id string, reason string) (*model.Booking, error) {
	var body any
	if reason != "" {
		body = model.CancelRequest{Reason: reason}
	}
	resp, err := c.httpClient.POST(ctx, "/api/v1/bookings/id/"+url.PathEscape(id)+"/cancel", body)
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if _, err := resp.decode(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// LedgerQuery selects whose bookings to list. At most one of the ids may be
// set; none means the caller's own bookings.
type LedgerQuery struct {
	UserID  string
	TurfID  string
	OwnerID string
	Limit   int
	Offset  int64
}

func (c *BookingClient) Ledger(ctx context.Context, q LedgerQuery) (*model.BookingPage, error) {
	values := url.Values{}
	if q.UserID != "" {
		values.Set("userId", q.UserID)
	}
	if q.TurfID != "" {
		values.Set("turfId", q.TurfID)
	}
	if q.OwnerID != "" {
		values.Set("ownerId", q.OwnerID)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.FormatInt(q.Offset, 10))
	}

	path := "/api/v1/bookings"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}

	page := &model.BookingPage{Bookings: []*model.Booking{}}
	total, err := resp.decode(&page.Bookings)
	if err != nil {
		return nil, err
	}
	page.TotalCount = total
	return page, nil
}

// Availability lists free slots of a turf between from and to (YYYY-MM-DD).
// Empty bounds use the server defaults.
func (c *BookingClient) Availability(ctx context.Context, turfID, from, to string) ([]model.AvailableSlot, error) {
	values := url.Values{}
	if from != "" {
		values.Set("from", from)
	}
	if to != "" {
		values.Set("to", to)
	}

	path := "/api/v1/turfs/id/" + url.PathEscape(turfID) + "/availability"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}

	slots := []model.AvailableSlot{}
	if _, err := resp.decode(&slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *BookingClient) IsFree(ctx context.Context, turfID, slotID, date string) (bool, error) {
	path := fmt.Sprintf("/api/v1/turfs/id/%s/slots/%s?date=%s", url.PathEscape(turfID), url.PathEscape(slotID), url.QueryEscape(date))
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return false, err
	}

	var status model.SlotStatus
	if _, err := resp.decode(&status); err != nil {
		return false, err
	}
	return status.Free, nil
}
