package paymob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/config"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

var (
	errAPIKeyRequired     = errors.New("paymob api key is required")
	errHMACSecretRequired = errors.New("paymob hmac secret is required")
	errLoggerRequired     = errors.New("paymob logger is required")
)

// Client talks to the Paymob acceptance API: auth token, order registration,
// payment keys, refunds and voids.
type Client struct {
	baseURL       string
	apiKey        string
	hmacSecret    string
	integrationID int
	iframeID      string
	httpClient    *http.Client
	logger        *logger.Logger
}

// NewClient initializes the acceptance wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaymobConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	hmacSecret := strings.TrimSpace(cfg.HMACSecret)
	if hmacSecret == "" {
		return nil, errHMACSecretRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        apiKey,
		hmacSecret:    hmacSecret,
		integrationID: cfg.IntegrationID,
		iframeID:      cfg.IFrameID,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logg,
	}

	logg.Info(ctx, "paymob client initialized")
	return c, nil
}

// HMACSecret returns the webhook signing secret.
func (c *Client) HMACSecret() string {
	if c == nil {
		return ""
	}
	return c.hmacSecret
}

// AuthResponse carries the short-lived bearer token for subsequent calls.
type AuthResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges the API key for a bearer token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	var resp AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/tokens", map[string]string{
		"api_key": c.apiKey,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paymob auth returned empty token")
	}
	return resp.Token, nil
}

// RegisterOrderParams describes the gateway-side order mirror.
type RegisterOrderParams struct {
	AuthToken       string
	MerchantOrderID string
	AmountCents     int64
	Currency        string
}

// RegisterOrderResponse returns the gateway order id.
type RegisterOrderResponse struct {
	ID int64 `json:"id"`
}

// RegisterOrder mirrors the local order on the gateway. MerchantOrderID must
// be unique per order; replays fail with a duplicate error on the gateway.
func (c *Client) RegisterOrder(ctx context.Context, params RegisterOrderParams) (int64, error) {
	body := map[string]any{
		"auth_token":        params.AuthToken,
		"delivery_needed":   false,
		"merchant_order_id": params.MerchantOrderID,
		"amount_cents":      params.AmountCents,
		"currency":          params.Currency,
	}
	var resp RegisterOrderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ecommerce/orders", body, &resp); err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "paymob order registration returned empty id")
	}
	return resp.ID, nil
}

// BillingData is the customer detail block the payment key call requires.
// The gateway rejects empty fields, so unknown values are sent as "NA".
type BillingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	PostalCode  string `json:"postal_code"`
	Building    string `json:"building"`
	Floor       string `json:"floor"`
	Apartment   string `json:"apartment"`
}

// PaymentKeyParams feeds the payment key request for one gateway order.
type PaymentKeyParams struct {
	AuthToken   string
	GatewayID   int64
	AmountCents int64
	Currency    string
	Billing     BillingData
	ExpirySecs  int
}

// PaymentKeyResponse carries the client-side payment token.
type PaymentKeyResponse struct {
	Token string `json:"token"`
}

// PaymentKey requests a single-use client payment token bound to the order.
func (c *Client) PaymentKey(ctx context.Context, params PaymentKeyParams) (string, error) {
	expiry := params.ExpirySecs
	if expiry <= 0 {
		expiry = 3600
	}
	body := map[string]any{
		"auth_token":     params.AuthToken,
		"amount_cents":   params.AmountCents,
		"expiration":     expiry,
		"order_id":       params.GatewayID,
		"billing_data":   sanitizeBilling(params.Billing),
		"currency":       params.Currency,
		"integration_id": c.integrationID,
	}
	var resp PaymentKeyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/acceptance/payment_keys", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paymob payment key returned empty token")
	}
	return resp.Token, nil
}

// IFrameURL builds the hosted checkout URL for a payment token.
func (c *Client) IFrameURL(paymentToken string) string {
	if c.iframeID == "" || paymentToken == "" {
		return ""
	}
	return fmt.Sprintf("https://accept.paymob.com/api/acceptance/iframes/%s?payment_token=%s", c.iframeID, paymentToken)
}

// TransactionResponse is the subset of the transaction API reply the
// refund/void paths need.
type TransactionResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
}

// Refund refunds the given amount against a captured transaction.
func (c *Client) Refund(ctx context.Context, authToken string, providerTxnID string, amountCents int64) (*TransactionResponse, error) {
	body := map[string]any{
		"auth_token":     authToken,
		"transaction_id": providerTxnID,
		"amount_cents":   amountCents,
	}
	var resp TransactionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/acceptance/void_refund/refund", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Void cancels an authorized transaction that has not settled yet.
func (c *Client) Void(ctx context.Context, authToken string, providerTxnID string) (*TransactionResponse, error) {
	body := map[string]any{
		"auth_token":     authToken,
		"transaction_id": providerTxnID,
	}
	var resp TransactionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/acceptance/void_refund/void", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AmountCents converts a decimal money amount to the gateway's integer cents.
func AmountCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func sanitizeBilling(b BillingData) BillingData {
	fill := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "NA"
		}
		return s
	}
	b.FirstName = fill(b.FirstName)
	b.LastName = fill(b.LastName)
	b.Email = fill(b.Email)
	b.PhoneNumber = fill(b.PhoneNumber)
	b.Street = fill(b.Street)
	b.City = fill(b.City)
	b.State = fill(b.State)
	b.Country = fill(b.Country)
	b.PostalCode = fill(b.PostalCode)
	b.Building = fill(b.Building)
	b.Floor = fill(b.Floor)
	b.Apartment = fill(b.Apartment)
	return b
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	return c.doJSONAuth(ctx, method, path, "", body, out)
}

func (c *Client) doJSONAuth(ctx context.Context, method, path, token string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal paymob request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build paymob request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paymob request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paymob response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c.logger != nil {
			logCtx := c.logger.WithFields(ctx, map[string]any{
				"path":   path,
				"status": resp.StatusCode,
			})
			c.logger.Warn(logCtx, "paymob call rejected")
		}
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paymob %s returned status %d", path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paymob response")
	}
	return nil
}
