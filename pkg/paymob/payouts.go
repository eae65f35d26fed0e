package paymob

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/config"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

var (
	errPayoutCredsRequired = errors.New("payout client credentials are required")
)

// PayoutClient talks to the disbursement API, which runs on separate
// credentials from the acceptance gateway.
type PayoutClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	username     string
	password     string
	hmacSecret   string
	httpClient   *http.Client
	logger       *logger.Logger
}

// NewPayoutClient initializes the disbursement wrapper and validates credentials.
func NewPayoutClient(ctx context.Context, cfg config.PayoutsConfig, logg *logger.Logger) (*PayoutClient, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errPayoutCredsRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &PayoutClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		password:     cfg.Password,
		hmacSecret:   strings.TrimSpace(cfg.HMACSecret),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logg,
	}

	logg.Info(ctx, "payout client initialized")
	return c, nil
}

// HMACSecret returns the payout webhook signing secret.
func (c *PayoutClient) HMACSecret() string {
	if c == nil {
		return ""
	}
	return c.hmacSecret
}

type payoutTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token obtains a bearer token via the password grant.
func (c *PayoutClient) Token(ctx context.Context) (string, error) {
	body := map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"username":      c.username,
		"password":      c.password,
		"grant_type":    "password",
	}
	var resp payoutTokenResponse
	if err := c.do(ctx, http.MethodPost, "/secure/o/token/", "", body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payout token grant returned empty token")
	}
	return resp.AccessToken, nil
}

// DisburseParams describes one bank transfer instruction. MerchantReference
// is the idempotency key on the provider side.
type DisburseParams struct {
	MerchantReference string
	Amount            decimal.Decimal
	BankAccount       string
	BankRouting       string
	HolderName        string
	BankName          string
}

// DisburseResponse carries the provider's transaction identifier and state.
type DisburseResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"disbursement_status"`
	StatusCode    string `json:"status_code"`
	Description   string `json:"status_description"`
}

// Disburse submits a bank-transfer payout. Replaying the same merchant
// reference returns the original transaction rather than paying twice.
func (c *PayoutClient) Disburse(ctx context.Context, token string, params DisburseParams) (*DisburseResponse, error) {
	body := map[string]any{
		"issuer":              "bank_wallet",
		"amount":              params.Amount.StringFixed(2),
		"full_name":           params.HolderName,
		"bank_card_number":    params.BankAccount,
		"bank_code":           params.BankRouting,
		"bank_transaction_id": params.MerchantReference,
	}
	var resp DisburseResponse
	if err := c.do(ctx, http.MethodPost, "/secure/disburse/", token, body, &resp); err != nil {
		return nil, err
	}
	if resp.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout disburse returned empty transaction id")
	}
	if c.logger != nil {
		logCtx := c.logger.WithFields(ctx, map[string]any{
			"merchant_reference": params.MerchantReference,
			"provider_txn_id":    resp.TransactionID,
			"status":             resp.Status,
		})
		c.logger.Info(logCtx, "payout disbursement submitted")
	}
	return &resp, nil
}

// InquireStatus fetches the current provider-side state of a disbursement.
func (c *PayoutClient) InquireStatus(ctx context.Context, token string, providerTxnID string) (*DisburseResponse, error) {
	var resp DisburseResponse
	path := "/secure/transaction/" + providerTxnID + "/"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *PayoutClient) do(ctx context.Context, method, path, token string, body any, out any) error {
	// Reuse the acceptance client's transport helper semantics, but with
	// bearer auth on authenticated endpoints.
	inner := &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		logger:     c.logger,
	}
	if token == "" {
		return inner.doJSON(ctx, method, path, body, out)
	}
	return inner.doJSONAuth(ctx, method, path, token, body, out)
}
