package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const (
	MulticardTestURL = "https://dev-mesh.multicard.uz"
	MulticardLiveURL = "https://mesh.multicard.uz"
)

type MulticardConfig struct {
	AppID       string
	Secret      string
	StoreID     int
	TestMode    bool
	BaseURL     string
	ReturnURL   string
	CallbackURL string
}

// MulticardGateway creates invoices on the Multicard API. The bearer token is
// cached and refreshed once when an invoice request is rejected.
type MulticardGateway struct {
	cfg        MulticardConfig
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

func NewMulticardGateway(cfg MulticardConfig) *MulticardGateway {
	base := cfg.BaseURL
	if base == "" {
		base = MulticardLiveURL
		if cfg.TestMode {
			base = MulticardTestURL
		}
	}
	return &MulticardGateway{
		cfg:     cfg,
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type authRequest struct {
	ApplicationID string `json:"application_id"`
	Secret        string `json:"secret"`
}

type authResponse struct {
	Token string `json:"token"`
}

type invoiceRequest struct {
	StoreID     int    `json:"store_id"`
	Amount      int64  `json:"amount"`
	InvoiceID   string `json:"invoice_id"`
	ReturnURL   string `json:"return_url"`
	CallbackURL string `json:"callback_url"`
}

type invoiceResponse struct {
	Success bool `json:"success"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
		UUID        string `json:"uuid"`
		Payment     struct {
			Status string `json:"status"`
		} `json:"payment"`
	} `json:"data"`
	Error struct {
		Details string `json:"details"`
	} `json:"error"`
}

func (g *MulticardGateway) CreatePayment(ctx context.Context, orderID uint, total decimal.Decimal, currency string) Result {
	l := logging.FromContext(ctx).With("gateway", "multicard", "order_id", orderID)

	body := invoiceRequest{
		StoreID:     g.cfg.StoreID,
		Amount:      total.Mul(decimal.NewFromInt(100)).IntPart(),
		InvoiceID:   strconv.FormatUint(uint64(orderID), 10),
		ReturnURL:   g.cfg.ReturnURL,
		CallbackURL: g.cfg.CallbackURL,
	}

	var resp *invoiceResponse
	for attempt := 0; attempt < 2; attempt++ {
		token, err := g.authToken(ctx)
		if err != nil {
			l.Warn("multicard_auth_failed", "error", err)
			return Result{Message: fmt.Sprintf("Multicard error: %v", err)}
		}

		resp, err = g.createInvoice(ctx, token, body)
		if err != nil {
			l.Warn("multicard_invoice_failed", "error", err)
			return Result{Message: fmt.Sprintf("Multicard error: %v", err)}
		}
		if resp.Success {
			break
		}

		// A rejected invoice usually means the cached token expired.
		g.invalidateToken()
	}

	if !resp.Success {
		details := resp.Error.Details
		if details == "" {
			details = "invoice rejected"
		}
		l.Warn("multicard_invoice_rejected", "details", details)
		return Result{Message: "Multicard error: " + details}
	}

	return Result{
		Success:       true,
		PaymentURL:    resp.Data.CheckoutURL,
		TransactionID: resp.Data.UUID,
		Message:       "Redirecting to Multicard checkout",
	}
}

// VerifyPayment asks Multicard whether the invoice was paid. Any failure to
// get an answer counts as not paid.
func (g *MulticardGateway) VerifyPayment(ctx context.Context, transactionID string) bool {
	l := logging.FromContext(ctx).With("gateway", "multicard", "transaction_id", transactionID)

	token, err := g.authToken(ctx)
	if err != nil {
		l.Warn("multicard_auth_failed", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/payment/invoice/"+transactionID, nil)
	if err != nil {
		return false
	}
	setAuthHeaders(req, token)

	var out invoiceResponse
	if err := g.do(req, &out); err != nil {
		l.Warn("multicard_verify_failed", "error", err)
		return false
	}
	return out.Success && out.Data.Payment.Status == "paid"
}

func (g *MulticardGateway) authToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" {
		return g.token, nil
	}

	payload, err := json.Marshal(authRequest{ApplicationID: g.cfg.AppID, Secret: g.cfg.Secret})
	if err != nil {
		return "", fmt.Errorf("marshal auth: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out authResponse
	if err := g.do(req, &out); err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("auth: empty token")
	}
	g.token = out.Token
	return g.token, nil
}

func (g *MulticardGateway) invalidateToken() {
	g.mu.Lock()
	g.token = ""
	g.mu.Unlock()
}

// createInvoice returns a transport error only when no JSON answer was
// received. A non-2xx answer with a JSON body is returned as a rejection.
func (g *MulticardGateway) createInvoice(ctx context.Context, token string, body invoiceRequest) (*invoiceResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal invoice: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payment/invoice", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuthHeaders(req, token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out invoiceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 300 {
			out.Error.Details = fmt.Sprintf("status %d", resp.StatusCode)
			return &out, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		out.Success = false
		if out.Error.Details == "" {
			out.Error.Details = fmt.Sprintf("status %d", resp.StatusCode)
		}
	}
	return &out, nil
}

func (g *MulticardGateway) do(req *http.Request, out any) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func setAuthHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Access-Token", token)
}
