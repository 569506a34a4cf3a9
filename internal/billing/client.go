// Package billing implements the YooKassa billing collaborator: bill
// creation for tariff purchases and pending payment checks.
package billing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/endurancevpn/vpnbot/internal/config"
	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/models"
)

// Client talks to the YooKassa API and tracks pending bills per VPN.
type Client struct {
	shopID     string
	secretKey  string
	apiURL     string
	returnURL  string
	httpClient *http.Client

	mu      sync.Mutex
	pending map[int64][]Bill
}

// NewClient builds a billing client from configuration.
func NewClient(cfg config.BillingConfig) *Client {
	return &Client{
		shopID:     cfg.ShopID,
		secretKey:  cfg.SecretKey,
		apiURL:     cfg.APIURL,
		returnURL:  cfg.ReturnURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		pending:    make(map[int64][]Bill),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.shopID + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Idempotence-Key", uuid.NewString())
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateBill issues a payment for the tariff against the user's VPN and
// remembers it as pending. messageID and chatID tie the bill back to the
// chat message it was offered in.
func (c *Client) CreateBill(ctx context.Context, vpn *models.Vpn, tariff *models.Tariff, messageID int, chatID int64) (*Bill, error) {
	const op = "billing.CreateBill"

	payload := createPaymentRequest{
		Amount: Amount{
			Value:    fmt.Sprintf("%d.00", tariff.Price),
			Currency: "RUB",
		},
		Capture: true,
		Confirmation: Confirmation{
			Type:      "redirect",
			ReturnURL: c.returnURL,
		},
		Description: fmt.Sprintf("VPN на %d дней", tariff.Days),
		Metadata: map[string]string{
			"vpn_id":     strconv.FormatInt(vpn.ID, 10),
			"tariff_id":  strconv.FormatInt(tariff.ID, 10),
			"chat_id":    strconv.FormatInt(chatID, 10),
			"message_id": strconv.Itoa(messageID),
		},
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var resp paymentResponse
	if err := c.do(req, &resp); err != nil {
		logger.Billing.Error("bill create failed",
			slog.String("event", "bill.create"),
			slog.Int64("vpn_id", vpn.ID),
			slog.Int64("tariff_id", tariff.ID),
			logger.Err(err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bill := Bill{
		ID:         resp.ID,
		TariffID:   tariff.ID,
		TariffDays: tariff.Days,
		CreatedAt:  resp.CreatedAt,
	}
	if resp.Confirmation != nil {
		bill.ConfirmationURL = resp.Confirmation.ConfirmationURL
	}

	c.mu.Lock()
	c.pending[vpn.ID] = append(c.pending[vpn.ID], bill)
	c.mu.Unlock()

	logger.Billing.Info("bill created",
		slog.String("event", "bill.create"),
		slog.String("bill_id", bill.ID),
		slog.Int64("vpn_id", vpn.ID),
		slog.Int64("tariff_id", tariff.ID),
		slog.Int64("chat_id", chatID),
	)
	return &bill, nil
}

// CheckPendingBills polls the pending bills of the VPN and applies the
// outcome: a succeeded payment marks the VPN paid and extends its expiry by
// the tariff duration; a trial past its expiry flips to expired. The
// possibly mutated VPN is returned; the caller persists it.
func (c *Client) CheckPendingBills(ctx context.Context, user *models.User, vpn *models.Vpn) (*models.Vpn, error) {
	const op = "billing.CheckPendingBills"

	c.mu.Lock()
	bills := append([]Bill(nil), c.pending[vpn.ID]...)
	c.mu.Unlock()

	var remaining []Bill
	for _, bill := range bills {
		req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+bill.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		var resp paymentResponse
		if err := c.do(req, &resp); err != nil {
			// Keep the bill pending; the next profile check retries.
			logger.Billing.Warn("bill check failed",
				slog.String("event", "bill.check"),
				slog.String("bill_id", bill.ID),
				slog.Int64("vpn_id", vpn.ID),
				logger.Err(err),
			)
			remaining = append(remaining, bill)
			continue
		}

		switch resp.Status {
		case paymentStatusSucceeded:
			base := time.Now()
			if vpn.ExpiresAt.After(base) {
				base = vpn.ExpiresAt
			}
			vpn.Status = models.VpnStatusPaid
			vpn.ExpiresAt = base.AddDate(0, 0, bill.TariffDays)
			logger.Billing.Info("bill paid",
				slog.String("event", "bill.paid"),
				slog.String("bill_id", bill.ID),
				slog.Int64("vpn_id", vpn.ID),
				slog.Int64("user_id", user.TelegramID),
				slog.Time("expires_at", vpn.ExpiresAt),
			)
		case paymentStatusCanceled:
			logger.Billing.Info("bill canceled",
				slog.String("event", "bill.canceled"),
				slog.String("bill_id", bill.ID),
				slog.Int64("vpn_id", vpn.ID),
			)
		default:
			remaining = append(remaining, bill)
		}
	}

	c.mu.Lock()
	if len(remaining) == 0 {
		delete(c.pending, vpn.ID)
	} else {
		c.pending[vpn.ID] = remaining
	}
	c.mu.Unlock()

	if vpn.Status == models.VpnStatusTrial && vpn.ExpiresAt.Before(time.Now()) {
		vpn.Status = models.VpnStatusExpired
		logger.Billing.Info("trial expired",
			slog.String("event", "vpn.trial_expired"),
			slog.Int64("vpn_id", vpn.ID),
			slog.Int64("user_id", user.TelegramID),
		)
	}

	return vpn, nil
}

// PendingCount reports the number of tracked pending bills for the VPN.
func (c *Client) PendingCount(vpnID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[vpnID])
}
