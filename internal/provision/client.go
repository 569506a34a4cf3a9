// Package provision creates trial VPNs: it picks the least loaded server,
// allocates a free address in its subnet, registers the WireGuard peer on
// the node agent and records the result.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/endurancevpn/vpnbot/internal/config"
	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/models"
)

// Store is the slice of the storage layer provisioning needs.
type Store interface {
	ListServers(ctx context.Context) ([]models.Server, error)
	ListVpnsByServer(ctx context.Context, serverID int64) ([]models.Vpn, error)
	ListVpnIPsByServer(ctx context.Context, serverID int64) ([]string, error)
	CreateTrialVpn(ctx context.Context, userID, serverID int64, ip, publicKey string) (*models.Vpn, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// Client provisions VPNs through the per-server node agents.
type Client struct {
	baseURL    string
	token      string
	store      Store
	httpClient *http.Client
}

// NewClient builds a provisioning client from configuration.
func NewClient(cfg config.ProvisioningConfig, store Store) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type createPeerRequest struct {
	Name       string `json:"name"`
	TelegramID int64  `json:"telegram_id"`
	IP         string `json:"ip"`
}

type createPeerResponse struct {
	PublicKey string `json:"public_key"`
}

// CreateVPN provisions a trial VPN for the user: server selection, address
// allocation, peer registration and the store record. On success the user is
// moved to the pending status; config delivery is reported out of band once
// the node finishes applying the peer.
func (c *Client) CreateVPN(ctx context.Context, user *models.User) error {
	const op = "provision.CreateVPN"
	start := time.Now()

	server, err := c.pickServer(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ip, err := c.allocateIP(ctx, server)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	publicKey, err := c.registerPeer(ctx, server, user, ip)
	if err != nil {
		logger.Provision.Error("peer registration failed",
			slog.String("event", "vpn.provision"),
			slog.Int64("user_id", user.TelegramID),
			slog.Int64("server_id", server.ID),
			slog.Duration("duration", logger.Took(start)),
			logger.Err(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	vpn, err := c.store.CreateTrialVpn(ctx, user.ID, server.ID, ip, publicKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user.Status = models.UserStatusPending
	if err := c.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Provision.Info("vpn provisioned",
		slog.String("event", "vpn.provision"),
		slog.Int64("user_id", user.TelegramID),
		slog.Int64("server_id", server.ID),
		slog.Int64("vpn_id", vpn.ID),
		slog.String("ip", ip),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// pickServer returns the server with the fewest VPNs.
func (c *Client) pickServer(ctx context.Context) (*models.Server, error) {
	servers, err := c.store.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers available")
	}

	best := servers[0]
	bestLoad := -1
	for _, srv := range servers {
		vpns, err := c.store.ListVpnsByServer(ctx, srv.ID)
		if err != nil {
			return nil, err
		}
		if bestLoad == -1 || len(vpns) < bestLoad {
			best = srv
			bestLoad = len(vpns)
		}
	}
	return &best, nil
}

// allocateIP returns the first free host address in the server subnet.
// The network address and the gateway (.1) are never handed out.
func (c *Client) allocateIP(ctx context.Context, server *models.Server) (string, error) {
	taken, err := c.store.ListVpnIPsByServer(ctx, server.ID)
	if err != nil {
		return "", err
	}
	return nextFreeIP(server.Subnet, taken)
}

func nextFreeIP(subnet string, taken []string) (string, error) {
	prefix, err := netip.ParsePrefix(subnet)
	if err != nil {
		return "", fmt.Errorf("bad subnet %q: %w", subnet, err)
	}
	used := make(map[string]struct{}, len(taken))
	for _, ip := range taken {
		used[ip] = struct{}{}
	}

	addr := prefix.Masked().Addr().Next() // skip network address
	addr = addr.Next()                    // skip gateway
	for prefix.Contains(addr) {
		if _, ok := used[addr.String()]; !ok {
			return addr.String(), nil
		}
		addr = addr.Next()
	}
	return "", fmt.Errorf("subnet %s exhausted", subnet)
}

func (c *Client) registerPeer(ctx context.Context, server *models.Server, user *models.User, ip string) (string, error) {
	body, err := json.Marshal(createPeerRequest{
		Name:       user.Name,
		TelegramID: user.TelegramID,
		IP:         ip,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/servers/%d/peers", c.baseURL, server.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var out createPeerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.PublicKey == "" {
		return "", fmt.Errorf("empty public key in response")
	}
	return out.PublicKey, nil
}
