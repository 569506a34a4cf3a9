package provision

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endurancevpn/vpnbot/internal/config"
	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/models"
)

func init() {
	logger.Provision = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubStore is a canned in-memory Store for provisioning tests.
type stubStore struct {
	servers   []models.Server
	vpns      map[int64][]models.Vpn
	takenIPs  map[int64][]string
	created   *models.Vpn
	savedUser *models.User
}

func (s *stubStore) ListServers(context.Context) ([]models.Server, error) {
	return s.servers, nil
}

func (s *stubStore) ListVpnsByServer(_ context.Context, serverID int64) ([]models.Vpn, error) {
	return s.vpns[serverID], nil
}

func (s *stubStore) ListVpnIPsByServer(_ context.Context, serverID int64) ([]string, error) {
	return s.takenIPs[serverID], nil
}

func (s *stubStore) CreateTrialVpn(_ context.Context, userID, serverID int64, ip, publicKey string) (*models.Vpn, error) {
	s.created = &models.Vpn{
		ID:        100,
		UserID:    userID,
		ServerID:  serverID,
		IP:        ip,
		PublicKey: publicKey,
		Status:    models.VpnStatusTrial,
	}
	return s.created, nil
}

func (s *stubStore) UpdateUser(_ context.Context, user *models.User) error {
	u := *user
	s.savedUser = &u
	return nil
}

func TestCreateVPN(t *testing.T) {
	var gotReq createPeerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/servers/2/peers", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createPeerResponse{PublicKey: "pubkey1"})
	}))
	defer srv.Close()

	store := &stubStore{
		servers: []models.Server{
			{ID: 1, Subnet: "10.8.0.0/24"},
			{ID: 2, Subnet: "10.9.0.0/24"},
		},
		vpns: map[int64][]models.Vpn{
			1: {{ID: 10}, {ID: 11}}, // server 1 carries more load
			2: {{ID: 12}},
		},
		takenIPs: map[int64][]string{2: {"10.9.0.2"}},
	}
	client := NewClient(config.ProvisioningConfig{BaseURL: srv.URL, Token: "secret"}, store)
	user := &models.User{ID: 7, TelegramID: 42, Name: "Alice", Status: models.UserStatusCreated}

	require.NoError(t, client.CreateVPN(context.Background(), user))

	assert.Equal(t, "Alice", gotReq.Name)
	assert.Equal(t, int64(42), gotReq.TelegramID)
	assert.Equal(t, "10.9.0.3", gotReq.IP) // .2 taken, gateway skipped

	require.NotNil(t, store.created)
	assert.Equal(t, int64(7), store.created.UserID)
	assert.Equal(t, int64(2), store.created.ServerID)
	assert.Equal(t, "10.9.0.3", store.created.IP)
	assert.Equal(t, "pubkey1", store.created.PublicKey)

	require.NotNil(t, store.savedUser)
	assert.Equal(t, models.UserStatusPending, store.savedUser.Status)
	assert.Equal(t, models.UserStatusPending, user.Status)
}

func TestCreateVPNPeerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	store := &stubStore{servers: []models.Server{{ID: 1, Subnet: "10.8.0.0/24"}}}
	client := NewClient(config.ProvisioningConfig{BaseURL: srv.URL}, store)
	user := &models.User{ID: 1, TelegramID: 1, Status: models.UserStatusCreated}

	err := client.CreateVPN(context.Background(), user)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provision.CreateVPN")
	assert.Nil(t, store.created)
	assert.Equal(t, models.UserStatusCreated, user.Status)
}

func TestCreateVPNNoServers(t *testing.T) {
	client := NewClient(config.ProvisioningConfig{BaseURL: "http://unused"}, &stubStore{})
	err := client.CreateVPN(context.Background(), &models.User{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no servers available")
}

func TestNextFreeIP(t *testing.T) {
	tests := []struct {
		name    string
		subnet  string
		taken   []string
		want    string
		wantErr bool
	}{
		{name: "empty subnet", subnet: "10.8.0.0/24", want: "10.8.0.2"},
		{name: "skips taken", subnet: "10.8.0.0/24", taken: []string{"10.8.0.2", "10.8.0.3"}, want: "10.8.0.4"},
		{name: "fills gap", subnet: "10.8.0.0/24", taken: []string{"10.8.0.3"}, want: "10.8.0.2"},
		{name: "exhausted", subnet: "10.8.0.0/30", taken: []string{"10.8.0.2", "10.8.0.3"}, wantErr: true},
		{name: "bad subnet", subnet: "not-a-cidr", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := nextFreeIP(tc.subnet, tc.taken)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
