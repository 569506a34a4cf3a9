// Package storage implements the PostgreSQL repository for users, VPNs,
// servers, and the tariff catalog.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/models"
)

// ErrDuplicateIdentity is returned when a user with the same Telegram ID
// already exists. It surfaces double-registration races.
var ErrDuplicateIdentity = errors.New("storage: duplicate telegram identity")

const pgUniqueViolation = "23505"

// Storage is the repository over a connected PostgreSQL pool.
// Each method is a single statement, so each call is its own transaction.
type Storage struct {
	db          *sqlx.DB
	trialWindow time.Duration
}

// New constructs a Storage. trialWindow sets the lifetime of trial VPNs.
func New(db *sqlx.DB, trialWindow time.Duration) *Storage {
	return &Storage{db: db, trialWindow: trialWindow}
}

// TrialWindow reports the configured trial VPN lifetime.
func (s *Storage) TrialWindow() time.Duration {
	return s.trialWindow
}

// CreateUser inserts a new user with status "created".
// Returns ErrDuplicateIdentity when the Telegram ID is already registered.
func (s *Storage) CreateUser(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	const op = "storage.CreateUser"
	query := `INSERT INTO users (telegram_id, name, status, created_at, updated_at)
			  VALUES ($1, $2, $3, now(), now())
			  RETURNING id, telegram_id, name, status, created_at, updated_at`

	var user models.User
	err := s.db.GetContext(ctx, &user, query, telegramID, name, models.UserStatusCreated)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateIdentity)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.SVCUsers.Info("user created",
		slog.String("event", "user.create"),
		slog.Int64("user_id", user.TelegramID),
		slog.String("username", user.Name),
	)
	return &user, nil
}

// UserByTelegramID returns the user with the given Telegram ID, or nil on miss.
func (s *Storage) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	const op = "storage.UserByTelegramID"
	query := `SELECT id, telegram_id, name, status, created_at, updated_at
			  FROM users WHERE telegram_id = $1`

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// UserByID returns the user with the given internal ID, or nil on miss.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.UserByID"
	query := `SELECT id, telegram_id, name, status, created_at, updated_at
			  FROM users WHERE id = $1`

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// UserWithVpn returns the user and their most recent VPN. The result is nil
// when the user is unknown; the Vpn field is nil when none was provisioned.
// A user accumulates VPN rows over the trial and paid lifecycle, so the
// newest row is the canonical one.
func (s *Storage) UserWithVpn(ctx context.Context, telegramID int64) (*models.UserWithVpn, error) {
	const op = "storage.UserWithVpn"

	user, err := s.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return nil, nil
	}

	query := `SELECT id, user_id, server_id, ip, public_key, status, created_at, updated_at, expires_at
			  FROM vpns WHERE user_id = $1
			  ORDER BY created_at DESC
			  LIMIT 1`

	var vpn models.Vpn
	if err := s.db.GetContext(ctx, &vpn, query, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.UserWithVpn{User: user}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.UserWithVpn{User: user, Vpn: &vpn}, nil
}

// ListPendingUsers returns all users awaiting provisioning.
func (s *Storage) ListPendingUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListPendingUsers"
	query := `SELECT id, telegram_id, name, status, created_at, updated_at
			  FROM users WHERE status = $1 ORDER BY id`

	var users []models.User
	if err := s.db.SelectContext(ctx, &users, query, models.UserStatusPending); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// ListVpns returns every VPN row.
func (s *Storage) ListVpns(ctx context.Context) ([]models.Vpn, error) {
	const op = "storage.ListVpns"
	query := `SELECT id, user_id, server_id, ip, public_key, status, created_at, updated_at, expires_at
			  FROM vpns ORDER BY id`

	var vpns []models.Vpn
	if err := s.db.SelectContext(ctx, &vpns, query); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return vpns, nil
}

// ListVpnsByServer returns the VPNs hosted on a server.
func (s *Storage) ListVpnsByServer(ctx context.Context, serverID int64) ([]models.Vpn, error) {
	const op = "storage.ListVpnsByServer"
	query := `SELECT id, user_id, server_id, ip, public_key, status, created_at, updated_at, expires_at
			  FROM vpns WHERE server_id = $1 ORDER BY id`

	var vpns []models.Vpn
	if err := s.db.SelectContext(ctx, &vpns, query, serverID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return vpns, nil
}

// ListVpnIPsByServer returns the IPs already assigned on a server.
func (s *Storage) ListVpnIPsByServer(ctx context.Context, serverID int64) ([]string, error) {
	const op = "storage.ListVpnIPsByServer"
	query := `SELECT ip FROM vpns WHERE server_id = $1 ORDER BY ip`

	var ips []string
	if err := s.db.SelectContext(ctx, &ips, query, serverID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ips, nil
}

// CreateTrialVpn inserts a trial VPN whose expiry is derived from the
// configured trial window at insert time.
func (s *Storage) CreateTrialVpn(ctx context.Context, userID, serverID int64, ip, publicKey string) (*models.Vpn, error) {
	const op = "storage.CreateTrialVpn"
	query := `INSERT INTO vpns (user_id, server_id, ip, public_key, status, created_at, updated_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, now(), now(), now() + $6::interval)
			  RETURNING id, user_id, server_id, ip, public_key, status, created_at, updated_at, expires_at`

	interval := fmt.Sprintf("%d seconds", int(s.trialWindow.Seconds()))
	var vpn models.Vpn
	err := s.db.GetContext(ctx, &vpn, query, userID, serverID, ip, publicKey, models.VpnStatusTrial, interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.SVCVpns.Info("trial vpn created",
		slog.String("event", "vpn.create_trial"),
		slog.Int64("vpn_id", vpn.ID),
		slog.Int64("server_id", vpn.ServerID),
		slog.String("ip", vpn.IP),
		slog.Time("expires_at", vpn.ExpiresAt),
	)
	return &vpn, nil
}

// UpdateUser persists mutations of an already-loaded user.
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	const op = "storage.UpdateUser"
	query := `UPDATE users SET name = $1, status = $2, updated_at = now() WHERE id = $3`

	if _, err := s.db.ExecContext(ctx, query, user.Name, user.Status, user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateVpn persists mutations of an already-loaded VPN.
func (s *Storage) UpdateVpn(ctx context.Context, vpn *models.Vpn) error {
	const op = "storage.UpdateVpn"
	query := `UPDATE vpns SET status = $1, expires_at = $2, updated_at = now() WHERE id = $3`

	if _, err := s.db.ExecContext(ctx, query, vpn.Status, vpn.ExpiresAt, vpn.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ServerByID returns the server with the given ID, or nil on miss.
func (s *Storage) ServerByID(ctx context.Context, id int64) (*models.Server, error) {
	const op = "storage.ServerByID"
	query := `SELECT id, name, host, subnet FROM servers WHERE id = $1`

	var server models.Server
	if err := s.db.GetContext(ctx, &server, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &server, nil
}

// ListServers returns every server row.
func (s *Storage) ListServers(ctx context.Context) ([]models.Server, error) {
	const op = "storage.ListServers"
	query := `SELECT id, name, host, subnet FROM servers ORDER BY id`

	var servers []models.Server
	if err := s.db.SelectContext(ctx, &servers, query); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return servers, nil
}

// TariffByID returns the tariff with the given ID, or nil on miss.
func (s *Storage) TariffByID(ctx context.Context, id int64) (*models.Tariff, error) {
	const op = "storage.TariffByID"
	query := `SELECT id, price, days FROM tariffs WHERE id = $1`

	var tariff models.Tariff
	if err := s.db.GetContext(ctx, &tariff, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tariff, nil
}

// ListTariffs returns the tariff catalog ordered by duration.
func (s *Storage) ListTariffs(ctx context.Context) ([]models.Tariff, error) {
	const op = "storage.ListTariffs"
	query := `SELECT id, price, days FROM tariffs ORDER BY days`

	var tariffs []models.Tariff
	if err := s.db.SelectContext(ctx, &tariffs, query); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tariffs, nil
}
