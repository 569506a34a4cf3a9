// Package models declares the persistent entities of the VPN bot.
package models

import "time"

// UserStatus reflects where a user is in the provisioning lifecycle.
type UserStatus string

const (
	// UserStatusCreated means the user registered but has no VPN yet.
	UserStatusCreated UserStatus = "created"
	// UserStatusPending means a provisioning request is being processed.
	UserStatusPending UserStatus = "pending"
	// UserStatusExecuted means the user's VPN has been provisioned.
	UserStatusExecuted UserStatus = "executed"
)

// VpnStatus reflects the billing state of a provisioned VPN.
// Transitions only move forward: trial -> paid -> expired, or trial -> expired.
type VpnStatus string

const (
	VpnStatusTrial   VpnStatus = "trial"
	VpnStatusPaid    VpnStatus = "paid"
	VpnStatusExpired VpnStatus = "expired"
)

// User is the identity record keyed by the Telegram user ID.
type User struct {
	ID         int64      `db:"id"`
	TelegramID int64      `db:"telegram_id"`
	Name       string     `db:"name"`
	Status     UserStatus `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// Vpn is a provisioning record owned by a single user.
type Vpn struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ServerID  int64     `db:"server_id"`
	IP        string    `db:"ip"`
	PublicKey string    `db:"public_key"`
	Status    VpnStatus `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Server is an infrastructure record, read-only from the bot's perspective.
type Server struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Host   string `db:"host"`
	Subnet string `db:"subnet"`
}

// Tariff is a purchasable plan: price in rubles for a validity in days.
type Tariff struct {
	ID    int64 `db:"id"`
	Price int   `db:"price"`
	Days  int   `db:"days"`
}

// UserWithVpn pairs a user with their current VPN, if any.
// Vpn is nil when the user has never been provisioned.
type UserWithVpn struct {
	User *User
	Vpn  *Vpn
}
