package domain

import "time"

type LoginType string

const (
	LoginTypeRegister LoginType = "register"
	LoginTypeLogin    LoginType = "login"
	LoginTypeTelegram LoginType = "telegram"
)

// UserLogin is one authentication event with its client fingerprint.
type UserLogin struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	UserAgent   string    `db:"user_agent" json:"user_agent,omitempty"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint,omitempty"`
	LoginType   LoginType `db:"login_type" json:"login_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SharedIPUser is one account seen on an address used by several accounts.
type SharedIPUser struct {
	IPAddress string
	SuspectUser
}

type SuspectUser struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	IsBanned  bool       `json:"is_banned"`
}

// SuspectGroup lists the accounts that logged in from one IP address.
type SuspectGroup struct {
	IPAddress string        `json:"ip_address"`
	UserCount int           `json:"user_count"`
	Users     []SuspectUser `json:"users"`
}
