// Package telegram validates Telegram WebApp init data.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingHash = errors.New("init data has no hash")
	ErrBadHash     = errors.New("init data hash mismatch")
	ErrExpired     = errors.New("init data expired")
	ErrNoUser      = errors.New("init data has no user")
)

// MaxAge is how old an auth_date may be.
const MaxAge = time.Hour

// clock skew allowed for auth_date in the future
const maxSkew = 5 * time.Minute

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
}

// InitData is validated init data.
type InitData struct {
	User       WebAppUser
	StartParam string
	AuthDate   time.Time
}

// secretKey is HMAC_SHA256("WebAppData", botToken).
func secretKey(botToken string) []byte {
	h := hmac.New(sha256.New, []byte("WebAppData"))
	h.Write([]byte(botToken))
	return h.Sum(nil)
}

// Sign returns the hash Telegram would attach to values.
func Sign(values url.Values, botToken string) string {
	var dataCheck []string
	for k, v := range values {
		if k == "hash" {
			continue
		}
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)

	h := hmac.New(sha256.New, secretKey(botToken))
	h.Write([]byte(strings.Join(dataCheck, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks the init data signature and freshness at now and
// returns the embedded user.
func Validate(initData, botToken string, now time.Time) (*InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrBadHash
	}
	expected, _ := hex.DecodeString(Sign(values, botToken))
	if !hmac.Equal(expected, provided) {
		return nil, ErrBadHash
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrExpired
	}
	issued := time.Unix(authDate, 0)
	if now.Sub(issued) > MaxAge || issued.Sub(now) > maxSkew {
		return nil, ErrExpired
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, ErrNoUser
	}

	return &InitData{
		User:       user,
		StartParam: values.Get("start_param"),
		AuthDate:   issued,
	}, nil
}
