package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotConfigured   = errors.New("telegram bot token is not configured")
	ErrInvalidInitData = errors.New("invalid telegram init data")
	ErrExpiredInitData = errors.New("telegram init data expired")
)

// WebAppUser is the "user" field of Mini App init data.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Identifier is the platform id as stored on users.
func (u WebAppUser) Identifier() string {
	return strconv.FormatInt(u.ID, 10)
}

// DisplayName prefers the @username and falls back to the first name.
func (u WebAppUser) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Verifier checks the hash Telegram attaches to Mini App init data.
type Verifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewVerifier accepts init data signed with botToken that is at most maxAge
// old. A zero maxAge disables the age check.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{botToken: botToken, maxAge: maxAge, now: time.Now}
}

func (v *Verifier) Verify(initData string) (*WebAppUser, error) {
	if v == nil || v.botToken == "" {
		return nil, ErrNotConfigured
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrInvalidInitData)
	}
	got, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(got, signature(v.botToken, values)) {
		return nil, fmt.Errorf("%w: hash mismatch", ErrInvalidInitData)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth_date", ErrInvalidInitData)
	}
	if v.maxAge > 0 && v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
		return nil, ErrExpiredInitData
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, fmt.Errorf("%w: bad user", ErrInvalidInitData)
	}
	return &user, nil
}

// Sign builds init data for user the way Telegram does. Tests and local
// tooling use it to mint valid payloads.
func Sign(botToken string, user WebAppUser, authDate time.Time) (string, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("user", string(raw))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", hex.EncodeToString(signature(botToken, values)))
	return values.Encode(), nil
}

// signature is HMAC-SHA256(data_check_string) keyed with
// HMAC-SHA256("WebAppData", botToken).
func signature(botToken string, values url.Values) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}
