package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// TelegramUser is the identity block inside a WebApp init_data payload.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// DisplayName prefers the handle and falls back to the first name.
func (u TelegramUser) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// VerifyLoginPayload checks a Telegram WebApp init_data string against
// the bot token: HMAC-SHA256 of the sorted data-check string, keyed by
// SHA256(bot token). On success it returns the embedded user.
func VerifyLoginPayload(initData, botToken string) (TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return TelegramUser{}, ErrBadSignature
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return TelegramUser{}, ErrBadSignature
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, values.Get(k)))
	}
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return TelegramUser{}, ErrBadSignature
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return TelegramUser{}, ErrBadSignature
	}
	if user.ID == 0 {
		return TelegramUser{}, ErrBadSignature
	}
	return user, nil
}

// SignLoginPayload produces a valid init_data string for the given
// parameters, the counterpart of VerifyLoginPayload. Exists for tests
// and local tooling.
func SignLoginPayload(params url.Values, botToken string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params.Get(k)))
	}
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))

	signed := url.Values{}
	for k := range params {
		signed.Set(k, params.Get(k))
	}
	signed.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return signed.Encode()
}
