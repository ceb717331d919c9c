// Package initdata verifies Telegram WebApp initData blobs: the query-string
// shaped credential a Mini App client receives from Telegram, signed with
// HMAC-SHA256 under a key derived from the bot token.
package initdata

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
)

var (
	ErrMalformedCredential    = errors.New("initdata: malformed credential blob")
	ErrNoSignature            = errors.New("initdata: no hash field present")
	ErrSignatureMismatch      = errors.New("initdata: signature mismatch")
	ErrMissingIdentity        = errors.New("initdata: user identity missing")
	ErrInvalidIdentityPayload = errors.New("initdata: invalid user payload")
)

const maxDisplayName = 64

// Identity is the user embedded in a verified blob. Fields other than ID are
// optional on the Telegram side.
type Identity struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

// DisplayName picks the first non-empty name field, falling back to a
// synthetic name built from the tail of the numeric id.
func (id Identity) DisplayName() string {
	name := id.Username
	if name == "" {
		name = id.FirstName
	}
	if name == "" {
		name = id.LastName
	}
	if name == "" {
		tail := id.ID
		if len(tail) > 4 {
			tail = tail[len(tail)-4:]
		}
		name = "Player " + tail
	}
	if runes := []rune(name); len(runes) > maxDisplayName {
		name = string(runes[:maxDisplayName])
	}
	return name
}

// Verifier checks submitted blobs against one or more bot tokens. Multiple
// tokens allow zero-downtime token rotation: each is independently valid.
type Verifier struct {
	secrets [][]byte
}

// NewVerifier derives a signing secret per bot token, in order.
func NewVerifier(botTokens []string) *Verifier {
	v := &Verifier{}
	for _, token := range botTokens {
		mac := hmac.New(sha256.New, []byte("WebAppData"))
		mac.Write([]byte(token))
		v.secrets = append(v.secrets, mac.Sum(nil))
	}
	return v
}

// Verify authenticates a raw initData blob and extracts the embedded user.
// The returned index identifies the matching token and is diagnostic only.
// The identity is decoded strictly after the signature check passes.
func (v *Verifier) Verify(raw string) (*Identity, int, error) {
	pairs, submitted, err := parse(raw)
	if err != nil {
		return nil, -1, err
	}

	canonical := canonicalString(pairs)
	idx := -1
	for i, secret := range v.secrets {
		if hmac.Equal([]byte(sign(secret, canonical)), []byte(submitted)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, -1, ErrSignatureMismatch
	}

	identity, err := extractIdentity(pairs)
	if err != nil {
		return nil, -1, err
	}
	return identity, idx, nil
}

// Inspection is the raw verification state exposed by the debug endpoint.
type Inspection struct {
	Canonical  string   `json:"canonical"`
	Submitted  string   `json:"submitted_hash"`
	Candidates []string `json:"candidates"`
	Match      int      `json:"match"`
}

// Inspect recomputes every candidate signature for a blob without extracting
// the identity. Debug use only.
func (v *Verifier) Inspect(raw string) (*Inspection, error) {
	pairs, submitted, err := parse(raw)
	if err != nil {
		return nil, err
	}
	ins := &Inspection{
		Canonical: canonicalString(pairs),
		Submitted: submitted,
		Match:     -1,
	}
	for i, secret := range v.secrets {
		candidate := sign(secret, ins.Canonical)
		ins.Candidates = append(ins.Candidates, candidate)
		if ins.Match < 0 && hmac.Equal([]byte(candidate), []byte(submitted)) {
			ins.Match = i
		}
	}
	return ins, nil
}

// parse splits the blob into decoded key/value pairs and pulls out the
// submitted signature. Percent-escapes are decoded exactly once, here,
// before sorting and before signing; verification and identity extraction
// both see decoded values.
func parse(raw string) (map[string]string, string, error) {
	if raw == "" {
		return nil, "", ErrMalformedCredential
	}

	pairs := make(map[string]string)
	var submitted string
	for _, token := range strings.Split(raw, "&") {
		k, val, ok := strings.Cut(token, "=")
		if !ok || k == "" {
			return nil, "", ErrMalformedCredential
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, "", ErrMalformedCredential
		}
		value, err := url.QueryUnescape(val)
		if err != nil {
			return nil, "", ErrMalformedCredential
		}
		if key == "hash" {
			submitted = value
			continue
		}
		pairs[key] = value
	}
	if submitted == "" {
		return nil, "", ErrNoSignature
	}
	return pairs, submitted, nil
}

// canonicalString renders the pairs as key=value lines sorted bytewise by
// key, newline separated, no trailing newline.
func canonicalString(pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(pairs[k])
	}
	return b.String()
}

func sign(secret []byte, canonical string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

type userPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func extractIdentity(pairs map[string]string) (*Identity, error) {
	userJSON, ok := pairs["user"]
	if !ok || userJSON == "" {
		return nil, ErrMissingIdentity
	}

	var u userPayload
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return nil, ErrInvalidIdentityPayload
	}
	if u.ID == 0 {
		return nil, ErrMissingIdentity
	}

	return &Identity{
		ID:        strconv.FormatInt(u.ID, 10),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, nil
}
