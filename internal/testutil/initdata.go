// Package testutil builds signed test fixtures shared by package tests.
package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SignInitData assembles an initData blob the way the Telegram client
// would: percent-encoded pairs plus a hash over the decoded pairs sorted
// by key and joined with newlines.
func SignInitData(botToken string, pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+pairs[k])
	}

	kdf := hmac.New(sha256.New, []byte("WebAppData"))
	kdf.Write([]byte(botToken))
	mac := hmac.New(sha256.New, kdf.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(pairs[k]))
	}
	parts = append(parts, "hash="+hex.EncodeToString(mac.Sum(nil)))
	return strings.Join(parts, "&")
}
