package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

// signedBlob builds an initData string the way the Telegram client would:
// percent-encoded pairs plus a hash computed over the decoded, sorted pairs.
func signedBlob(token string, pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+pairs[k])
	}
	canonical := strings.Join(lines, "\n")

	kdf := hmac.New(sha256.New, []byte("WebAppData"))
	kdf.Write([]byte(token))
	secret := kdf.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	hash := hex.EncodeToString(mac.Sum(nil))

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(pairs[k]))
	}
	parts = append(parts, "hash="+hash)
	return strings.Join(parts, "&")
}

func defaultPairs() map[string]string {
	return map[string]string{
		"auth_date": "1700000000",
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      `{"id":42,"first_name":"Bug","last_name":"Man","username":"bugman"}`,
	}
}

func TestVerifyValidBlob(t *testing.T) {
	v := NewVerifier([]string{testToken})

	identity, idx, err := v.Verify(signedBlob(testToken, defaultPairs()))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "42", identity.ID)
	assert.Equal(t, "bugman", identity.Username)
	assert.Equal(t, "Bug", identity.FirstName)
	assert.Equal(t, "Man", identity.LastName)
}

func TestVerifyTokenRotation(t *testing.T) {
	old := "999:old-token"
	v := NewVerifier([]string{old, testToken})

	// Blob signed with the second configured token still verifies.
	identity, idx, err := v.Verify(signedBlob(testToken, defaultPairs()))
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "42", identity.ID)

	_, idx, err = v.Verify(signedBlob(old, defaultPairs()))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestVerifyWrongToken(t *testing.T) {
	v := NewVerifier([]string{"111:not-the-signer"})

	_, _, err := v.Verify(signedBlob(testToken, defaultPairs()))
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyPairOrderIrrelevant(t *testing.T) {
	v := NewVerifier([]string{testToken})

	blob := signedBlob(testToken, defaultPairs())
	tokens := strings.Split(blob, "&")
	// Reverse the wire order of the pairs; the canonical string is sorted
	// so the signature must still match.
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	reordered := strings.Join(tokens, "&")

	identity, _, err := v.Verify(reordered)
	require.NoError(t, err)
	assert.Equal(t, "42", identity.ID)
}

func TestVerifyTamperedValue(t *testing.T) {
	v := NewVerifier([]string{testToken})

	blob := signedBlob(testToken, defaultPairs())
	tampered := strings.Replace(blob, "auth_date=1700000000", "auth_date=1700000001", 1)
	require.NotEqual(t, blob, tampered)

	_, _, err := v.Verify(tampered)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyEscapedValuesSurviveDecoding(t *testing.T) {
	v := NewVerifier([]string{testToken})

	pairs := defaultPairs()
	pairs["user"] = `{"id":7,"first_name":"Ann & Co","username":""}`
	identity, _, err := v.Verify(signedBlob(testToken, pairs))
	require.NoError(t, err)
	assert.Equal(t, "Ann & Co", identity.FirstName)
}

func TestVerifyMissingHash(t *testing.T) {
	v := NewVerifier([]string{testToken})

	_, _, err := v.Verify("auth_date=1700000000&user=%7B%22id%22%3A42%7D")
	assert.ErrorIs(t, err, ErrNoSignature)
}

func TestVerifyMalformed(t *testing.T) {
	v := NewVerifier([]string{testToken})

	for _, raw := range []string{"", "not-a-query-string", "a=%zz&hash=00"} {
		_, _, err := v.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformedCredential, "raw=%q", raw)
	}
}

func TestVerifyMissingUser(t *testing.T) {
	v := NewVerifier([]string{testToken})

	pairs := defaultPairs()
	delete(pairs, "user")
	_, _, err := v.Verify(signedBlob(testToken, pairs))
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestVerifyUserWithoutID(t *testing.T) {
	v := NewVerifier([]string{testToken})

	pairs := defaultPairs()
	pairs["user"] = `{"username":"ghost"}`
	_, _, err := v.Verify(signedBlob(testToken, pairs))
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestVerifyInvalidUserJSON(t *testing.T) {
	v := NewVerifier([]string{testToken})

	pairs := defaultPairs()
	pairs["user"] = `{"id":42`
	_, _, err := v.Verify(signedBlob(testToken, pairs))
	assert.ErrorIs(t, err, ErrInvalidIdentityPayload)
}

func TestInspect(t *testing.T) {
	v := NewVerifier([]string{"111:decoy", testToken})

	ins, err := v.Inspect(signedBlob(testToken, defaultPairs()))
	require.NoError(t, err)
	assert.Len(t, ins.Candidates, 2)
	assert.Equal(t, 1, ins.Match)
	assert.Equal(t, ins.Candidates[1], ins.Submitted)
	assert.Contains(t, ins.Canonical, "auth_date=1700000000")
	assert.NotContains(t, ins.Canonical, "hash=")
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		want     string
	}{
		{"username wins", Identity{ID: "42", Username: "bugman", FirstName: "Bug"}, "bugman"},
		{"first name next", Identity{ID: "42", FirstName: "Bug", LastName: "Man"}, "Bug"},
		{"last name next", Identity{ID: "42", LastName: "Man"}, "Man"},
		{"synthetic fallback", Identity{ID: "123456789"}, "Player 6789"},
		{"short id fallback", Identity{ID: "42"}, "Player 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.identity.DisplayName())
		})
	}
}

func TestDisplayNameTruncated(t *testing.T) {
	long := strings.Repeat("x", 200)
	id := Identity{ID: "42", Username: long}
	assert.Equal(t, 64, len([]rune(id.DisplayName())))
}

func TestVerifyDuplicateKeyLastWins(t *testing.T) {
	v := NewVerifier([]string{testToken})

	pairs := defaultPairs()
	blob := signedBlob(testToken, pairs)
	// Prepend a decoy auth_date; the later (signed) value must win.
	_, _, err := v.Verify(fmt.Sprintf("auth_date=1&%s", blob))
	require.NoError(t, err)
}
