package netsuite

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Signer produces OAuth 1.0a HMAC-SHA256 Authorization headers for the
// NetSuite REST API (token-based authentication). Nonce and Now are
// injectable so signatures are reproducible in tests.
type Signer struct {
	Realm          string
	ConsumerKey    string
	ConsumerSecret string
	TokenID        string
	TokenSecret    string

	Nonce func() string
	Now   func() time.Time
}

// Header signs method+rawURL and returns the full Authorization value.
// Query parameters on rawURL participate in the signature base string.
func (s *Signer) Header(method, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	nonce := s.nonce()
	timestamp := fmt.Sprintf("%d", s.now().Unix())

	oauthParams := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA256",
		"oauth_timestamp":        timestamp,
		"oauth_token":            s.TokenID,
		"oauth_version":          "1.0",
	}

	var pairs []string
	for key, value := range oauthParams {
		pairs = append(pairs, percentEncode(key)+"="+percentEncode(value))
	}
	for key, values := range parsed.Query() {
		for _, value := range values {
			pairs = append(pairs, percentEncode(key)+"="+percentEncode(value))
		}
	}
	sort.Strings(pairs)

	baseURL := parsed.Scheme + "://" + parsed.Host + parsed.Path
	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(pairs, "&"))

	key := percentEncode(s.ConsumerSecret) + "&" + percentEncode(s.TokenSecret)
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(base))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	header := fmt.Sprintf(
		`OAuth realm="%s", oauth_consumer_key="%s", oauth_nonce="%s", oauth_signature="%s", oauth_signature_method="HMAC-SHA256", oauth_timestamp="%s", oauth_token="%s", oauth_version="1.0"`,
		s.Realm,
		percentEncode(s.ConsumerKey),
		percentEncode(nonce),
		percentEncode(signature),
		timestamp,
		percentEncode(s.TokenID),
	)
	return header, nil
}

func (s *Signer) nonce() string {
	if s.Nonce != nil {
		return s.Nonce()
	}
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// percentEncode implements RFC 3986 encoding; OAuth requires it instead of
// the laxer url.QueryEscape (spaces as %20, not +).
func percentEncode(value string) string {
	var b strings.Builder
	for _, c := range []byte(value) {
		switch {
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
