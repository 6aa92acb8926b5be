package edgegrid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"edgemcp/internal/domain"
)

const (
	authScheme      = "EG1-HMAC-SHA256"
	timestampFormat = "20060102T15:04:05+0000"

	// Only the leading maxSignedBody bytes of a POST body participate
	// in the signature, per the platform's auth spec.
	maxSignedBody = 131072
)

// Signer produces the platform's HMAC auth header for one credential
// set. The signing key is derived from the client secret and the
// request timestamp, so every request is signed fresh.
type Signer struct {
	creds domain.Credentials
	now   func() time.Time
	nonce func() string
}

func NewSigner(creds domain.Credentials) *Signer {
	return &Signer{creds: creds, now: time.Now, nonce: uuid.NewString}
}

// Sign attaches the Authorization header to req. body must be the
// exact payload the request carries, or nil.
func (s *Signer) Sign(req *http.Request, body []byte) {
	timestamp := s.now().UTC().Format(timestampFormat)
	authData := fmt.Sprintf("%s client_token=%s;access_token=%s;timestamp=%s;nonce=%s;",
		authScheme, s.creds.ClientToken, s.creds.AccessToken, timestamp, s.nonce())

	signingKey := hmacBase64([]byte(timestamp), []byte(s.creds.ClientSecret))
	dataToSign := strings.Join([]string{
		req.Method,
		req.URL.Scheme,
		req.URL.Host,
		requestPath(req.URL),
		"", // no additional signed headers
		contentHash(req.Method, body),
		authData,
	}, "\t")
	signature := hmacBase64([]byte(dataToSign), []byte(signingKey))

	req.Header.Set("Authorization", authData+"signature="+signature)
}

func hmacBase64(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func contentHash(method string, body []byte) string {
	if method != http.MethodPost || len(body) == 0 {
		return ""
	}
	if len(body) > maxSignedBody {
		body = body[:maxSignedBody]
	}
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func requestPath(u *url.URL) string {
	path := u.RequestURI()
	if path == "" {
		return "/"
	}
	return path
}
