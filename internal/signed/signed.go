// Package signed implements the hmac signature scheme shared by every
// exchange with the map service and by websocket handshakes. Requests carry
// the signing identity, a timestamp, a body hash and the signature itself
// in dedicated headers; the signature covers the method, the path, the
// identity, the timestamp and the body hash.
package signed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	HeaderID        = "gameon-id"
	HeaderDate      = "gameon-date"
	HeaderBodyHash  = "gameon-sig-body"
	HeaderSignature = "gameon-signature"
)

// Signer signs outbound map service requests with a system identity and
// its shared secret.
type Signer struct {
	id     string
	secret string
}

func NewSigner(id, secret string) *Signer {
	return &Signer{id: id, secret: secret}
}

// SignRequest stamps req with the full signature header set. body must be
// the exact bytes the request will send, or nil for body-less requests.
func (s *Signer) SignRequest(req *http.Request, body []byte) {
	date := time.Now().UTC().Format(http.TimeFormat)
	bodyHash := hashBody(body)
	req.Header.Set(HeaderID, s.id)
	req.Header.Set(HeaderDate, date)
	req.Header.Set(HeaderBodyHash, bodyHash)
	req.Header.Set(HeaderSignature, signature(s.secret, req.Method, req.URL.Path, s.id, date, bodyHash))
}

// SignHandshake sets the signature headers a room will verify on a
// websocket upgrade request for path. Handshakes are signed with the room
// token only; no identity or body is involved.
func SignHandshake(secret, path string, h http.Header) {
	date := time.Now().UTC().Format(http.TimeFormat)
	h.Set(HeaderDate, date)
	h.Set(HeaderSignature, signature(secret, http.MethodGet, path, "", date, hashBody(nil)))
}

// VerifyHandshake checks the signature headers on a websocket upgrade
// request against the room token. Missing headers and signature mismatches
// are both rejections; the error only differs in text.
func VerifyHandshake(secret string, req *http.Request) error {
	date := req.Header.Get(HeaderDate)
	sig := req.Header.Get(HeaderSignature)
	if date == "" || sig == "" {
		return errors.New("missing signature headers")
	}
	want := signature(secret, http.MethodGet, req.URL.Path, "", date, hashBody(nil))
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return fmt.Errorf("signature mismatch for %s", req.URL.Path)
	}
	return nil
}

// SignResponse attaches a fresh signature to the handshake response headers
// so the client can verify it reached the room it expected.
func SignResponse(secret, path string, h http.Header) {
	SignHandshake(secret, path, h)
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func signature(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, "\n")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
