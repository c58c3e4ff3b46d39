// Package feedtoken signs calendar subscription links. Calendar clients cannot
// send bearer tokens, so the feed URL carries its own HMAC-signed credential.
package feedtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("feedtoken: malformed token")
	ErrSignature = errors.New("feedtoken: invalid signature")
	ErrExpired   = errors.New("feedtoken: token expired")
)

// Signer creates and validates feed tokens bound to a class and a subscriber.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token granting subscriberID read access to classID's feed.
func (s *Signer) Generate(classID, subscriberID string) (string, time.Time, error) {
	if classID == "" || subscriberID == "" {
		return "", time.Time{}, fmt.Errorf("classID and subscriberID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedSubscriber := base64.RawURLEncoding.EncodeToString([]byte(subscriberID))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	signature := s.sign(classID, ts, encodedSubscriber)
	return strings.Join([]string{ts, encodedSubscriber, signature}, "."), expiresAt, nil
}

// Parse validates a token for classID and returns the subscriber it was issued to.
func (s *Signer) Parse(classID, token string) (subscriberID string, expiresAt time.Time, err error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrSignature
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", time.Time{}, ErrMalformed
	}
	ts, encodedSubscriber, signature := parts[0], parts[1], parts[2]

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", time.Time{}, ErrMalformed
	}
	rawSubscriber, err := base64.RawURLEncoding.DecodeString(encodedSubscriber)
	if err != nil {
		return "", time.Time{}, ErrMalformed
	}

	expected := s.sign(classID, ts, encodedSubscriber)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", time.Time{}, ErrSignature
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", time.Time{}, ErrExpired
	}
	return string(rawSubscriber), expiresAt, nil
}

func (s *Signer) sign(classID, ts, encodedSubscriber string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(classID + "|" + ts + "|" + encodedSubscriber))
	return hex.EncodeToString(mac.Sum(nil))
}
