package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSignatureMissing  = errors.New("missing x-signature header")
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	ErrSignatureExpired  = errors.New("webhook signature timestamp outside tolerance")
)

// SignatureInput carries the values the gateway signs for a notification.
type SignatureInput struct {
	Header    string // raw x-signature header: "ts=...,v1=..."
	RequestID string // x-request-id header
	DataID    string // data.id from the notification
}

// VerifySignature checks the x-signature HMAC. maxAge of zero disables the
// timestamp window check.
func VerifySignature(secret string, in SignatureInput, now time.Time, maxAge time.Duration) error {
	ts, v1 := parseSignatureHeader(in.Header)
	if ts == "" || v1 == "" {
		return ErrSignatureMissing
	}

	expected := computeSignature(secret, manifest(in.DataID, in.RequestID, ts))
	provided, err := hex.DecodeString(v1)
	if err != nil || !hmac.Equal(expected, provided) {
		return ErrSignatureMismatch
	}

	if maxAge > 0 {
		signedAt, err := parseTimestamp(ts)
		if err != nil {
			return ErrSignatureMismatch
		}
		if delta := now.Sub(signedAt); delta > maxAge || delta < -maxAge {
			return ErrSignatureExpired
		}
	}
	return nil
}

// Sign builds an x-signature header value; used by tests and local tooling.
func Sign(secret, dataID, requestID, ts string) string {
	return "ts=" + ts + ",v1=" + hex.EncodeToString(computeSignature(secret, manifest(dataID, requestID, ts)))
}

func manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func computeSignature(secret, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}

// ts is seconds or milliseconds since epoch depending on the notification type.
func parseTimestamp(ts string) (time.Time, error) {
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if n > 1e12 {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}
