package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds how stale a signed timestamp may be before the
// delivery is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrBadSignature     = errors.New("signature verification failed")
	ErrStaleSignature   = errors.New("signature timestamp outside tolerance")
)

// VerifySignature checks the gateway signature header against the raw
// payload. The header carries a unix timestamp and one or more HMAC-SHA256
// signatures over "<timestamp>.<payload>" ("t=...,v1=..."); any matching v1
// entry passes.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	var signedAt time.Time
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrBadSignature)
			}
			signedAt = time.Unix(ts, 0)
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			candidates = append(candidates, sig)
		}
	}

	if signedAt.IsZero() || len(candidates) == 0 {
		return ErrBadSignature
	}
	if tolerance > 0 {
		if drift := now.Sub(signedAt); drift > tolerance || drift < -tolerance {
			return ErrStaleSignature
		}
	}

	expected := computeSignature(payload, secret, signedAt)
	for _, candidate := range candidates {
		if subtle.ConstantTimeCompare(candidate, expected) == 1 {
			return nil
		}
	}
	return ErrBadSignature
}

// SignPayload produces a signature header for the given payload, matching
// what VerifySignature accepts. Used by tests and the local event replayer.
func SignPayload(payload []byte, secret string, signedAt time.Time) string {
	sig := computeSignature(payload, secret, signedAt)
	return fmt.Sprintf("t=%d,v1=%s", signedAt.Unix(), hex.EncodeToString(sig))
}

func computeSignature(payload []byte, secret string, signedAt time.Time) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", signedAt.Unix())
	mac.Write(payload)
	return mac.Sum(nil)
}
