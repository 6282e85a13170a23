package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"descriptly/internal/domain"
)

// DefaultTolerance is the maximum accepted clock skew between the signed
// timestamp and the server clock.
const DefaultTolerance = 5 * time.Minute

// Event is the envelope of a Stripe webhook delivery. Data.Object is left
// raw so handlers decode only the resource they care about, and only after
// the signature has been verified.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// VerifySignature checks the Stripe-Signature header against the raw
// payload. The header carries `t=<unix>,v1=<hex hmac>` pairs; the signed
// message is "<t>.<payload>" keyed with the endpoint secret.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	return verifySignatureAt(payload, header, secret, tolerance, time.Now())
}

func verifySignatureAt(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" || header == "" {
		return domain.ErrInvalidSignature
	}

	var timestamp int64
	var signatures []string
	for _, pair := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return domain.ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return domain.ErrInvalidSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return domain.ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

// ParseEvent decodes a verified payload into an event envelope.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "undecodable webhook payload", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, domain.NewExternalServiceError(serviceName, domain.CauseMalformedResponse, "webhook payload missing id or type", nil)
	}
	return &ev, nil
}

// SignPayload produces a valid Stripe-Signature header for the payload.
// Exported for tests and local webhook replay tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
