package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sadad-payment-service/config"
	"sadad-payment-service/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrNoStatus means the verification response carried no transactionstatus.
	ErrNoStatus = errors.New("verification response has no transactionstatus")
	// ErrNotConfigured means no verification URL is set for the active environment.
	ErrNotConfigured = errors.New("verification endpoint not configured")
)

type verifyRequest struct {
	MerchantID        string `json:"merchant_id"`
	SecretKey         string `json:"secret_key"`
	TransactionNumber string `json:"transaction_number"`
}

// SadadClient calls the SADAD server-to-server transaction lookup.
// Implements ports.GatewayVerifier.
type SadadClient struct {
	http       *resty.Client
	url        string
	merchantID string
	secretKey  string
	maxRetries uint64
	log        zerolog.Logger

	newBackOff func() backoff.BackOff
}

// NewSadadClient creates a verification client for the active environment.
func NewSadadClient(cfg config.SadadConfig, log zerolog.Logger) *SadadClient {
	timeout := cfg.VerifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &SadadClient{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		url:        cfg.VerifyURL(),
		merchantID: cfg.MerchantID,
		secretKey:  cfg.SecretKey,
		maxRetries: cfg.VerifyMaxRetries,
		log:        log.With().Str("component", "sadad_verifier").Logger(),
	}
	c.newBackOff = func() backoff.BackOff {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 200 * time.Millisecond
		exp.MaxInterval = 2 * time.Second
		exp.MaxElapsedTime = timeout * time.Duration(c.maxRetries+1)
		return exp
	}
	return c
}

// Verify looks up transactionNumber at the gateway. Transport errors and 5xx answers
// are retried a bounded number of times; 4xx answers are not.
func (c *SadadClient) Verify(ctx context.Context, transactionNumber string) (*ports.VerificationResult, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	var body []byte
	operation := func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(verifyRequest{
				MerchantID:        c.merchantID,
				SecretKey:         c.secretKey,
				TransactionNumber: transactionNumber,
			}).
			Post(c.url)
		if err != nil {
			return fmt.Errorf("verification request: %w", err)
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("verification server error %d", resp.StatusCode())
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return backoff.Permanent(fmt.Errorf("verification rejected with status %d", resp.StatusCode()))
		}
		body = resp.Body()
		return nil
	}

	notify := func(err error, d time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", d).Msg("sadad verification retry")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}

	return parseVerification(body)
}

// parseVerification reads transactionstatus from the top level or from a data envelope.
// The gateway sends it as a number or as a numeric string.
func parseVerification(body []byte) (*ports.VerificationResult, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding verification response: %w", err)
	}

	value, ok := raw["transactionstatus"]
	if !ok {
		if data, isMap := raw["data"].(map[string]any); isMap {
			value, ok = data["transactionstatus"]
		}
	}
	if !ok {
		return nil, ErrNoStatus
	}

	status, err := toInt(value)
	if err != nil {
		return nil, fmt.Errorf("transactionstatus: %w", err)
	}
	return &ports.VerificationResult{TransactionStatus: status, Raw: raw}, nil
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	case float64:
		return int(t), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
