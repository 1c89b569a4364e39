package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func signedHeader(secret, dataID, requestID string, ts int64) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%d;", dataID, requestID, ts)
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(manifest))
	return fmt.Sprintf("ts=%d,v1=%s", ts, hex.EncodeToString(m.Sum(nil)))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := NewWebhookVerifier("topsecret", nil)
	header := signedHeader("topsecret", "12345", "req-1", time.Now().Unix())

	require.NoError(t, v.Verify(header, "req-1", "12345"))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewWebhookVerifier("topsecret", nil)
	header := signedHeader("not-the-secret", "12345", "req-1", time.Now().Unix())

	require.ErrorIs(t, v.Verify(header, "req-1", "12345"), ErrBadSignature)
}

func TestVerifyRejectsTamperedDataID(t *testing.T) {
	v := NewWebhookVerifier("topsecret", nil)
	header := signedHeader("topsecret", "12345", "req-1", time.Now().Unix())

	require.ErrorIs(t, v.Verify(header, "req-1", "99999"), ErrBadSignature)
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	v := NewWebhookVerifier("topsecret", nil)

	require.ErrorIs(t, v.Verify("", "req-1", "12345"), ErrMissingSignature)
	require.ErrorIs(t, v.Verify("ts=123", "req-1", "12345"), ErrMissingSignature)
	require.ErrorIs(t, v.Verify("v1=abc", "req-1", "12345"), ErrMissingSignature)
}

func TestVerifySkipsWhenNoSecretConfigured(t *testing.T) {
	v := NewWebhookVerifier("", nil)

	require.NoError(t, v.Verify("", "req-1", "12345"))
}

func TestVerifyToleratesSpacesInHeader(t *testing.T) {
	v := NewWebhookVerifier("topsecret", nil)
	ts := time.Now().Unix()
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%d;", "12345", "req-1", ts)
	m := hmac.New(sha256.New, []byte("topsecret"))
	m.Write([]byte(manifest))
	header := fmt.Sprintf("ts=%d, v1=%s", ts, hex.EncodeToString(m.Sum(nil)))

	require.NoError(t, v.Verify(header, "req-1", "12345"))
}
