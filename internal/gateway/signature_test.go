package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/pkg/errs"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	header := Sign("app-secret", body)
	require.NoError(t, VerifySignature("app-secret", body, header))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	header := Sign("app-secret", body)

	// Flip one bit of the body.
	tampered := append([]byte(nil), body...)
	tampered[0] ^= 0x01
	err := VerifySignature("app-secret", tampered, header)
	require.True(t, errors.Is(err, errs.ErrSignatureInvalid))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`payload`)
	header := Sign("app-secret", body)
	err := VerifySignature("other-secret", body, header)
	require.True(t, errors.Is(err, errs.ErrSignatureInvalid))
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "sha1=abcd", "sha256=zzzz", "abcdef"} {
		err := VerifySignature("app-secret", []byte("body"), header)
		require.True(t, errors.Is(err, errs.ErrSignatureInvalid), "header: %q", header)
	}
}
