package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignMatchesPrehashContract(t *testing.T) {
	secret := []byte("top-secret")
	body := []byte(`{"size":"0.01"}`)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("1700000000POST/orders" + string(body)))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	got := Sign(secret, 1700000000, "POST", "/orders", body)
	require.Equal(t, want, got)
}

func TestSignUppercasesMethod(t *testing.T) {
	secret := []byte("top-secret")
	require.Equal(t,
		Sign(secret, 1700000000, "GET", "/accounts", nil),
		Sign(secret, 1700000000, "get", "/accounts", nil),
	)
}

func TestSignEmptyBodyEqualsNoBody(t *testing.T) {
	secret := []byte("top-secret")
	require.Equal(t,
		Sign(secret, 1700000000, "GET", "/accounts", nil),
		Sign(secret, 1700000000, "GET", "/accounts", []byte{}),
	)
}

func TestSignIsSensitiveToEveryInput(t *testing.T) {
	secret := []byte("top-secret")
	base := Sign(secret, 1700000000, "GET", "/accounts", nil)

	require.NotEqual(t, base, Sign([]byte("other-secret"), 1700000000, "GET", "/accounts", nil))
	require.NotEqual(t, base, Sign(secret, 1700000001, "GET", "/accounts", nil))
	require.NotEqual(t, base, Sign(secret, 1700000000, "DELETE", "/accounts", nil))
	require.NotEqual(t, base, Sign(secret, 1700000000, "GET", "/orders", nil))
	require.NotEqual(t, base, Sign(secret, 1700000000, "GET", "/accounts", []byte("x")))
}
