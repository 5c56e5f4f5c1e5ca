package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSiteverify(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		switch r.PostForm.Get("response") {
		case "good":
			_, _ = w.Write([]byte(`{"success":true,"hostname":"example.com"}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecaptchaVerify(t *testing.T) {
	srv := newSiteverify(t)
	v := NewRecaptcha("shh").WithVerifyURL(srv.URL)

	ok, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Verify(context.Background(), "broken")
	assert.Error(t, err)
}

func TestRecaptchaEmptyTokenSkipsNetwork(t *testing.T) {
	ok, err := NewRecaptcha("shh").WithVerifyURL("http://127.0.0.1:1").Verify(context.Background(), " ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecaptchaRequiresSecret(t *testing.T) {
	_, err := NewRecaptcha("").Verify(context.Background(), "tok")
	assert.Error(t, err)
}
