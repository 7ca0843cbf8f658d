package twofactor_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/twofactor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testKey = domain.SecretString("test-key-9f2c")

// gateway records the last request and replies with a fixed body.
type gateway struct {
	srv    *httptest.Server
	status int
	body   string

	mu   sync.Mutex
	last *http.Request
	form map[string]string
}

func newGateway(t *testing.T, status int, body string) *gateway {
	t.Helper()
	g := &gateway{status: status, body: body}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.last = r.Clone(context.Background())
		if r.Method == http.MethodPost && r.ParseForm() == nil {
			g.form = map[string]string{
				"From": r.PostForm.Get("From"),
				"To":   r.PostForm.Get("To"),
				"Msg":  r.PostForm.Get("Msg"),
			}
		}
		g.mu.Unlock()
		w.WriteHeader(g.status)
		_, _ = io.WriteString(w, g.body)
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *gateway) request() (*http.Request, map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.form
}

func (g *gateway) client() *twofactor.Client {
	return twofactor.NewClient(twofactor.Config{BaseURL: g.srv.URL + "/API/V1/"})
}

func TestSendTemplateOTP(t *testing.T) {
	g := newGateway(t, http.StatusOK, `{"Status":"Success","Details":"a1b2c3"}`)

	resp, err := g.client().SendTemplateOTP(context.Background(), testKey, "919876543210", "4821", "OTP1", "Asha")

	require.NoError(t, err)
	last, _ := g.request()
	assert.True(t, resp.OK())
	assert.Equal(t, "a1b2c3", resp.Details)
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/API/V1/test-key-9f2c/SMS/919876543210/4821/OTP1", last.URL.Path)
	assert.Equal(t, "Asha", last.URL.Query().Get("var1"))
}

func TestSendSimpleOTP(t *testing.T) {
	g := newGateway(t, http.StatusOK, `{"Status":"Success","Details":"sess"}`)

	resp, err := g.client().SendSimpleOTP(context.Background(), testKey, "919876543210", "4821")

	require.NoError(t, err)
	last, _ := g.request()
	assert.True(t, resp.OK())
	assert.Equal(t, "/API/V1/test-key-9f2c/SMS/919876543210/4821", last.URL.Path)
	assert.Empty(t, last.URL.RawQuery)
}

func TestSendTransactional(t *testing.T) {
	g := newGateway(t, http.StatusOK, `{"Status":"Success","Details":"msg-1"}`)

	resp, err := g.client().SendTransactional(context.Background(), testKey, "TSPENT", "919876543210", "Dear Asha, Your OTP for verification is 4821.")

	require.NoError(t, err)
	last, form := g.request()
	assert.True(t, resp.OK())
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/API/V1/test-key-9f2c/ADDON_SERVICES/SEND/TSMS", last.URL.Path)
	assert.Equal(t, "TSPENT", form["From"])
	assert.Equal(t, "919876543210", form["To"])
	assert.Equal(t, "Dear Asha, Your OTP for verification is 4821.", form["Msg"])
}

func TestSendPromotional(t *testing.T) {
	g := newGateway(t, http.StatusOK, `{"Status":"Success","Details":"msg-2"}`)

	_, err := g.client().SendPromotional(context.Background(), testKey, "ZONIXT", "919876543210", "Auction starts at 10:00 AM")

	require.NoError(t, err)
	last, form := g.request()
	assert.Equal(t, "/API/V1/test-key-9f2c/ADDON_SERVICES/SEND/PSMS", last.URL.Path)
	assert.Equal(t, "ZONIXT", form["From"])
}

func TestSendAutogenTemplate(t *testing.T) {
	g := newGateway(t, http.StatusOK, `{"Status":"Success","Details":"msg-3"}`)

	vars := []string{"Asha", "Steel Tender", "", "10:00 AM", "Room 4", "ignored"}
	_, err := g.client().SendAutogenTemplate(context.Background(), testKey, "919876543210", "ZONIXT", vars)

	require.NoError(t, err)
	last, _ := g.request()
	q := last.URL.Query()
	assert.Equal(t, "/API/V1/test-key-9f2c/SMS/919876543210/AUTOGEN2", last.URL.Path)
	assert.Equal(t, "ZONIXT", q.Get("TemplateName"))
	assert.Equal(t, "Asha", q.Get("VAR1"))
	assert.Equal(t, "Steel Tender", q.Get("VAR2"))
	assert.False(t, q.Has("VAR3"), "empty variables are omitted")
	assert.Equal(t, "Room 4", q.Get("VAR5"))
	assert.False(t, q.Has("VAR6"))
}

func TestBalance(t *testing.T) {
	t.Run("string details", func(t *testing.T) {
		g := newGateway(t, http.StatusOK, `{"Status":"Success","Details":"1520"}`)

		resp, err := g.client().Balance(context.Background(), testKey, domain.BalancePromotional)

		require.NoError(t, err)
		last, _ := g.request()
		assert.Equal(t, "1520", resp.Details)
		assert.Equal(t, "/API/V1/test-key-9f2c/BALANCE/PSMS", last.URL.Path)
	})

	t.Run("numeric details", func(t *testing.T) {
		g := newGateway(t, http.StatusOK, `{"Status":"Success","Details":87}`)

		resp, err := g.client().Balance(context.Background(), testKey, domain.BalanceTransactional)

		require.NoError(t, err)
		last, _ := g.request()
		assert.Equal(t, "87", resp.Details)
		assert.Equal(t, "/API/V1/test-key-9f2c/BALANCE/SMS", last.URL.Path)
	})
}

func TestGatewayRejection(t *testing.T) {
	t.Run("error status in body is a response, not an error", func(t *testing.T) {
		g := newGateway(t, http.StatusOK, `{"Status":"Error","Details":"Template not approved"}`)

		resp, err := g.client().SendTemplateOTP(context.Background(), testKey, "919876543210", "4821", "OTP1")

		require.NoError(t, err)
		assert.False(t, resp.OK())
		assert.Equal(t, "Template not approved", resp.Details)
	})

	t.Run("non-2xx with envelope is still a response", func(t *testing.T) {
		g := newGateway(t, http.StatusBadRequest, `{"Status":"Error","Details":"Invalid API Key"}`)

		resp, err := g.client().SendSimpleOTP(context.Background(), testKey, "919876543210", "4821")

		require.NoError(t, err)
		assert.False(t, resp.OK())
		assert.Equal(t, "Invalid API Key", resp.Details)
	})

	t.Run("unreadable reply is an error", func(t *testing.T) {
		g := newGateway(t, http.StatusBadGateway, `<html>bad gateway</html>`)

		_, err := g.client().SendSimpleOTP(context.Background(), testKey, "919876543210", "4821")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrGatewayRejected)
	})
}

func TestTransportFailure(t *testing.T) {
	t.Run("timeout is a transport error without the key", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		t.Cleanup(func() {
			close(release)
			srv.Close()
		})

		c := twofactor.NewClient(twofactor.Config{BaseURL: srv.URL, OTPTimeout: 50 * time.Millisecond})
		start := time.Now()

		_, err := c.SendSimpleOTP(context.Background(), testKey, "919876543210", "4821")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrGatewayTransport)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotContains(t, err.Error(), testKey.Expose())
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := twofactor.NewClient(twofactor.Config{BaseURL: url})

		_, err := c.Balance(context.Background(), testKey, domain.BalancePromotional)

		assert.ErrorIs(t, err, domain.ErrGatewayTransport)
	})
}
