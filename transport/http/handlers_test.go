package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/layer-3/dealguard/adapters/events"
	"github.com/layer-3/dealguard/adapters/idtoken"
	"github.com/layer-3/dealguard/adapters/store"
	"github.com/layer-3/dealguard/adapters/wallet"
	"github.com/layer-3/dealguard/adapters/zklogin"
	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/ports"
	"github.com/layer-3/dealguard/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEvents struct {
	events []core.ChainEvent
}

func (s staticEvents) QueryEvents(context.Context, ports.EventQuery) ([]core.ChainEvent, error) {
	return s.events, nil
}

type staticBalance struct {
	mist string
	err  error
}

func (b staticBalance) Balance(context.Context, string) (string, error) {
	return b.mist, b.err
}

type fixture struct {
	router  *gin.Engine
	store   *store.MemoryStore
	auth    *service.AuthService
	reducer *service.EventReducer
	stream  *Stream
}

func newFixture(t *testing.T, clientID string, balances ports.BalanceSource) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	salt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"salt":"129390038577185583942388216820280642146","address":"0xAB12"}`))
	}))
	t.Cleanup(salt.Close)

	payload, err := json.Marshal(core.EscrowCreated{EscrowID: "0xEE1", Buyer: "0xAB12", Seller: "0xCD34", Amount: "1000000000"})
	require.NoError(t, err)
	source := staticEvents{events: []core.ChainEvent{{
		ID:          core.EventID{TxDigest: "D1"},
		Type:        "0x1::escrow::EscrowCreated",
		TimestampMs: 1700000000000,
		ParsedJSON:  payload,
	}}}

	logger := zerolog.Nop()
	memory := store.NewMemoryStore()
	connector := wallet.NewConnector()
	auth := service.NewAuthService(service.AuthDeps{
		Sessions: memory,
		Attempts: memory,
		Wallet:   connector,
		Provider: zklogin.NewProvider(zklogin.Config{
			ClientID:    clientID,
			RedirectURI: "http://localhost:8080" + zklogin.CallbackPath,
		}),
		Decoder:   idtoken.NewDecoder(),
		Deriver:   zklogin.NewSaltService(salt.URL, salt.Client()),
		Publisher: events.NopPublisher{},
		Logger:    logger,
	})

	reg := prometheus.NewRegistry()
	reducer := service.NewEventReducer(source, service.ReducerConfig{
		PackageID: "0x1",
		Metrics:   service.NewMetrics(reg),
		Logger:    logger,
		Location:  time.UTC,
	})
	stream := NewStream(reducer.Snapshot, auth.Identity, logger)

	router := SetupRouter(Deps{
		Auth:     auth,
		Reducer:  reducer,
		Wallet:   connector,
		Balances: balances,
		Stream:   stream,
		Gatherer: reg,
		Logger:   logger,
	})

	return &fixture{router: router, store: memory, auth: auth, reducer: reducer, stream: stream}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func signedIDToken(t *testing.T, nonce string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, idtoken.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "1234567890",
			Audience: jwt.ClaimStrings{"client"},
		},
		Nonce: nonce,
	}).SignedString([]byte("provider-key"))
	require.NoError(t, err)
	return token
}

func TestLogin_Redirect(t *testing.T) {
	f := newFixture(t, "client", nil)

	w := f.do(t, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", loc.Host)
	assert.Equal(t, "client", loc.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:8080/auth/callback", loc.Query().Get("redirect_uri"))

	attempt, err := f.store.LoadAttempt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, attempt.Nonce, loc.Query().Get("nonce"))
}

func TestLogin_NotConfigured(t *testing.T) {
	f := newFixture(t, "", nil)

	w := f.do(t, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCallback_CompletesLogin(t *testing.T) {
	f := newFixture(t, "client", nil)
	require.Equal(t, http.StatusFound, f.do(t, http.MethodGet, "/auth/login", "").Code)

	attempt, err := f.store.LoadAttempt(context.Background())
	require.NoError(t, err)

	body := `{"fragment":"#id_token=` + signedIDToken(t, attempt.Nonce) + `&authuser=0"}`
	w := f.do(t, http.MethodPost, "/auth/callback", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Identity identityResponse `json:"identity"`
		Redirect string           `json:"redirect"`
	}
	decode(t, w, &resp)
	assert.Equal(t, identityResponse{Address: "0xAB12", Source: "zk", Authenticated: true}, resp.Identity)
	assert.Equal(t, Dashboard, resp.Redirect)

	rec, err := f.store.LoadSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "129390038577185583942388216820280642146", rec.Salt)

	_, err = f.store.LoadAttempt(context.Background())
	assert.Error(t, err)
}

func TestCallback_Errors(t *testing.T) {
	f := newFixture(t, "client", nil)

	w := f.do(t, http.MethodPost, "/auth/callback", `{"fragment":"#authuser=0"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// no login attempt in this session
	w = f.do(t, http.MethodPost, "/auth/callback", `{"id_token":"`+signedIDToken(t, "")+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	decode(t, w, &resp)
	assert.Equal(t, core.ErrMissingLoginAttempt.Error(), resp["error"])

	w = f.do(t, http.MethodPost, "/auth/callback", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_RequiresIdentity(t *testing.T) {
	f := newFixture(t, "client", nil)

	for _, path := range []string{"/api/escrows", "/api/logs", "/api/stats", "/api/balance", "/api/stream"} {
		w := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := f.do(t, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var me identityResponse
	decode(t, w, &me)
	assert.Equal(t, identityResponse{Source: "none"}, me)
}

func TestWallet_ConnectAndDashboard(t *testing.T) {
	f := newFixture(t, "client", staticBalance{mist: "2500000000"})

	w := f.do(t, http.MethodPost, "/wallet/connect", `{"address":"not-an-address"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/wallet/connect", `{"address":"0xAB12"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var id identityResponse
	decode(t, w, &id)
	assert.Equal(t, identityResponse{Address: "0xAB12", Source: "wallet", Authenticated: true}, id)

	_, err := f.reducer.Poll(context.Background(), "0xAB12")
	require.NoError(t, err)

	w = f.do(t, http.MethodGet, "/api/escrows?role=buyer", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	decode(t, w, &history)
	require.Len(t, history.Transactions, 1)
	assert.Equal(t, "1 SUI", history.Transactions[0].Amount)

	w = f.do(t, http.MethodGet, "/api/escrows?role=seller", "")
	decode(t, w, &history)
	assert.Empty(t, history.Transactions)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/escrows?role=arbiter", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/escrows?status=LOST", "").Code)

	w = f.do(t, http.MethodGet, "/api/logs", "")
	var logs struct {
		Logs []core.LogMessage `json:"logs"`
	}
	decode(t, w, &logs)
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, "You created escrow 0xEE1 for 1 SUI", logs.Logs[0].Content)

	w = f.do(t, http.MethodGet, "/api/stats", "")
	var stats service.Stats
	decode(t, w, &stats)
	assert.Equal(t, service.Stats{TotalLocked: "1", ActiveDeals: 1}, stats)

	w = f.do(t, http.MethodGet, "/api/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	var bal map[string]string
	decode(t, w, &bal)
	assert.Equal(t, "2.50", bal["balance"])

	w = f.do(t, http.MethodPost, "/wallet/disconnect", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &id)
	assert.False(t, id.Authenticated)
}

func TestDashboard_HidesRecordsOfOtherAddress(t *testing.T) {
	f := newFixture(t, "client", nil)
	_, err := f.reducer.Poll(context.Background(), "0xAB12")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/wallet/connect", `{"address":"0x9999"}`).Code)

	w := f.do(t, http.MethodGet, "/api/escrows", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	decode(t, w, &history)
	assert.Empty(t, history.Transactions)

	w = f.do(t, http.MethodGet, "/api/logs", "")
	var logs struct {
		Logs []core.LogMessage `json:"logs"`
	}
	decode(t, w, &logs)
	assert.Empty(t, logs.Logs)

	w = f.do(t, http.MethodGet, "/api/stats", "")
	var stats service.Stats
	decode(t, w, &stats)
	assert.Equal(t, service.Stats{TotalLocked: "0"}, stats)
}

func TestBalance_SourceNotReady(t *testing.T) {
	f := newFixture(t, "client", staticBalance{err: core.ErrSourceNotReady})
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/wallet/connect", `{"address":"0xAB12"}`).Code)

	w := f.do(t, http.MethodGet, "/api/balance", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, "client", nil)
	require.NoError(t, f.auth.LoginWithToken(context.Background(), "0xAB12", "jwt", "salt"))

	w := f.do(t, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	decode(t, w, &resp)
	assert.Equal(t, Landing, resp["redirect"])

	assert.False(t, f.auth.Identity().IsAuthenticated())
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/escrows", "").Code)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, "client", nil)
	_, err := f.reducer.Poll(context.Background(), "0xAB12")
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dealguard_events_polls_total")
}

func TestStream(t *testing.T) {
	f := newFixture(t, "client", nil)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/wallet/connect", `{"address":"0xAB12"}`).Code)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg struct {
		Type string          `json:"type"`
		Body json.RawMessage `json:"body"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)

	f.stream.NotifyIncoming(core.Transaction{FullID: "0xEE2", Role: core.RoleSeller})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "incoming", msg.Type)

	var tx core.Transaction
	require.NoError(t, json.Unmarshal(msg.Body, &tx))
	assert.Equal(t, "0xEE2", tx.FullID)
}
