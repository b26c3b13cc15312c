package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/dealguard/adapters/sui"
	"github.com/layer-3/dealguard/adapters/wallet"
	"github.com/layer-3/dealguard/adapters/zklogin"
	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/ports"
	"github.com/layer-3/dealguard/service"
	"github.com/rs/zerolog"
)

// Landing is where the UI goes after logout
const Landing = "/"

// Dashboard is where the UI goes after a completed login
const Dashboard = "/dashboard"

// Handlers contains the HTTP handlers of the companion service
type Handlers struct {
	authService *service.AuthService
	reducer     *service.EventReducer
	wallet      *wallet.Connector
	balances    ports.BalanceSource
	log         zerolog.Logger
}

type identityResponse struct {
	Address       string `json:"address"`
	Source        string `json:"source"`
	Authenticated bool   `json:"authenticated"`
}

// NewHandlers creates new handlers
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		authService: deps.Auth,
		reducer:     deps.Reducer,
		wallet:      deps.Wallet,
		balances:    deps.Balances,
		log:         deps.Logger.With().Str("component", "http").Logger(),
	}
}

func toIdentityResponse(id core.Identity) identityResponse {
	return identityResponse{
		Address:       id.Address,
		Source:        string(id.Kind()),
		Authenticated: id.IsAuthenticated(),
	}
}

// Login starts a token login and redirects to the identity provider
func (h *Handlers) Login(c *gin.Context) {
	authURL, err := h.authService.BeginLogin(c.Request.Context())
	if err != nil {
		if errors.Is(err, core.ErrMissingClientID) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Login is not configured"})
			return
		}
		h.log.Error().Err(err).Msg("failed to begin login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes a token login from the provider redirect. The UI posts
// either the raw URL fragment or the extracted id_token.
func (h *Handlers) Callback(c *gin.Context) {
	var req struct {
		Fragment string `json:"fragment"`
		IDToken  string `json:"id_token"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token := req.IDToken
	if token == "" {
		var err error
		if token, err = zklogin.TokenFromFragment(req.Fragment); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	id, err := h.authService.CompleteLogin(c.Request.Context(), token)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Login failed"

		switch {
		case errors.Is(err, core.ErrMissingIDToken),
			errors.Is(err, core.ErrInvalidIDToken),
			errors.Is(err, core.ErrMissingLoginAttempt):
			statusCode = http.StatusBadRequest
			errorMsg = err.Error()
		case errors.Is(err, core.ErrDerivationFailed):
			statusCode = http.StatusBadGateway
			errorMsg = "Address derivation failed"
		}

		h.log.Warn().Err(err).Msg("login failed")
		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity": toIdentityResponse(id),
		"redirect": Dashboard,
	})
}

// Logout ends the session. The identity is cleared even when cleanup fails.
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Msg("logout cleanup incomplete")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out", "redirect": Landing})
}

// ConnectWallet records the account of the browser wallet
func (h *Handlers) ConnectWallet(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !sui.IsValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return
	}

	h.wallet.Connect(req.Address)
	id := h.authService.Reconcile(c.Request.Context())
	c.JSON(http.StatusOK, toIdentityResponse(id))
}

// DisconnectWallet records that the browser wallet went away
func (h *Handlers) DisconnectWallet(c *gin.Context) {
	_ = h.wallet.Disconnect(c.Request.Context())
	id := h.authService.Reconcile(c.Request.Context())
	c.JSON(http.StatusOK, toIdentityResponse(id))
}

// Me returns the current identity
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, toIdentityResponse(h.authService.Identity()))
}

// Escrows returns the transaction history, optionally filtered by role,
// status and a search string
func (h *Handlers) Escrows(c *gin.Context) {
	filter := service.Filter{
		Role:   core.Role(c.Query("role")),
		Status: core.Status(c.Query("status")),
		Search: c.Query("q"),
	}

	switch filter.Role {
	case "", core.RoleBuyer, core.RoleSeller:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}
	switch filter.Status {
	case "", core.StatusFunded, core.StatusActive, core.StatusCompleted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	snap := h.snapshot(c)
	c.JSON(http.StatusOK, gin.H{
		"transactions": service.History(snap, filter),
		"updatedAt":    snap.UpdatedAt,
	})
}

// Logs returns the activity log
func (h *Handlers) Logs(c *gin.Context) {
	logs := h.snapshot(c).Logs
	if logs == nil {
		logs = []core.LogMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// Stats returns the dashboard totals
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, service.ComputeStats(h.snapshot(c)))
}

func (h *Handlers) snapshot(c *gin.Context) core.Snapshot {
	return snapshotFor(h.reducer.Snapshot(), identityFrom(c).Address)
}

// snapshotFor returns snap when it was published for address and an empty
// snapshot otherwise
func snapshotFor(snap core.Snapshot, address string) core.Snapshot {
	if !core.SameAddress(snap.Address, address) {
		return core.Snapshot{Address: address}
	}
	return snap
}

// Balance returns the native coin balance of the signed in address
func (h *Handlers) Balance(c *gin.Context) {
	id := identityFrom(c)

	if h.balances == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chain node is not reachable"})
		return
	}

	raw, err := h.balances.Balance(c.Request.Context(), id.Address)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSourceNotReady):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chain node is not reachable"})
		case errors.Is(err, core.ErrInvalidAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		default:
			h.log.Warn().Err(err).Msg("failed to fetch balance")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch balance"})
		}
		return
	}

	formatted, err := core.FormatBalance(raw)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Invalid balance from chain node"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": id.Address,
		"balance": formatted,
		"mist":    raw,
	})
}
