package zklogin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/layer-3/dealguard/core"
)

// SaltService asks a salt issuance service for the user's salt and the
// address derived from it
type SaltService struct {
	endpoint string
	client   *http.Client
}

type saltRequest struct {
	Token string `json:"token"`
}

type saltResponse struct {
	Salt    string `json:"salt"`
	Address string `json:"address"`
}

// NewSaltService creates a deriver backed by the service at endpoint
func NewSaltService(endpoint string, client *http.Client) *SaltService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SaltService{endpoint: endpoint, client: client}
}

// Derive posts the identity token and returns the derived address and salt
func (s *SaltService) Derive(ctx context.Context, idToken string, claims core.IDClaims) (core.Derivation, error) {
	body, err := json.Marshal(saltRequest{Token: idToken})
	if err != nil {
		return core.Derivation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return core.Derivation{}, fmt.Errorf("%w: %v", core.ErrDerivationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return core.Derivation{}, fmt.Errorf("%w: %v", core.ErrDerivationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Derivation{}, fmt.Errorf("%w: salt service returned %d", core.ErrDerivationFailed, resp.StatusCode)
	}

	var out saltResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Derivation{}, fmt.Errorf("%w: %v", core.ErrDerivationFailed, err)
	}
	if out.Salt == "" || !strings.HasPrefix(out.Address, "0x") {
		return core.Derivation{}, fmt.Errorf("%w: incomplete response for %s", core.ErrDerivationFailed, claims.Subject)
	}

	return core.Derivation{Address: out.Address, Salt: out.Salt}, nil
}
