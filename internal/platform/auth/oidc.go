package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssuerMetadata is the subset of an OIDC discovery document the billing
// server needs to verify bearer tokens issued by the identity provider.
type IssuerMetadata struct {
	Issuer        string `json:"issuer"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

// DiscoverIssuer fetches /.well-known/openid-configuration from the issuer
// and returns the metadata needed for JWKS-based token verification. The
// issuer claimed by the document must match the URL it was fetched from.
func DiscoverIssuer(issuerURL string) (*IssuerMetadata, error) {
	issuerURL = strings.TrimRight(issuerURL, "/")
	discoveryURL := issuerURL + "/.well-known/openid-configuration"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(discoveryURL)
	if err != nil {
		return nil, fmt.Errorf("fetch OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery endpoint returned status %d", resp.StatusCode)
	}

	var md IssuerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode OIDC discovery document: %w", err)
	}
	if md.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document missing jwks_uri")
	}
	if got := strings.TrimRight(md.Issuer, "/"); got != issuerURL {
		return nil, fmt.Errorf("discovery document issuer %q does not match %q", md.Issuer, issuerURL)
	}
	return &md, nil
}

// KeyFunc returns a jwt.Keyfunc backed by the discovered JWKS endpoint.
// Keys are cached and refetched on a miss, so rotation needs no restart.
func (md *IssuerMetadata) KeyFunc() jwt.Keyfunc {
	return jwksKeyFunc(md.JWKSURI)
}
