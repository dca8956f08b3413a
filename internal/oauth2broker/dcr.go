package oauth2broker

import (
	"net/url"
	"strings"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// defaultGrantTypes and defaultResponseTypes are the configured sets spec
// §4.4 names; a deployment may narrow but never widen them.
var (
	defaultGrantTypes    = []string{"authorization_code", "client_credentials", "refresh_token"}
	defaultResponseTypes = []string{"code"}
)

// RegistrationRequest mirrors the dynamic-client-registration request body.
type RegistrationRequest struct {
	RedirectURIs  []string
	ClientName    string
	GrantTypes    []string
	ResponseTypes []string
	Scope         string
}

// ValidateRegistration checks a registration request against spec §4.4's
// redirect-URI and grant/response-type rules, grounded on the teacher's
// validateOrigin allowlist-check idiom (explicit allow, reject by default).
func ValidateRegistration(req RegistrationRequest, allowedGrantTypes, allowedResponseTypes []string) error {
	if len(req.RedirectURIs) == 0 {
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_redirect_uri: at least one redirect_uri is required")
	}
	for _, raw := range req.RedirectURIs {
		if err := validateRedirectURI(raw); err != nil {
			return err
		}
	}

	if len(allowedGrantTypes) == 0 {
		allowedGrantTypes = defaultGrantTypes
	}
	if len(allowedResponseTypes) == 0 {
		allowedResponseTypes = defaultResponseTypes
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code"}
	}
	for _, gt := range grantTypes {
		if !contains(allowedGrantTypes, gt) {
			return pierreerr.New(pierreerr.KindInvalidRequest, "unsupported_grant_type: "+gt)
		}
	}

	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}
	for _, rt := range responseTypes {
		if !contains(allowedResponseTypes, rt) {
			return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: unsupported response_type "+rt)
		}
	}

	return nil
}

// validateRedirectURI enforces spec §4.4: https, or http to
// localhost/127.0.0.1/::1, or the OOB URN; no fragment; no wildcards.
func validateRedirectURI(raw string) error {
	if raw == "urn:ietf:wg:oauth:2.0:oob" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_redirect_uri: malformed redirect_uri")
	}
	if u.Fragment != "" {
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_redirect_uri: redirect_uri must not contain a fragment")
	}
	if strings.Contains(u.Host, "*") || strings.Contains(u.Path, "*") {
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_redirect_uri: redirect_uri must not contain a wildcard")
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return nil
		}
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_redirect_uri: http redirect_uri must target localhost")
	default:
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_redirect_uri: redirect_uri scheme must be https")
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
