package oauth2broker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRegistrationAcceptsHTTPS(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs: []string{"https://agent.example.com/callback"},
	}, nil, nil)
	require.NoError(t, err)
}

func TestValidateRegistrationAcceptsLocalhostHTTP(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs: []string{"http://localhost:8787/callback", "http://127.0.0.1:9000/cb"},
	}, nil, nil)
	require.NoError(t, err)
}

func TestValidateRegistrationAcceptsOOBURN(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs: []string{"urn:ietf:wg:oauth:2.0:oob"},
	}, nil, nil)
	require.NoError(t, err)
}

func TestValidateRegistrationRejectsPlainHTTPNonLocal(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs: []string{"http://evil.example.com/callback"},
	}, nil, nil)
	require.Error(t, err)
}

func TestValidateRegistrationRejectsFragment(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs: []string{"https://agent.example.com/callback#frag"},
	}, nil, nil)
	require.Error(t, err)
}

func TestValidateRegistrationRejectsWildcardHost(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs: []string{"https://*.example.com/callback"},
	}, nil, nil)
	require.Error(t, err)
}

func TestValidateRegistrationRejectsUnsupportedGrantType(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs: []string{"https://agent.example.com/callback"},
		GrantTypes:   []string{"implicit"},
	}, nil, nil)
	require.Error(t, err)
}

func TestValidateRegistrationRejectsUnsupportedResponseType(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{
		RedirectURIs:  []string{"https://agent.example.com/callback"},
		ResponseTypes: []string{"token"},
	}, nil, nil)
	require.Error(t, err)
}

func TestValidateRegistrationRequiresAtLeastOneRedirectURI(t *testing.T) {
	err := ValidateRegistration(RegistrationRequest{}, nil, nil)
	require.Error(t, err)
}
