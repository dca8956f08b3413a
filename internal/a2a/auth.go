// Package a2a implements the agent-to-agent half of C8: a client-credentials
// token endpoint and a JSON-RPC dispatcher for tool calls and the Task
// lifecycle, sharing the tool registry and tool-catalog machinery with the
// MCP dispatcher in internal/mcp. Grounded on the same teacher dispatcher
// shape as mcp/server.go, generalized to the A2AClient principal kind.
package a2a

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return h[len(prefix):]
}

// ResolveA2APrincipal authenticates an A2A request by its opaque session
// access token (the value minted by oauth2broker.ServerBroker.Token), per
// spec §4.8 "Authentication via client-credentials JWT obtained from
// POST /a2a/auth". A client_credentials session (no UserID) acts on behalf
// of the tenant that owns the registered OAuth2Client.
func ResolveA2APrincipal(ctx context.Context, st *store.Store, r *http.Request) (*auth.Principal, error) {
	tok := bearerToken(r)
	if tok == "" {
		return nil, pierreerr.New(pierreerr.KindUnauthenticated, "missing credential")
	}
	sessionID, err := uuid.Parse(tok)
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "malformed access token")
	}

	sess, err := st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_ = st.TouchSession(ctx, sess.ID)

	var ownerID uuid.UUID
	if sess.UserID != nil {
		ownerID = *sess.UserID
	} else {
		client, err := st.GetOAuth2Client(ctx, sess.ClientID)
		if err != nil {
			return nil, err
		}
		ownerID = client.OwnerUserID
	}

	owner, err := st.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var tenantID string
	if owner.TenantID != nil {
		tenantID = owner.TenantID.String()
	}

	return &auth.Principal{
		ID:       sess.ClientID,
		Kind:     auth.PrincipalA2AClient,
		UserID:   owner.ID.String(),
		TenantID: tenantID,
		Tier:     owner.Tier,
	}, nil
}
