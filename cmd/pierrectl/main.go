// Command pierrectl is the thin out-of-core operator CLI spec.md §6
// names: admin-token lifecycle and user creation against the same store
// and key manager pierred uses. Arguments are read by a small hand-rolled
// scanner (flagSet), not the stdlib flag package, in the teacher's
// no-CLI-framework idiom (the teacher has no CLI at all beyond its one
// main package, so this follows internal/config's own file+env-override
// style rather than reaching for a flags library that would be this
// repo's only consumer of it).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/config"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "admin-token":
		runAdminToken(os.Args[2:])
	case "user":
		runUser(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `pierrectl admin-token generate --service-name=NAME [--permissions=a,b,c] [--super-admin] [--expires-days=N]
pierrectl admin-token list [--include-inactive]
pierrectl admin-token revoke --id=UUID
pierrectl admin-token rotate --id=UUID [--expires-days=N]
pierrectl admin-token stats [--id=UUID] [--days=N]
pierrectl user create --email=EMAIL --password=PASSWORD [--tenant-id=UUID] [--tier=TIER]`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "pierrectl: "+format+"\n", args...)
	os.Exit(1)
}

// bootstrap opens the store and key manager every invocation needs.
// pierrectl is an infrequent operator tool, not a long-lived process, so
// there is no benefit to caching a connection pool across invocations.
func bootstrap(ctx context.Context) (*store.Store, *auth.KeyManager, func()) {
	cfg, err := config.Load("")
	if err != nil {
		fail("load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		fail("DATABASE_URL is required")
	}

	pool, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		fail("connect to postgres: %v", err)
	}
	st := store.New(pool)

	keys, err := auth.NewKeyManager(7 * 24 * time.Hour)
	if err != nil {
		pool.Close()
		fail("initialize signing keys: %v", err)
	}

	return st, keys, pool.Close
}

func flagSet(args []string) map[string]string {
	out := make(map[string]string)
	for _, a := range args {
		if !strings.HasPrefix(a, "--") {
			continue
		}
		a = strings.TrimPrefix(a, "--")
		if eq := strings.IndexByte(a, '='); eq >= 0 {
			out[a[:eq]] = a[eq+1:]
		} else {
			out[a] = "true"
		}
	}
	return out
}

func runAdminToken(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	sub, flags := args[0], flagSet(args[1:])
	ctx := context.Background()
	st, keys, closeFn := bootstrap(ctx)
	defer closeFn()

	switch sub {
	case "generate":
		serviceName := flags["service-name"]
		if serviceName == "" {
			fail("--service-name is required")
		}
		var perms []string
		if p := flags["permissions"]; p != "" {
			perms = strings.Split(p, ",")
		}
		isSuperAdmin := flags["super-admin"] == "true"

		var expiresAt *time.Time
		if d := flags["expires-days"]; d != "" {
			days, err := parseInt(d)
			if err != nil {
				fail("invalid --expires-days: %v", err)
			}
			t := time.Now().AddDate(0, 0, days)
			expiresAt = &t
		}

		jwt, row, err := st.CreateAdminToken(ctx, keys, serviceName, perms, isSuperAdmin, expiresAt)
		if err != nil {
			fail("generate admin token: %v", err)
		}
		printJSON(map[string]any{
			"token_id":   row.ID,
			"jwt":        jwt,
			"service":    row.ServiceName,
			"created_at": row.CreatedAt,
			"expires_at": row.ExpiresAt,
		})

	case "list":
		tokens, err := st.ListAdminTokens(ctx, flags["include-inactive"] == "true", 200)
		if err != nil {
			fail("list admin tokens: %v", err)
		}
		printJSON(tokens)

	case "revoke":
		id, err := uuid.Parse(flags["id"])
		if err != nil {
			fail("invalid --id: %v", err)
		}
		if err := st.RevokeAdminToken(ctx, id); err != nil {
			fail("revoke admin token: %v", err)
		}
		fmt.Println("revoked")

	case "rotate":
		id, err := uuid.Parse(flags["id"])
		if err != nil {
			fail("invalid --id: %v", err)
		}
		var expiresInDays *int
		if d := flags["expires-days"]; d != "" {
			days, err := parseInt(d)
			if err != nil {
				fail("invalid --expires-days: %v", err)
			}
			expiresInDays = &days
		}
		jwt, row, err := st.RotateAdminToken(ctx, keys, id, expiresInDays)
		if err != nil {
			fail("rotate admin token: %v", err)
		}
		printJSON(map[string]any{"token_id": row.ID, "jwt": jwt, "expires_at": row.ExpiresAt})

	case "stats":
		days := 7
		if d := flags["days"]; d != "" {
			n, err := parseInt(d)
			if err != nil {
				fail("invalid --days: %v", err)
			}
			days = n
		}
		stats, err := st.UsageStatsForPrincipal(ctx, flags["id"], days)
		if err != nil {
			fail("fetch usage stats: %v", err)
		}
		printJSON(stats)

	default:
		usage()
		os.Exit(2)
	}
}

func runUser(args []string) {
	if len(args) < 1 || args[0] != "create" {
		usage()
		os.Exit(2)
	}
	flags := flagSet(args[1:])
	email := flags["email"]
	password := flags["password"]
	if email == "" || password == "" {
		fail("--email and --password are required")
	}

	ctx := context.Background()
	st, _, closeFn := bootstrap(ctx)
	defer closeFn()

	hash, err := auth.HashPassword(password)
	if err != nil {
		fail("hash password: %v", err)
	}

	tier := flags["tier"]
	if tier == "" {
		tier = "Starter"
	}

	var tenantID *uuid.UUID
	if t := flags["tenant-id"]; t != "" {
		id, err := uuid.Parse(t)
		if err != nil {
			fail("invalid --tenant-id: %v", err)
		}
		tenantID = &id
	}

	u := &store.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Tier:         tier,
		TenantID:     tenantID,
		Status:       "Active",
		AuthProvider: "password",
	}
	if err := st.CreateUser(ctx, u); err != nil {
		fail("create user: %v", err)
	}
	printJSON(map[string]any{"user_id": u.ID, "email": u.Email, "created_at": u.CreatedAt})
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
