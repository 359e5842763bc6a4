// Command tenantctl provisions tenants and mints their API tokens.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/angelmondragon/kudibooks-backend/internal/quota"
	pkgAuth "github.com/angelmondragon/kudibooks-backend/pkg/auth"
	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/db"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

const usage = `usage: tenantctl <command> [flags]

commands:
  create    -name <business> [-email <contact>] [-plan free|starter|growth|enterprise]
  token     -tenant <id> [-user <id>] [-role owner|admin|staff]
  set-plan  -tenant <id> -plan <plan>`

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "tenantctl",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Output:      os.Stderr,
	})

	if err := run(context.Background(), cfg, logg, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tenantctl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "token":
		return mintToken(cfg.JWT, args, out)
	case "create", "set-plan":
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	svc, err := quota.NewService(quota.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	if cmd == "create" {
		return createTenant(ctx, svc, args, out)
	}
	return setPlan(ctx, svc, args, out)
}

type tenantStore interface {
	OpenTenant(ctx context.Context, name, contactEmail string, plan enums.Plan) (*models.Tenant, error)
	SetPlan(ctx context.Context, tenantID uuid.UUID, plan enums.Plan) error
}

func createTenant(ctx context.Context, svc tenantStore, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "business name")
	email := fs.String("email", "", "contact email")
	plan := fs.String("plan", string(enums.PlanFree), "subscription plan")
	if err := fs.Parse(args); err != nil {
		return err
	}
	parsed, err := enums.ParsePlan(*plan)
	if err != nil {
		return err
	}
	tenant, err := svc.OpenTenant(ctx, *name, *email, parsed)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tenant %s created on %s plan\n", tenant.ID, tenant.Plan)
	return nil
}

func setPlan(ctx context.Context, svc tenantStore, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("set-plan", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant id")
	plan := fs.String("plan", "", "subscription plan")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenantID, err := uuid.Parse(*tenant)
	if err != nil {
		return fmt.Errorf("invalid -tenant: %w", err)
	}
	parsed, err := enums.ParsePlan(*plan)
	if err != nil {
		return err
	}
	if err := svc.SetPlan(ctx, tenantID, parsed); err != nil {
		return err
	}
	fmt.Fprintf(out, "tenant %s moved to %s plan\n", tenantID, parsed)
	return nil
}

func mintToken(cfg config.JWTConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant id")
	user := fs.String("user", "", "user id (random when empty)")
	role := fs.String("role", string(enums.MemberRoleOwner), "member role")
	ttl := fs.Duration("ttl", 0, "token lifetime (defaults to the configured expiration)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenantID, err := uuid.Parse(*tenant)
	if err != nil {
		return fmt.Errorf("invalid -tenant: %w", err)
	}
	userID := uuid.New()
	if *user != "" {
		if userID, err = uuid.Parse(*user); err != nil {
			return fmt.Errorf("invalid -user: %w", err)
		}
	}
	memberRole, err := enums.ParseMemberRole(*role)
	if err != nil {
		return err
	}
	if tenantID == uuid.Nil {
		return errors.New("tenant id must not be nil")
	}

	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		TenantID: tenantID,
		UserID:   userID,
		Role:     memberRole,
		JTI:      uuid.NewString(),
		TTL:      *ttl,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
