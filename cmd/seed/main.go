// seed inserts a demo creator and two credentials for local testing, printing the plaintext
// secrets once. Idempotent: skips everything if the demo creator already exists.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"creator-access-gate/internal/config"
	creatordomain "creator-access-gate/internal/creator/domain"
	creatorrepo "creator-access-gate/internal/creator/repository"
	"creator-access-gate/internal/credential/domain"
	credrepo "creator-access-gate/internal/credential/repository"
	credentialservice "creator-access-gate/internal/credential/service"
	"creator-access-gate/internal/db"
	"creator-access-gate/internal/logging"
	"creator-access-gate/internal/security"
)

const (
	demoCreatorID   = "6f1c2a9e-3b7d-4e51-9a0f-2d8c4b6e1a01"
	demoCreatorName = "Demo Creator"
	demoCreatorSlug = "demo-creator"
	demoMaxUses     = 5
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	defer conn.Close()

	ctx := context.Background()
	creators := creatorrepo.NewPostgresRepository(conn)
	existing, err := creators.GetByID(ctx, demoCreatorID)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed check")
	}
	if existing != nil {
		logger.Info().Str("slug", existing.Slug).Msg("seed already applied; skipping")
		return
	}

	if err := creators.Create(ctx, &creatordomain.Creator{
		ID:        demoCreatorID,
		Name:      demoCreatorName,
		Slug:      demoCreatorSlug,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		logger.Fatal().Err(err).Msg("create demo creator")
	}

	svc := credentialservice.New(credrepo.NewPostgresRepository(conn), creators, security.NewHasher(cfg.BcryptCost))
	maxUses := demoMaxUses
	inputs := []credentialservice.IssueInput{
		{ResourceID: demoCreatorID, Mode: string(domain.ModeSingleUse)},
		{ResourceID: demoCreatorID, Mode: string(domain.ModeMultiUse), MaxUses: &maxUses},
	}
	for _, in := range inputs {
		res, err := svc.Issue(ctx, in)
		if err != nil {
			logger.Fatal().Err(err).Str("mode", in.Mode).Msg("issue credential")
		}
		fmt.Printf("%-10s credential %s  secret: %s\n", in.Mode, res.Credential.ID, res.Secret)
	}

	logger.Info().Str("creator_id", demoCreatorID).Msg("seed completed")
	fmt.Printf("Creator: %s (%s)\n", demoCreatorName, demoCreatorID)
}
