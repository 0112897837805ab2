package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/arjenou/5000React/internal/auth"
	"github.com/arjenou/5000React/internal/bootstrap"
	"github.com/arjenou/5000React/internal/config"
	"github.com/arjenou/5000React/internal/projects"
	"github.com/arjenou/5000React/internal/users"
	"github.com/arjenou/5000React/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer stores.Close(context.Background())

	if cfg.SeedAdminPassword == "" {
		log.Printf("seed admin: ADMIN_PASSWORD missing, skipping %s", cfg.SeedAdminUser)
	} else if err := seedAdminUser(ctx, stores.Users, cfg.SeedAdminUser, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		log.Fatalf("seed admin error for %s: %v", cfg.SeedAdminUser, err)
	}

	if cfg.SeedProjects {
		svc := projects.NewService(stores.Projects, validation.New(), nil, 0, logger)
		for _, req := range sampleProjects() {
			taken, err := stores.Projects.SlugExists(ctx, req.Slug, "")
			if err != nil {
				log.Fatalf("seed project error for %s: %v", req.Slug, err)
			}
			if taken {
				log.Printf("seed project: %s exists, skipping", req.Slug)
				continue
			}
			if _, err := svc.Create(ctx, req); err != nil {
				log.Fatalf("seed project error for %s: %v", req.Slug, err)
			}
		}
	}

	log.Println("seed completed")
}

func seedAdminUser(ctx context.Context, repo users.Repository, username, email, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := repo.GetByUsername(ctx, username); err == nil {
		log.Printf("seed admin: %s exists, skipping", username)
		return nil
	} else if !errors.Is(err, users.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return repo.Create(ctx, users.AdminUser{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         users.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
}

func sampleProjects() []projects.CreateRequest {
	area := func(v float64) *float64 { return &v }
	photographer := func(v string) *string { return &v }
	details := func(text string) json.RawMessage {
		raw, _ := json.Marshal(map[string]interface{}{
			"blocks": []map[string]string{{"type": "paragraph", "text": text}},
		})
		return raw
	}

	return []projects.CreateRequest{
		{
			Title:        "Courtyard Library",
			Architect:    "Studio Lin",
			Location:     "Suzhou",
			Category:     "空间设计",
			Area:         area(1850),
			ProjectYear:  2021,
			Photographer: photographer("Chen Hao"),
			Details:      details("A reading room arranged around three planted courtyards."),
			Slug:         "courtyard-library",
			Status:       projects.StatusPublished,
		},
		{
			Title:       "Kyoto Timber Study Tour",
			Architect:   "Archfolio Academy",
			Location:    "Kyoto",
			Category:    "专项游学",
			ProjectYear: 2023,
			Details:     details("Eight days visiting joinery workshops and temple restorations."),
			Slug:        "kyoto-timber-study-tour",
			Status:      projects.StatusPublished,
		},
		{
			Title:       "Concrete Poetics",
			Architect:   "Museum of Building Arts",
			Location:    "Shanghai",
			Category:    "展览策划",
			ProjectYear: 2024,
			Details:     details("Exhibition of cast models and formwork from six decades of practice."),
			Slug:        "concrete-poetics",
			Status:      projects.StatusDraft,
		},
	}
}
