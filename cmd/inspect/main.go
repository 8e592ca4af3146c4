package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/database"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/repository"
	"github.com/qs3c/needvox_server/internal/service"
)

var (
	userID = flag.String("user", "", "User ID to inspect")
	email  = flag.String("email", "", "Email to inspect, resolved to the stable user ID")
	reset  = flag.Bool("cancel", false, "Cancel the subscription after printing it")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	id := strings.TrimSpace(*userID)
	if id == "" && strings.TrimSpace(*email) != "" {
		id = service.UserIDForEmail(*email)
	}
	if id == "" {
		log.Fatal("either -user or -email is required")
	}

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open record storage: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := inspect(ctx, os.Stdout, store, cfg.Storage.KeyPrefix, id, *reset); err != nil {
		log.Fatalf("Failed to inspect subscription: %v", err)
	}
}

// inspect 打印用户的订阅记录，cancel 为真时随后取消订阅
func inspect(ctx context.Context, w io.Writer, store kv.Store, prefix, id string, cancel bool) error {
	key := service.RecordKey(prefix, service.SubscriptionRecordName, id)
	ent := service.NewEntitlementStore(store, key, service.EntitlementOptions{})
	if err := ent.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore subscription: %w", err)
	}

	printSubscription(w, id, key, ent)

	if !cancel {
		return nil
	}
	if err := ent.Cancel(ctx); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	fmt.Fprintln(w, "\nsubscription cancelled")
	return nil
}

func openStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.Storage.Backend {
	case "database":
		db, err := database.NewDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return repository.NewRecordRepository(db), nil
	case "redis", "":
		rdb, err := database.NewRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return kv.NewRedisStore(rdb), nil
	}
	return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
}

func printSubscription(w io.Writer, id, key string, ent *service.EntitlementStore) {
	sub := ent.Subscription()
	fmt.Fprintf(w, "user:    %s\n", id)
	fmt.Fprintf(w, "record:  %s\n", key)

	plan, ok := ent.ActivePlan()
	if !ok {
		fmt.Fprintln(w, "plan:    none")
		return
	}
	cycle := "monthly"
	if sub.IsYearly {
		cycle = "yearly"
	}
	fmt.Fprintf(w, "plan:    %s (%s)\n", plan.ID, cycle)
	if sub.ExpiresAt != nil {
		fmt.Fprintf(w, "expires: %s\n", sub.ExpiresAt.Format(time.RFC3339))
	}

	fmt.Fprintf(w, "\n%-15s %8s %8s %10s\n", "dimension", "used", "quota", "remaining")
	for _, d := range model.Dimensions {
		fmt.Fprintf(w, "%-15s %8d %8d %10d\n", d, sub.Used(d), plan.Features.Quota(d), ent.Remaining(d))
	}
	fmt.Fprintf(w, "\ndownload collections: %v\n", ent.HasCapability(model.FeatureDownloadCollections))
	fmt.Fprintf(w, "view user profiles:   %v\n", ent.HasCapability(model.FeatureViewUserProfiles))
}
