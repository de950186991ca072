// Command seed loads profile rows into the hosted row store from a JSON
// file, upserting on id so re-runs are safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/nutrilens/companion/internal/app/domain/profile"
	storagesupabase "github.com/nutrilens/companion/internal/app/storage/supabase"
	"github.com/nutrilens/companion/internal/supabase"
)

func main() {
	var (
		envFile  = flag.String("env", ".env", "Path to .env with SUPABASE_URL and SUPABASE_ANON_KEY")
		dataFile = flag.String("data", "./seed/profiles.json", "Path to a JSON array of profile rows")
	)
	flag.Parse()

	ctx := context.Background()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("load env (%s): %v", *envFile, err)
	}

	url := os.Getenv("SUPABASE_URL")
	apiKey := os.Getenv("SUPABASE_ANON_KEY")
	if url == "" || apiKey == "" {
		log.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}

	data, err := os.ReadFile(filepath.Clean(*dataFile))
	if err != nil {
		log.Fatalf("read %s: %v", *dataFile, err)
	}

	var rows []profile.Profile
	if err := json.Unmarshal(data, &rows); err != nil {
		log.Fatalf("parse %s: %v", *dataFile, err)
	}

	client, err := supabase.New(supabase.Config{URL: url, APIKey: apiKey})
	if err != nil {
		log.Fatalf("supabase client: %v", err)
	}
	store := storagesupabase.New(client, nil)

	for _, row := range rows {
		if err := store.Upsert(ctx, row); err != nil {
			log.Fatalf("upsert %s (%s): %v", row.Email, row.ID, err)
		}
	}

	fmt.Printf("Seeded %d profile rows into %s\n", len(rows), url)
}
