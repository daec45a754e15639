package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cratedigger/internal/client"
	"cratedigger/internal/models"
)

func main() {
	apiURL := flag.String("api", envOr("CRATEDIGGER_API_URL", "http://localhost:8080"), "crate API base URL")
	token := flag.String("token", os.Getenv("CRATEDIGGER_TOKEN"), "session token (defaults to $CRATEDIGGER_TOKEN)")
	crateID := flag.String("crate", "", "crate id to suggest albums for")
	pages := flag.Int("pages", 1, "number of pages of 500 albums to scan")
	assign := flag.Bool("assign", false, "move every suggested album into the crate")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *crateID == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(*apiURL, *token, &http.Client{Timeout: 2 * time.Minute})
	driver := client.NewDriver(api)
	driver.OnProgress = func(p client.Progress) {
		log.Info().
			Int("offset", p.PageOffset+p.BatchOffset).
			Int("batches", p.BatchesProcessed).
			Int("total", p.Total).
			Msg("Sub-batch complete")
	}
	go func() {
		<-ctx.Done()
		driver.Cancel()
	}()

	suggestions, err := driver.Run(ctx, *crateID)
	for page := 1; err == nil && page < *pages; page++ {
		suggestions, err = driver.FindMore(ctx)
	}
	if err != nil {
		log.Error().Err(err).Int("accumulated", len(suggestions)).Msg("Suggestion run stopped")
	}

	printSuggestions(suggestions)

	if *assign && err == nil && len(suggestions) > 0 {
		ids := make([]string, len(suggestions))
		for i, s := range suggestions {
			ids[i] = s.AlbumID
		}
		updated, err := api.AssignBatch(ctx, *crateID, ids)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to assign suggested albums")
		}
		log.Info().Int64("updated", updated).Msg("Suggested albums assigned")
	}

	if err != nil {
		os.Exit(1)
	}
}

func printSuggestions(suggestions []models.Suggestion) {
	for _, s := range suggestions {
		score := "  -  "
		if s.Score != nil {
			score = fmt.Sprintf("%.2f", *s.Score)
		}
		year := ""
		if s.ReleaseYear != nil {
			year = fmt.Sprintf(" (%d)", *s.ReleaseYear)
		}
		fmt.Printf("%s  %s  %s — %s%s  %s\n", score, s.AlbumID, s.AlbumName, s.ArtistName, year, s.Reason)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
