package cli

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/MalcolmCusack/zaymo-url-shortener/cmd"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/config"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/services"
)

// statsHistogramBuckets matches the sparkline width used by the API.
const statsHistogramBuckets = 30

// StatsCmd prints click statistics for a short code.
var StatsCmd = &cobra.Command{
	Use:   "stats [code]",
	Short: "Get click statistics for a short code",
	Long:  `Prints link metadata, the total click count and a bucketed click histogram.`,
	Args:  cobra.ExactArgs(1),
	Run:   runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

func runStats(cobraCmd *cobra.Command, args []string) {
	code := args[0]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying SQL database: %v", err)
	}
	defer sqlDB.Close()

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	linkService := services.NewLinkService(linkRepo, cfg.Shortener.CodeLength)
	analyticsService := services.NewAnalyticsService(clickRepo, linkRepo)

	link, totalClicks, err := linkService.GetLinkStats(code)
	if err != nil {
		log.Fatalf("Failed to get stats for %s: %v", code, err)
	}
	histogram, err := analyticsService.ClickHistogram(code, statsHistogramBuckets)
	if err != nil {
		log.Fatalf("Failed to compute histogram for %s: %v", code, err)
	}

	fmt.Printf("Code: %s\n", link.Code)
	fmt.Printf("Original URL: %s\n", link.Original)
	fmt.Printf("Created: %s\n", link.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Total clicks: %d\n", totalClicks)
	fmt.Printf("Histogram (%d buckets): %v\n", statsHistogramBuckets, histogram)
}
