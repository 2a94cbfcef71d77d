package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/MalcolmCusack/zaymo-url-shortener/cmd"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/config"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/services"
)

var (
	htmlFileFlag string
	htmlFlag     string
)

// ShortenCmd runs a full document rewrite against the configured store and
// prints the mapping and size report.
var ShortenCmd = &cobra.Command{
	Use:   "shorten",
	Short: "Rewrite the links in an HTML email body.",
	Long: `Shortens every eligible link in an HTML document and prints the
code mapping plus the size report.

Example:
  zaymo shorten --file=campaign.html`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		if htmlFileFlag == "" && htmlFlag == "" {
			fmt.Println("Error: either --file or --html is required")
			os.Exit(1)
		}

		html := htmlFlag
		filename := "pasted.html"
		if htmlFileFlag != "" {
			content, err := os.ReadFile(htmlFileFlag)
			if err != nil {
				log.Fatalf("Failed to read %s: %v", htmlFileFlag, err)
			}
			html = string(content)
			filename = htmlFileFlag
		}

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
		jobRepo := repository.NewJobRepository(db)
		linkService := services.NewLinkService(linkRepo, cfg.Shortener.CodeLength)
		rewriteService := services.NewRewriteService(linkService, jobRepo,
			cfg.Shortener.ShortDomain, cfg.Shortener.MaxUploadBytes)

		result, err := rewriteService.Rewrite(services.RewriteRequest{
			HTML:     html,
			Filename: filename,
		})
		if err != nil {
			log.Fatalf("Failed to rewrite document: %v", err)
		}

		fmt.Printf("Job %d: %s\n", result.JobID, result.Filename)
		fmt.Printf("Size: %d -> %d bytes (%d saved), status: %s\n",
			result.BytesIn, result.BytesOut, result.Saved, result.SizeStatus)
		for _, l := range result.Links {
			if l.Error != "" {
				fmt.Printf("  %s -> FAILED: %s\n", l.Original, l.Error)
				continue
			}
			fmt.Printf("  %s -> %s\n", l.Original, l.ShortURL)
		}
	},
}

func init() {
	ShortenCmd.Flags().StringVar(&htmlFileFlag, "file", "", "Path to the HTML file to rewrite")
	ShortenCmd.Flags().StringVar(&htmlFlag, "html", "", "Raw HTML to rewrite")
	cmd.RootCmd.AddCommand(ShortenCmd)
}
