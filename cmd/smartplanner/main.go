package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"smartplanner/internal/config"
	"smartplanner/internal/database"
	"smartplanner/internal/llm"
	"smartplanner/internal/metrics"
	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
	"smartplanner/internal/supabase"
	"smartplanner/internal/sync"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "provision":
		admin, err := supabase.NewAdmin(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize admin client: %v", err)
		}
		if err := admin.Provision(ctx); err != nil {
			log.Fatalf("Provisioning failed: %v", err)
		}
		fmt.Println("Schema applied and verified.")
	case "seed":
		admin, err := supabase.NewAdmin(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize admin client: %v", err)
		}
		if err := admin.Seed(ctx); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		fmt.Printf("Seeded %d starter recipes.\n", len(supabase.StarterRecipes()))
	case "week":
		controller := signedInController(ctx, cfg)
		catalog := controller.Recipes()
		for _, day := range controller.WeekPlan() {
			fmt.Println(day.Date)
			for _, mealType := range planner.AllMealTypes {
				slot := day.Meals[mealType]
				if slot.Empty() {
					continue
				}
				title := slot.RecipeID
				if rec, found := recipe.FindByID(catalog, slot.RecipeID); found {
					title = rec.Title
				}
				fmt.Printf("  %s: %s\n", mealType, title)
			}
		}
	case "shopping":
		controller := signedInController(ctx, cfg)
		for _, entry := range controller.ShoppingList() {
			if entry.Amount == 0 {
				fmt.Println(entry.Name)
				continue
			}
			fmt.Printf("%s: %g %s\n", entry.Name, entry.Amount, entry.Unit)
		}
	case "generate":
		if len(os.Args) < 3 {
			log.Fatal("Usage: smartplanner generate <description>")
		}
		prompt := strings.Join(os.Args[2:], " ")

		textGen, closer := newTextGenerator(ctx, cfg)
		if closer != nil {
			defer closer.Close()
		}

		controller := signedInController(ctx, cfg)
		draft, _, err := recipe.GenerateDraft(ctx, textGen, prompt)
		if err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
		rec := draft.Apply(recipe.Recipe{})
		if err := controller.AddRecipe(ctx, rec); err != nil {
			log.Fatalf("Failed to save recipe: %v", err)
		}
		fmt.Printf("Saved %q (%d ingredients, %d steps).\n", rec.Title, len(rec.Ingredients), len(rec.Instructions))
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()

		affected, err := metrics.NewStore(db.SQL).Cleanup(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// signedInController authenticates with the credentials from the
// environment and returns a controller loaded with remote state.
func signedInController(ctx context.Context, cfg *config.Config) *sync.Controller {
	email := os.Getenv("SMARTPLANNER_EMAIL")
	password := os.Getenv("SMARTPLANNER_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("SMARTPLANNER_EMAIL and SMARTPLANNER_PASSWORD must be set for this command")
	}

	session, err := supabase.NewAuth(cfg).SignIn(ctx, email, password)
	if err != nil {
		log.Fatalf("Sign-in failed: %v", err)
	}

	controller := sync.NewController(supabase.NewClient(cfg))
	if err := controller.Start(ctx, session); err != nil {
		log.Fatalf("Failed to load remote state: %v", err)
	}
	return controller
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, llm.Closer) {
	if cfg.OpenRouterAPIKey != "" {
		return llm.NewOpenRouterClient(cfg), nil
	}
	if cfg.GeminiAPIKey != "" {
		textGen, closer, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		return textGen, closer
	}
	log.Fatal("Set OPENROUTER_API_KEY or GEMINI_API_KEY for generation commands")
	return nil, nil
}

func printUsage() {
	fmt.Println("Usage: smartplanner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  provision          Apply the backend schema and verify tables")
	fmt.Println("  seed               Insert the starter recipes")
	fmt.Println("  week               Print this week's meal plan")
	fmt.Println("  shopping           Print the aggregated shopping list")
	fmt.Println("  generate <text>    Generate a recipe with AI and save it")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
