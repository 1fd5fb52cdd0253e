package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/app"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/health"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/session"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/store"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/tutorclient"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	apiURL := getEnvOrDefault("TUTOR_API_URL", "http://localhost:8080")
	dbPath := getEnvOrDefault("TUTOR_DB_PATH", defaultDBPath())

	st, err := store.NewSQLite(dbPath)
	if err != nil {
		log.Fatalf("✗ Failed to open session store: %v", err)
	}
	defer st.Close()

	a := app.New(
		tutorclient.New(apiURL),
		session.NewRegistry(st),
		health.NewTracker(),
		app.DefaultConfig(),
	)

	ctx := context.Background()
	fmt.Println("Multilingual AI Tutor. Type /help for commands.")
	a.Initialize(ctx)
	printState(a)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if !runCommand(ctx, a, line) {
				break
			}
			continue
		}

		a.SendMessage(ctx, line)
		printState(a)
	}

	a.Wait()
}

// runCommand executes a slash command; returns false on /quit.
func runCommand(ctx context.Context, a *app.App, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return false

	case "/help":
		fmt.Println(`Commands:
  /languages              list available languages
  /switch <lang> <level>  switch session (levels: A2, B2, C2)
  /retry                  retry the last failed request
  /history                show the current transcript
  /corrections            show the latest corrections
  /quit                   exit`)

	case "/languages":
		for _, lang := range a.AvailableLanguages() {
			fmt.Println("  " + lang)
		}

	case "/switch":
		if len(fields) != 3 {
			fmt.Println("usage: /switch <language> <level>")
			return true
		}
		level, err := models.ParseLevel(fields[2])
		if err != nil {
			fmt.Println("unknown level; use A2, B2 or C2")
			return true
		}
		a.SwitchSession(ctx, strings.ToLower(fields[1]), level)
		printState(a)

	case "/retry":
		a.RetryConnection(ctx)
		a.Wait()
		printState(a)

	case "/history":
		for _, m := range a.Transcript() {
			fmt.Printf("  [%s] %s\n", m.Type, m.Content)
		}

	case "/corrections":
		printCorrections(a.Corrections())

	default:
		fmt.Println("unknown command; type /help")
	}
	return true
}

// printState renders whatever changed since the last action: the newest
// tutor message, current corrections and any connection error.
func printState(a *app.App) {
	if lang := a.SelectedLanguage(); lang != "" {
		fmt.Printf("[%s %s]\n", lang, a.SelectedLevel())
	} else {
		fmt.Println("[no language selected; the tutor API may be down]")
	}

	transcript := a.Transcript()
	if len(transcript) > 0 {
		last := transcript[len(transcript)-1]
		if last.Type == models.MessageAI {
			fmt.Println("tutor: " + last.Content)
			if last.NextPhrase != "" {
				fmt.Println("tutor: " + last.NextPhrase)
			}
		}
	}

	printCorrections(a.Corrections())

	tr := a.Tracker()
	if err := tr.LastError(); err != nil {
		fmt.Println("! " + err.Message)
		switch {
		case tr.CanShowRetry():
			fmt.Println("  type /retry to try again")
		case tr.ShouldShowGiveUp():
			fmt.Println("  connection keeps failing; please try again later")
		}
	}
}

func printCorrections(corrections []models.Correction) {
	for _, c := range corrections {
		fmt.Printf("  ✎ %s → %s (%s)\n", c.Original, c.Corrected, c.ErrorType)
		for _, e := range c.Explanation {
			fmt.Println("    " + e)
		}
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tutor-sessions.db"
	}
	return filepath.Join(home, ".multilingual-ai-tutor", "sessions.db")
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
