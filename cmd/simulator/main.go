package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8000"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "chat":
		chatCmd(apiURL, args)
	case "stream":
		streamCmd(apiURL, args)
	case "completions":
		completionsCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Conversation Simulator - Development tool for exercising the chat API

USAGE:
  simulator <command> [options]

COMMANDS:
  chat         Register (or log in) and hold a multi-turn conversation in one session
  stream       Send one message over the streamed endpoint and print fragments as they arrive
  completions  Call the OpenAI-compatible endpoint
  help         Show this help message

ENVIRONMENT:
  API_URL   Gateway URL (default: http://localhost:8000)

EXAMPLES:
  # Three turns in a fresh pidgin session with a throwaway account
  simulator chat --turns="How far?|Wetin be jollof?|Thank you"

  # Same, in swahili, as an existing user
  simulator chat --email=a@x.com --password=p@ss1234 --language=swahili --turns="Habari?"

  # Streamed reply
  simulator stream --message="Tell me a short story"

  # OpenAI-compatible endpoint with a shared key
  simulator completions --key=secret --stream --message="How far?"`)
}

// authenticate logs in when an email is given, otherwise registers a
// throwaway account.
func authenticate(client *APIClient, email, password string) string {
	if email != "" {
		fmt.Printf("Logging in as %s... ", email)
		token, err := client.Login(email, password)
		if err != nil {
			fmt.Printf("FAILED\n  Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("OK")
		return token
	}

	fmt.Print("Registering simulator user... ")
	created, token, err := client.RegisterUser("Simulator")
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (user: %s)\n", created)
	return token
}

func chatCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	email := fs.String("email", "", "Existing account email (registers a new one when empty)")
	password := fs.String("password", "", "Existing account password")
	language := fs.String("language", "pidgin", "Session language (pidgin or swahili)")
	turns := fs.String("turns", "How far?|Wetin dey happen for Lagos today?", "Messages separated by |")
	fs.Parse(args)

	messages := strings.Split(*turns, "|")
	client := NewAPIClient(apiURL)

	fmt.Println("=== Conversation Simulator: Chat ===")
	fmt.Println()

	token := authenticate(client, *email, *password)

	sessionID := ""
	for i, msg := range messages {
		fmt.Println()
		fmt.Printf("[%d/%d] you: %s\n", i+1, len(messages), msg)

		resp, err := client.Send(token, sessionID, msg, *language)
		if err != nil {
			fmt.Printf("  FAILED: %v\n", err)
			os.Exit(1)
		}
		sessionID = resp.SessionID
		fmt.Printf("[%d/%d] zeempo (%.2fs): %s\n", i+1, len(messages), resp.ProcessingTime, resp.Response)
	}

	chats, err := client.ListChats(token)
	if err != nil {
		fmt.Printf("Warning: Failed to list chats: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Println("=========================================")
	fmt.Println("  CONVERSATION SAVED")
	fmt.Println("=========================================")
	fmt.Println()
	fmt.Printf("  Session ID: %s\n", sessionID)
	for _, c := range chats {
		if c.ID == sessionID {
			fmt.Printf("  Title:      %s\n", c.Title)
			fmt.Printf("  Language:   %s\n", c.Language)
		}
	}
	fmt.Printf("  Chats:      %d total\n", len(chats))
	fmt.Println()
}

func streamCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	email := fs.String("email", "", "Existing account email (registers a new one when empty)")
	password := fs.String("password", "", "Existing account password")
	language := fs.String("language", "pidgin", "Session language (pidgin or swahili)")
	sessionID := fs.String("session", "", "Continue an existing session")
	message := fs.String("message", "How far? Tell me small story.", "Message to send")
	fs.Parse(args)

	client := NewAPIClient(apiURL)
	token := authenticate(client, *email, *password)

	fmt.Println()
	fmt.Printf("you: %s\n", *message)
	fmt.Print("zeempo: ")

	start := time.Now()
	fragments := 0
	sid, err := client.Stream(token, *sessionID, *message, *language, func(text string) {
		fragments++
		fmt.Print(text)
	})
	fmt.Println()
	if err != nil {
		fmt.Printf("FAILED after %d fragments: %v\n", fragments, err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("  %d fragments in %s (session %s)\n", fragments, time.Since(start).Round(time.Millisecond), sid)
}

func completionsCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("completions", flag.ExitOnError)
	key := fs.String("key", "", "Shared completions API key, if the gateway requires one")
	stream := fs.Bool("stream", false, "Request a streamed response")
	message := fs.String("message", "How far?", "User message")
	fs.Parse(args)

	client := NewAPIClient(apiURL)

	fmt.Printf("user: %s\n", *message)
	fmt.Print("assistant: ")
	err := client.Complete(*key, *message, *stream, func(text string) {
		fmt.Print(text)
	})
	fmt.Println()
	if err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}
}
