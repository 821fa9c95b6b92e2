package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"chatgogo/client/internal/config"
	"chatgogo/client/internal/engine"
	"chatgogo/client/internal/identity"
	"chatgogo/client/internal/models"
	"chatgogo/client/internal/presence"
	"chatgogo/client/internal/rest"
	"chatgogo/client/internal/session"
	"chatgogo/client/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: no .env file loaded")
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := config.Load()
	ctx := context.Background()

	// No token configured: ask the backend for a fresh anonymous identity.
	token := cfg.Token
	if token == "" {
		bootstrap := rest.New(cfg.APIURL, "", log)
		resp, err := bootstrap.FetchAnonID(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not obtain an anonymous identity")
		}
		token = resp.Token
	}

	ident, err := identity.FromToken(token)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid token")
	}
	log.Info().Str("user_id", ident.UserID).Msg("starting chatgogo client")

	api := rest.New(cfg.APIURL, token, log)
	tr := transport.NewWS(cfg.WSURL, token, log)
	urls := session.NewStore(session.NewMemoryNavigator(), log)
	gate := presence.NewTracker()

	eng := engine.New(ident, tr, api, urls, gate, log)
	defer eng.Close()

	eng.OnMessages(printMessages)
	eng.OnTyping(func(string) { fmt.Println("  (partner is typing...)") })
	eng.Restore(ctx)

	fmt.Println("commands: /match, /next, /close, /dm <user-id>, /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !handle(ctx, eng, log, line) {
			return
		}
	}
}

func handle(ctx context.Context, eng *engine.Engine, log zerolog.Logger, line string) bool {
	switch {
	case line == "/quit":
		return false

	case line == "/match":
		if err := eng.RequestMatch(ctx); err != nil {
			log.Error().Err(err).Msg("match request failed")
		} else {
			fmt.Println("searching for a partner...")
		}

	case line == "/next":
		if err := eng.NextPartner(ctx); err != nil {
			log.Error().Err(err).Msg("next partner failed")
		} else {
			fmt.Println("searching for a new partner...")
		}

	case line == "/close":
		eng.ClosePairing()
		fmt.Println("chat closed")

	case strings.HasPrefix(line, "/dm "):
		userID := strings.TrimSpace(strings.TrimPrefix(line, "/dm "))
		if err := eng.OpenDM(ctx, userID); err != nil {
			log.Error().Err(err).Msg("could not open dm")
		} else if p := eng.DMPartner(); p != nil && p.DisplayName != "" {
			fmt.Printf("chatting with %s\n", p.DisplayName)
		}

	default:
		switch err := eng.Send(ctx, line); err {
		case nil:
		case engine.ErrMuted:
			if rec := eng.Muted(); rec != nil && rec.Permanent() {
				fmt.Println("you are muted")
			} else if rec != nil {
				fmt.Printf("you are muted until %s\n", rec.Until.Format("15:04:05"))
			}
		case engine.ErrNoActiveRoom:
			fmt.Println("no open chat; try /match or /dm <user-id>")
		case engine.ErrPartnerGone:
			fmt.Println("your partner left; /next to find a new one")
		default:
			log.Error().Err(err).Msg("send failed")
		}
	}
	return true
}

func printMessages(list []models.Message) {
	fmt.Print("\033[H\033[2J")
	for _, m := range list {
		switch m.Sender {
		case models.SenderSelf:
			fmt.Printf("[%s] you: %s\n", m.Timestamp.Format("15:04"), m.Text)
		case models.SenderSystem:
			fmt.Printf("  -- %s --\n", m.Text)
		default:
			name := m.DisplayName
			if name == "" {
				name = "stranger"
			}
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04"), name, m.Text)
		}
	}
}
