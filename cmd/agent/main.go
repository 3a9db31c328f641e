package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"interviewlink/native/internal/api"
	"interviewlink/native/internal/config"
	"interviewlink/native/internal/domain"
	"interviewlink/native/internal/media"
	"interviewlink/native/internal/room"
	"interviewlink/native/internal/session"
	sigclient "interviewlink/native/internal/signal"
)

const helpText = `agent - InterviewLink native call endpoint

Joins an interview room as either side of the call and negotiates a
peer-to-peer audio/video session through the signaling relay.

Environment variables (IVL_* / .env):
  IVL_SESSION_ID  interview session to join (required)
  IVL_ROLE        candidate | interviewer (required)
  IVL_RELAY_URL   signaling relay WebSocket URL
  IVL_API_URL     interview service base URL

Options:
  -h, --help  Show this help message
`

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Print(helpText)
		os.Exit(0)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	role, err := cfg.ParsedRole()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid role")
	}
	sess := domain.Session{ID: cfg.SessionID, Role: role}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	codec, err := media.NewCodecSelector()
	if err != nil {
		log.Fatal().Err(err).Msg("build codec selector")
	}
	acquirer := media.NewAcquirer(codec)

	webrtcAPI, err := session.NewAPI(codec)
	if err != nil {
		log.Fatal().Err(err).Msg("build webrtc api")
	}
	manager := session.NewManager(role, acquirer, webrtcAPI, cfg.ICEServers())

	apiClient := api.NewClient(cfg.APIURL)
	controller := room.NewController(sess, apiClient, manager, cfg.PollInterval, cfg.DisplayName, cancel)

	sc := sigclient.NewClient(cfg.RelayURL, sess, controller, cfg.PingInterval)
	controller.SetSignaler(sc)

	if err := controller.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("join room")
	}
	log.Info().Str("session", sess.ID).Str("role", string(role)).Msg("agent running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	controller.Close()
	log.Info().Msg("agent exited")
}
