package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/lockstep/internal/app"
	"github.com/sharetube/lockstep/internal/client"
	"github.com/sharetube/lockstep/internal/protocol"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	serverURL = configVar[string]{
		envKey:       "CLIENT_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "http://localhost:8080",
		usage:        "Relay base url",
	}
	roomId = configVar[string]{
		envKey:       "CLIENT_ROOM",
		flagKey:      "room",
		defaultValue: protocol.DefaultRoomId,
		usage:        "Room to join",
	}
	username = configVar[string]{
		envKey:       "CLIENT_USERNAME",
		flagKey:      "username",
		defaultValue: "viewer",
		usage:        "Name attached to log records",
	}
	logLevel = configVar[string]{
		envKey:       "CLIENT_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "WARN",
		usage:        "Logging level",
	}
	heartbeatInterval = configVar[time.Duration]{
		envKey:       "CLIENT_HEARTBEAT_INTERVAL",
		flagKey:      "heartbeat-interval",
		defaultValue: time.Second,
		usage:        "Playback time report interval",
	}
	driftThreshold = configVar[float64]{
		envKey:       "CLIENT_DRIFT_THRESHOLD",
		flagKey:      "drift-threshold",
		defaultValue: 1.0,
		usage:        "Seconds of drift tolerated before seeking",
	}
	videoDuration = configVar[time.Duration]{
		envKey:       "CLIENT_VIDEO_DURATION",
		flagKey:      "video-duration",
		defaultValue: 3 * time.Minute,
		usage:        "Length of every video in the simulated player",
	}
)

type clientConfig struct {
	ServerURL         string        `json:"server_url"`
	Room              string        `json:"room"`
	Username          string        `json:"username"`
	LogLevel          string        `json:"log_level"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	DriftThreshold    float64       `json:"drift_threshold"`
	VideoDuration     time.Duration `json:"video_duration"`
}

func loadConfig() *clientConfig {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, serverURL.usage)
	pflag.String(roomId.flagKey, roomId.defaultValue, roomId.usage)
	pflag.String(username.flagKey, username.defaultValue, username.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Duration(heartbeatInterval.flagKey, heartbeatInterval.defaultValue, heartbeatInterval.usage)
	pflag.Float64(driftThreshold.flagKey, driftThreshold.defaultValue, driftThreshold.usage)
	pflag.Duration(videoDuration.flagKey, videoDuration.defaultValue, videoDuration.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	serverURL.bind()
	roomId.bind()
	username.bind()
	logLevel.bind()
	heartbeatInterval.bind()
	driftThreshold.bind()
	videoDuration.bind()

	return &clientConfig{
		ServerURL:         viper.GetString(serverURL.flagKey),
		Room:              viper.GetString(roomId.flagKey),
		Username:          viper.GetString(username.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		HeartbeatInterval: viper.GetDuration(heartbeatInterval.flagKey),
		DriftThreshold:    viper.GetFloat64(driftThreshold.flagKey),
		VideoDuration:     viper.GetDuration(videoDuration.flagKey),
	}
}

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// connect keeps the session attached to the relay until ctx is done.
func connect(ctx context.Context, session *client.Session, serverURL string, logger *slog.Logger) {
	backoff := minBackoff
	for ctx.Err() == nil {
		t, err := client.Dial(ctx, serverURL)
		if err != nil {
			logger.WarnContext(ctx, "failed to connect", "error", err, "retry_in", backoff)
		} else {
			backoff = minBackoff
			fmt.Println("connected")
			if err := session.Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Println("disconnected:", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

const help = `commands:
  add <url>      add a video
  remove <i>     remove the video at index i
  play <i>       play the video at index i
  pause          pause the room
  next | prev    move through the playlist
  wplay | wpause press play or pause on the player itself
  end            skip the player to the end of the video
  state          print the mirrored room state
  help | quit`

func runCommand(ctx context.Context, line string, session *client.Session, player *client.SimPlayer, duration time.Duration) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	// loop-bound commands wait for the session; a disconnected one never answers
	wait, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	index := func() (int, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%s needs an index", fields[0])
		}
		return strconv.Atoi(fields[1])
	}

	switch fields[0] {
	case "add":
		if len(fields) < 2 {
			return errors.New("add needs a url")
		}
		return session.AddVideo(ctx, fields[1])
	case "remove":
		i, err := index()
		if err != nil {
			return err
		}
		return session.RemoveVideo(wait, i)
	case "play":
		i, err := index()
		if err != nil {
			return err
		}
		return session.PlayAt(wait, i)
	case "pause":
		return session.Pause(wait)
	case "next":
		return session.Next(wait)
	case "prev":
		return session.Prev(wait)
	case "wplay":
		player.Play()
	case "wpause":
		player.Pause()
	case "end":
		player.SeekTo(duration.Seconds(), true)
	case "state":
		m, phase := session.State()
		b, _ := json.MarshalIndent(m, "", "  ")
		fmt.Printf("phase: %s, player: %s at %.1fs, seeking: %t\n%s\n",
			phase, player.State(), player.CurrentTime(), session.IsSeeking(), b)
	case "help":
		fmt.Println(help)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}

	return nil
}

func main() {
	// a missing .env is fine, the environment and flags still apply
	_ = godotenv.Load()

	cfg := loadConfig()

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger = logger.With("username", cfg.Username, "room_id", cfg.Room)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	player := client.NewSimPlayer(clock, cfg.VideoDuration)
	session := client.NewSession(player, client.NewHTTPLookup(cfg.ServerURL, nil), client.SessionConfig{
		RoomId:            cfg.Room,
		HeartbeatInterval: cfg.HeartbeatInterval,
		DriftThreshold:    cfg.DriftThreshold,
		Clock:             clock,
		OnError: func(err error) {
			fmt.Println("error:", err)
		},
	}, logger)
	player.SetListener(session.OnWidgetState)

	go connect(ctx, session, cfg.ServerURL, logger)

	fmt.Println(help)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "quit" {
				return
			}
			if err := runCommand(ctx, line, session, player, cfg.VideoDuration); err != nil {
				fmt.Println("error:", err)
			}
		}
	}
}
