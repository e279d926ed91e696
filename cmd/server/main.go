package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/lockstep/internal/app"
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
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
		usage:        "Maximum number of members in the room",
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 25,
		usage:        "Maximum number of videos in the playlist",
	}
	store = configVar[string]{
		envKey:       "SERVER_STORE",
		flagKey:      "store",
		defaultValue: app.StoreInmemory,
		usage:        "Room store: inmemory or redis",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	roomTTL = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_TTL",
		flagKey:      "room-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "Idle room expiration in the redis store",
	}
	negativeAcks = configVar[bool]{
		envKey:       "SERVER_NEGATIVE_ACKS",
		flagKey:      "negative-acks",
		defaultValue: false,
		usage:        "Report rejected intents to the sender",
	}
	wsPingPeriod = configVar[time.Duration]{
		envKey:       "SERVER_WS_PING_PERIOD",
		flagKey:      "ws-ping-period",
		defaultValue: 30 * time.Second,
		usage:        "Websocket ping period",
	}
	wsWriteWait = configVar[time.Duration]{
		envKey:       "SERVER_WS_WRITE_WAIT",
		flagKey:      "ws-write-wait",
		defaultValue: 10 * time.Second,
		usage:        "Websocket write deadline",
	}
	wsReadLimit = configVar[int64]{
		envKey:       "SERVER_WS_READ_LIMIT",
		flagKey:      "ws-read-limit",
		defaultValue: 64 << 10,
		usage:        "Maximum inbound websocket message size in bytes",
	}
	wsSendBuffer = configVar[int]{
		envKey:       "SERVER_WS_SEND_BUFFER",
		flagKey:      "ws-send-buffer",
		defaultValue: 256,
		usage:        "Outbound messages queued per connection before it is dropped",
	}
	videoInfoCacheSize = configVar[int]{
		envKey:       "SERVER_VIDEO_INFO_CACHE_SIZE",
		flagKey:      "video-info-cache-size",
		defaultValue: 1024,
		usage:        "Number of cached video metadata entries",
	}
	videoInfoTimeout = configVar[time.Duration]{
		envKey:       "SERVER_VIDEO_INFO_TIMEOUT",
		flagKey:      "video-info-timeout",
		defaultValue: 10 * time.Second,
		usage:        "Video metadata lookup timeout",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, membersLimit.usage)
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, playlistLimit.usage)
	pflag.String(store.flagKey, store.defaultValue, store.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Duration(roomTTL.flagKey, roomTTL.defaultValue, roomTTL.usage)
	pflag.Bool(negativeAcks.flagKey, negativeAcks.defaultValue, negativeAcks.usage)
	pflag.Duration(wsPingPeriod.flagKey, wsPingPeriod.defaultValue, wsPingPeriod.usage)
	pflag.Duration(wsWriteWait.flagKey, wsWriteWait.defaultValue, wsWriteWait.usage)
	pflag.Int64(wsReadLimit.flagKey, wsReadLimit.defaultValue, wsReadLimit.usage)
	pflag.Int(wsSendBuffer.flagKey, wsSendBuffer.defaultValue, wsSendBuffer.usage)
	pflag.Int(videoInfoCacheSize.flagKey, videoInfoCacheSize.defaultValue, videoInfoCacheSize.usage)
	pflag.Duration(videoInfoTimeout.flagKey, videoInfoTimeout.defaultValue, videoInfoTimeout.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	host.bind()
	port.bind()
	logLevel.bind()
	membersLimit.bind()
	playlistLimit.bind()
	store.bind()
	redisHost.bind()
	redisPort.bind()
	redisPassword.bind()
	roomTTL.bind()
	negativeAcks.bind()
	wsPingPeriod.bind()
	wsWriteWait.bind()
	wsReadLimit.bind()
	wsSendBuffer.bind()
	videoInfoCacheSize.bind()
	videoInfoTimeout.bind()

	return &app.AppConfig{
		Host:               viper.GetString(host.flagKey),
		Port:               viper.GetInt(port.flagKey),
		LogLevel:           viper.GetString(logLevel.flagKey),
		MembersLimit:       viper.GetInt(membersLimit.flagKey),
		PlaylistLimit:      viper.GetInt(playlistLimit.flagKey),
		Store:              viper.GetString(store.flagKey),
		RedisHost:          viper.GetString(redisHost.flagKey),
		RedisPort:          viper.GetInt(redisPort.flagKey),
		RedisPassword:      viper.GetString(redisPassword.flagKey),
		RoomTTL:            viper.GetDuration(roomTTL.flagKey),
		NegativeAcks:       viper.GetBool(negativeAcks.flagKey),
		WSPingPeriod:       viper.GetDuration(wsPingPeriod.flagKey),
		WSWriteWait:        viper.GetDuration(wsWriteWait.flagKey),
		WSReadLimit:        viper.GetInt64(wsReadLimit.flagKey),
		WSSendBuffer:       viper.GetInt(wsSendBuffer.flagKey),
		VideoInfoCacheSize: viper.GetInt(videoInfoCacheSize.flagKey),
		VideoInfoTimeout:   viper.GetDuration(videoInfoTimeout.flagKey),
	}
}

func main() {
	// a missing .env is fine, the environment and flags still apply
	_ = godotenv.Load()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(context.Background(), appConfig); err != nil {
		log.Fatal(err)
	}
}
