package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/LFronza/CineLink-sub000/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 16,
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 50,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	ffmpegPath = configVar[string]{
		envKey:       "SERVER_FFMPEG_PATH",
		flagKey:      "ffmpeg-path",
		defaultValue: "ffmpeg",
	}
	mediaDir = configVar[string]{
		envKey:       "SERVER_MEDIA_DIR",
		flagKey:      "media-dir",
		defaultValue: "/var/lib/cinelink/media",
	}
	proxyAllowedHosts = configVar[[]string]{
		envKey:       "SERVER_PROXY_ALLOWED_HOSTS",
		flagKey:      "proxy-allowed-hosts",
		defaultValue: []string{"drive.google.com", "docs.google.com", "googleusercontent.com", "archive.org"},
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of participants in a room")
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, "Maximum number of items in the queue")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host, empty for in-memory state")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.String(ffmpegPath.flagKey, ffmpegPath.defaultValue, "Path to the ffmpeg binary")
	pflag.String(mediaDir.flagKey, mediaDir.defaultValue, "Directory for transcoded output")
	pflag.StringSlice(proxyAllowedHosts.flagKey, proxyAllowedHosts.defaultValue, "Hosts the media proxy may fetch from")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(playlistLimit.flagKey, playlistLimit.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(ffmpegPath.flagKey, ffmpegPath.envKey)
	viper.BindEnv(mediaDir.flagKey, mediaDir.envKey)
	viper.BindEnv(proxyAllowedHosts.flagKey, proxyAllowedHosts.envKey)

	return &app.AppConfig{
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		MembersLimit:      viper.GetInt(membersLimit.flagKey),
		PlaylistLimit:     viper.GetInt(playlistLimit.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
		FFmpegPath:        viper.GetString(ffmpegPath.flagKey),
		MediaDir:          viper.GetString(mediaDir.flagKey),
		ProxyAllowedHosts: viper.GetStringSlice(proxyAllowedHosts.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
