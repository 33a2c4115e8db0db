// Package config reads process settings from the environment, after loading
// an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	HTTPPort    int           // websocket and JSON endpoints
	TCPPort     int           // raw stream sessions
	MazePresets string        // optional file of "width height levels" lines
	AITick      time.Duration // navigation agent tick
	LogLevel    log.Level
	Seed        int64 // 0 seeds from the clock
}

type Client struct {
	ServerAddr string // host:port, or a ws:// URL
	LogFile    string
	LogLevel   log.Level
}

// LoadDotEnv loads the given files, or .env when none are named. A missing
// file is not an error.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debugf(".env file not found or could not be loaded: %v", err)
	}
}

func LoadServer() (Server, error) {
	var c Server
	var err error
	if c.HTTPPort, err = getEnvAsInt("PORT", 8080); err != nil {
		return c, err
	}
	if c.TCPPort, err = getEnvAsInt("TCP_PORT", 9000); err != nil {
		return c, err
	}
	tick, err := getEnvAsInt("AI_TICK_MS", 100)
	if err != nil {
		return c, err
	}
	if tick <= 0 {
		return c, fmt.Errorf("AI_TICK_MS must be positive, got %d", tick)
	}
	c.AITick = time.Duration(tick) * time.Millisecond
	seed, err := getEnvAsInt("SEED", 0)
	if err != nil {
		return c, err
	}
	c.Seed = int64(seed)
	c.MazePresets = getEnvWithDefault("MAZE_PRESETS", "")
	c.LogLevel, err = getLogLevel()
	return c, err
}

func LoadClient() (Client, error) {
	var c Client
	var err error
	c.ServerAddr = getEnvWithDefault("MAZE_SERVER", "localhost:9000")
	c.LogFile = getEnvWithDefault("LOG_FILE", "mazerun.log")
	c.LogLevel, err = getLogLevel()
	return c, err
}

func getLogLevel() (log.Level, error) {
	level, err := log.ParseLevel(getEnvWithDefault("LOG_LEVEL", "info"))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return value, nil
}
