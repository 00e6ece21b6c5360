package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Debug    bool
	TestMode bool
	AppName  string
	Build    string

	Server struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	// Remote is the authoritative timetable backend reached over the
	// RPC boundary. Ignored when Database is configured.
	Remote struct {
		Endpoint string
		Timeout  time.Duration
	}

	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	RollbarToken string
}

func (conf *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
}

func (conf *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%d", conf.Database.Host, conf.Database.Port)
}

// DatabaseEnabled reports whether the direct-SQL deployment is configured;
// otherwise the RPC repository is used.
func (conf *Config) DatabaseEnabled() bool {
	return conf.Database.Name != ""
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Ratiba")
	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "localhost:8001")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("remoteEndpoint", "http://localhost:4000/graphql")
	v.SetDefault("remoteTimeout", 15*time.Second)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Port = v.GetInt("serverPort")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Remote.Endpoint = v.GetString("remoteEndpoint")
	conf.Remote.Timeout = v.GetDuration("remoteTimeout")
	conf.Database.Engine = v.GetString("dbEngine")
	conf.Database.Name = v.GetString("dbName")
	conf.Database.User = v.GetString("dbUser")
	conf.Database.Password = v.GetString("dbPassword")
	conf.Database.AdminUser = v.GetString("dbAdminUser")
	conf.Database.AdminPassword = v.GetString("dbAdminPassword")
	conf.Database.Host = v.GetString("dbHost")
	conf.Database.Port = v.GetInt("dbPort")
	conf.Database.DisableTLS = v.GetBool("dbDisableTLS")
	return conf
}
