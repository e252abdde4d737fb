package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite | mongo | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file
		URI           string // mongo connection string
	}

	TasksConfig struct {
		Timezone            string
		WeekStart           time.Weekday
		MonthAnchor         string // current | december
		OverdueScanInterval time.Duration
		StudentIDPrefix     string
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string
		WorkDir          string

		Server   ServerConfig
		Database DatabaseConfig
		Tasks    TasksConfig
	}
)

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	if c.Port == 0 {
		return c.Host
	}
	return c.Host + ":" + itoa(c.Port)
}

// Location returns the time zone used to decide calendar days.
func (c TasksConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, using Local: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

// monthAnchors are the accepted values of tasks.monthAnchor.
var monthAnchors = []string{"current", "december"}

func parseMonthAnchor(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range monthAnchors {
		if s == a {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown month anchor %q (want one of %s)", s, strings.Join(monthAnchors, ", "))
}

// weekday maps any integer onto a weekday, counting from Sunday.
func weekday(n int) time.Weekday {
	return time.Weekday(((n % 7) + 7) % 7)
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Tasktrack")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "kq9-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Tasktrack <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "tasktrack")
	v.SetDefault("database.user", "tasktrack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "tasktrack.db")
	v.SetDefault("database.uri", "mongodb://localhost:27017")

	v.SetDefault("tasks.timezone", "Local")
	v.SetDefault("tasks.weekStart", 0) // Sunday
	v.SetDefault("tasks.monthAnchor", "december")
	v.SetDefault("tasks.overdueScanInterval", time.Minute)
	v.SetDefault("tasks.studentIDPrefix", "DSV")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	anchor, err := parseMonthAnchor(v.GetString("tasks.monthAnchor"))
	if err != nil {
		log.Fatalf("config.tasks.monthAnchor: %v", err)
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		WorkDir:          wd,
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
			URI:           v.GetString("database.uri"),
		},
		Tasks: TasksConfig{
			Timezone:            v.GetString("tasks.timezone"),
			WeekStart:           weekday(v.GetInt("tasks.weekStart")),
			MonthAnchor:         anchor,
			OverdueScanInterval: v.GetDuration("tasks.overdueScanInterval"),
			StudentIDPrefix:     v.GetString("tasks.studentIDPrefix"),
		},
	}
}

// NewTestConfig returns a Config suited for tests: no env lookups, fixed secret.
func NewTestConfig() *Config {
	from := mail.Address{Name: "Tasktrack", Address: "noreply@test.local"}
	return &Config{
		AppName:          "Tasktrack",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: from,
		Server: ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Database: DatabaseConfig{Engine: "memory"},
		Tasks: TasksConfig{
			Timezone:        "UTC",
			WeekStart:       time.Sunday,
			MonthAnchor:     "december",
			StudentIDPrefix: "DSV",
		},
	}
}
