package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DBUrl          string
	TokenSecret    string
	TokenTTL       time.Duration
	UploadDir      string
	AppURL         string
	WebAppURL      string
	MasterUsername string
	MasterPassword string
	Debug          bool
}

// ParseFlags builds the configuration from command-line flags, with defaults
// taken from the environment (a .env file is loaded first when present).
func ParseFlags() (cfg Config, err error) {
	godotenv.Load()

	var host string
	flag.StringVar(&host, "host", envOr("FORMDEN_HOST", "0.0.0.0"), "listen host name")
	var port uint
	flag.UintVar(&port, "port", envUintOr("FORMDEN_PORT", 80), "listen port number")
	flag.StringVar(&cfg.DBUrl, "db-url", envOr("FORMDEN_DB_URL", "formden.sqlite"), "path to SQLite3 DB file")
	flag.StringVar(&cfg.TokenSecret, "token-secret", os.Getenv("FORMDEN_TOKEN_SECRET"), "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", envUintOr("FORMDEN_TOKEN_TTL", 120), "token TTL in seconds")
	flag.StringVar(&cfg.UploadDir, "upload-dir", envOr("FORMDEN_UPLOAD_DIR", "uploads"), "directory for uploaded thumbnails")
	flag.StringVar(&cfg.AppURL, "app-url", os.Getenv("FORMDEN_APP_URL"), "public base URL of this API")
	flag.StringVar(&cfg.WebAppURL, "web-app-url", os.Getenv("FORMDEN_WEB_APP_URL"), "base URL of the form-filling web app")
	flag.StringVar(&cfg.MasterUsername, "master-username", os.Getenv("FORMDEN_MASTER_USERNAME"), "username of the master account to seed at startup")
	flag.StringVar(&cfg.MasterPassword, "master-password", os.Getenv("FORMDEN_MASTER_PASSWORD"), "password of the master account to seed at startup")
	flag.BoolVar(&cfg.Debug, "debug", os.Getenv("FORMDEN_DEBUG") == "true", "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUintOr(key string, fallback uint) uint {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fallback
	}
	return uint(n)
}
