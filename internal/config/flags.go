// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"time"

	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

func source(env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(cli.EnvVar(env), toml.TOML(key, configFile))
}

// Flags returns every configuration flag with its env and TOML sources.
func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL (derived from host, port and TLS mode if empty)",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.StringFlag{
			Name:    "allowed-origins",
			Value:   "http://localhost:3000",
			Usage:   "Comma-separated origins allowed to call the API with credentials",
			Sources: source("ALLOWED_ORIGINS", "server.allowed_origins"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/snippetshare.db",
			Usage:   "Database DSN",
			Sources: source("DATABASE_DSN", "database.dsn"),
		},
	}

	flags = append(flags, tlsFlags()...)
	flags = append(flags, sessionFlags()...)
	flags = append(flags, otpFlags()...)
	flags = append(flags, smtpFlags()...)
	flags = append(flags, redisFlags()...)

	return append(flags,
		&cli.IntFlag{
			Name:    "share-max-ttl-minutes",
			Value:   525600, // 365 days
			Usage:   "Longest lifetime a share link may be created with",
			Sources: source("SHARE_MAX_TTL_MINUTES", "share.max_ttl_minutes"),
		},
		&cli.DurationFlag{
			Name:    "gc-interval",
			Value:   15 * time.Minute,
			Usage:   "Interval of the expired record sweep (0 disables it)",
			Sources: source("GC_INTERVAL", "gc.interval"),
		},
	)
}

func tlsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, manual, off)",
			Sources: source("TLS_MODE", "tls.mode"),
		},
		&cli.StringFlag{
			Name:    "tls-cache-dir",
			Value:   "./data/certs",
			Usage:   "Directory for ACME certificates",
			Sources: source("TLS_CACHE_DIR", "tls.cache_dir"),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: source("TLS_EMAIL", "tls.email"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: source("TLS_CERT_FILE", "tls.cert_file"),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: source("TLS_KEY_FILE", "tls.key_file"),
		},
	}
}

func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "token",
			Usage:   "Session cookie name",
			Sources: source("SESSION_COOKIE_NAME", "session.cookie_name"),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   86400, // 24 hours
			Usage:   "Absolute session lifetime in seconds",
			Sources: source("SESSION_MAX_AGE", "session.max_age"),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: source("SESSION_HASH_KEY", "session.hash_key"),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: source("SESSION_BLOCK_KEY", "session.block_key"),
		},
	}
}

func otpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   10 * time.Minute,
			Usage:   "Lifetime of an issued passcode",
			Sources: source("OTP_TTL", "otp.ttl"),
		},
		&cli.IntFlag{
			Name:    "otp-max-issues-per-hour",
			Value:   5,
			Usage:   "Passcodes that may be issued per email and hour",
			Sources: source("OTP_MAX_ISSUES_PER_HOUR", "otp.max_issues_per_hour"),
		},
		&cli.IntFlag{
			Name:    "otp-max-attempts",
			Value:   10,
			Usage:   "Verification attempts per email and attempt window",
			Sources: source("OTP_MAX_ATTEMPTS", "otp.max_attempts"),
		},
		&cli.DurationFlag{
			Name:    "otp-attempt-window",
			Value:   10 * time.Minute,
			Usage:   "Window for verification attempts",
			Sources: source("OTP_ATTEMPT_WINDOW", "otp.attempt_window"),
		},
	}
}

func smtpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host (passcodes are logged when empty)",
			Sources: source("SMTP_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: source("SMTP_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: source("SMTP_USERNAME", "smtp.username"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: source("SMTP_PASSWORD", "smtp.password"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: source("SMTP_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Code Editor",
			Usage:   "Sender display name",
			Sources: source("SMTP_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: source("SMTP_TLS", "smtp.tls"),
		},
	}
}

func redisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for shared rate limits (in-process limits when empty)",
			Sources: source("REDIS_ADDR", "redis.addr"),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			Sources: source("REDIS_PASSWORD", "redis.password"),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			Sources: source("REDIS_DB", "redis.db"),
		},
	}
}
