package config

import "os"

type R2 struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
}

// PlatformCredentials holds the OAuth client issued by a platform's developer
// console. A platform whose ClientID is empty is treated as not configured.
type PlatformCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Config struct {
	Twitter   PlatformCredentials
	Facebook  PlatformCredentials
	Instagram PlatformCredentials
	LinkedIn  PlatformCredentials
	Threads   PlatformCredentials
	Pinterest PlatformCredentials
	Tiktok    PlatformCredentials
	Google    PlatformCredentials

	// Mastodon registers a client per remote instance at runtime and Bluesky
	// uses app passwords, so neither carries static client credentials. Both
	// still need a callback base to build redirect URIs.
	CallbackBaseURL string

	PostgresURI  string
	DatabaseName string
	RedisURI     string
	FrontendURL  string
	R2           R2
	SecretKey    string
	CookieName   string
}

func LoadConfig() *Config {
	return &Config{
		Twitter: PlatformCredentials{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TWITTER_REDIRECT_URI", ""),
		},
		Facebook: PlatformCredentials{
			ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("FACEBOOK_REDIRECT_URI", ""),
		},
		Instagram: PlatformCredentials{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		},
		LinkedIn: PlatformCredentials{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		},
		Threads: PlatformCredentials{
			ClientID:     getEnv("THREADS_CLIENT_ID", ""),
			ClientSecret: getEnv("THREADS_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("THREADS_REDIRECT_URI", ""),
		},
		Pinterest: PlatformCredentials{
			ClientID:     getEnv("PINTEREST_CLIENT_ID", ""),
			ClientSecret: getEnv("PINTEREST_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("PINTEREST_REDIRECT_URI", ""),
		},
		Tiktok: PlatformCredentials{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TIKTOK_REDIRECT_URI", ""),
		},
		Google: PlatformCredentials{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		},
		CallbackBaseURL: getEnv("CALLBACK_BASE_URL", "http://localhost:3000"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		DatabaseName:    getEnv("DATABASE_NAME", ""),
		RedisURI:        getEnv("REDIS_URI", ""),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			BucketName:    getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL: getEnv("R2_PUBLIC_BASE_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
