package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	Endpoint   string
	PublicURL  string
}

type Media struct {
	Backend   string // "r2" or "local"
	Root      string
	PublicURL string
}

type UploadPost struct {
	BaseURL    string
	APIKey     string
	AuthScheme string
	User       string
	Timeout    time.Duration
}

type Gemini struct {
	APIKey       string
	CaptionModel string
	ImageModel   string
	Timeout      time.Duration
}

type Config struct {
	Env                string
	Port               string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	R2                 R2
	Media              Media
	UploadPost         UploadPost
	Gemini             Gemini
	ScheduleTimezone   string
	AIResultTTL        time.Duration
	ReconcileInterval  string
	SecretKey          string
	CookieName         string
	SentryDSN          string
}

func LoadConfig() *Config {
	return &Config{
		Env:                getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "3000"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			Endpoint:   getEnv("R2_ENDPOINT", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Media: Media{
			Backend:   getEnv("MEDIA_BACKEND", "local"),
			Root:      getEnv("MEDIA_ROOT", "./media"),
			PublicURL: getEnv("MEDIA_URL", "/media"),
		},
		UploadPost: UploadPost{
			BaseURL:    getEnv("UPLOAD_POST_BASE_URL", "https://api.upload-post.com/api"),
			APIKey:     getEnv("UPLOAD_POST_API_KEY", ""),
			AuthScheme: getEnv("UPLOAD_POST_AUTH_SCHEME", "Apikey"),
			User:       getEnv("UPLOAD_POST_USER", ""),
			Timeout:    getDuration("UPLOAD_POST_TIMEOUT", 2*time.Minute),
		},
		Gemini: Gemini{
			APIKey:       getEnv("GEMINI_API_KEY", ""),
			CaptionModel: getEnv("GEMINI_CAPTION_MODEL", "gemini-2.5-flash"),
			ImageModel:   getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			Timeout:      getDuration("AI_TIMEOUT", 90*time.Second),
		},
		ScheduleTimezone:  getEnv("SCHEDULE_TIMEZONE", "Asia/Jakarta"),
		AIResultTTL:       getDuration("AI_RESULT_TTL", time.Hour),
		ReconcileInterval: getEnv("RECONCILE_INTERVAL", "@every 00h15m00s"),
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "postpilot_session"),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
	}
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("90s") or plain seconds ("90").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
