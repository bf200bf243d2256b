package config

// Config represents the complete leadgw configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Security  SecurityConfig  `yaml:"security"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	GenAI     GenAIConfig     `yaml:"genai"`
	DocuSeal  DocuSealConfig  `yaml:"docuseal"`
	Turnstile TurnstileConfig `yaml:"turnstile"`
	Leads     LeadsConfig     `yaml:"leads"`
	Report    ReportConfig    `yaml:"report"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name       string `yaml:"name"`
	Listen     string `yaml:"listen"`
	LogLevel   string `yaml:"log_level"`
	PIDFile    string `yaml:"pid_file"`
	APIBaseURL string `yaml:"api_base_url"`
	WebsiteURL string `yaml:"website_url"`
}

// DatabaseConfig defines the SQLite location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig defines the document store location (devis and report PDFs).
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// SecurityConfig holds the shared secrets gating inbound requests.
// WebhookSecret and TrackingSecret must be at least MinSecretLength
// characters; the process refuses to start otherwise.
type SecurityConfig struct {
	WebhookSecret  string `yaml:"webhook_secret"`
	TrackingSecret string `yaml:"tracking_secret"`
	CronSecret     string `yaml:"cron_secret"`
	APIKey         string `yaml:"api_key"`
}

// SendGridConfig defines transactional email settings.
type SendGridConfig struct {
	APIKey     string `yaml:"api_key"`
	FromEmail  string `yaml:"from_email"`
	FromName   string `yaml:"from_name"`
	AdminEmail string `yaml:"admin_email"`
}

// GenAIConfig defines LLM settings for lead qualification and quote drafting.
type GenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// DocuSealConfig defines e-signature provider settings.
type DocuSealConfig struct {
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
	TemplateID    int    `yaml:"template_id"`
}

// TurnstileConfig defines Cloudflare Turnstile settings. An empty secret key
// disables CAPTCHA verification.
type TurnstileConfig struct {
	SecretKey string `yaml:"secret_key"`
}

// LeadsConfig defines scoring thresholds.
type LeadsConfig struct {
	HotThreshold int `yaml:"hot_threshold"`
}

// ReportConfig defines the monthly report schedule.
type ReportConfig struct {
	Day      int    `yaml:"day"`
	Hour     int    `yaml:"hour"`
	Timezone string `yaml:"timezone"`
}

// MinSecretLength is the minimum accepted length for webhook and tracking
// secrets.
const MinSecretLength = 32

// Defaults returns the built-in default configuration.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:       "leadgw",
			Listen:     ":8080",
			LogLevel:   "info",
			PIDFile:    "./leadgw.pid",
			APIBaseURL: "http://localhost:8080",
			WebsiteURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path: "./data/leadgw.db",
		},
		Storage: StorageConfig{
			Dir: "./data/documents",
		},
		GenAI: GenAIConfig{
			Model: "gemini-2.0-flash",
		},
		DocuSeal: DocuSealConfig{
			BaseURL: "https://api.docuseal.co",
		},
		Leads: LeadsConfig{
			HotThreshold: 70,
		},
		Report: ReportConfig{
			Day:      1,
			Hour:     8,
			Timezone: "Europe/Paris",
		},
	}
}
