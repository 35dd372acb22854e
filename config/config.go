package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/derivbot/internal/adapters/browser"
	"github.com/alejandrodnm/derivbot/internal/retry"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Bot     BotConfig     `yaml:"bot"`
	Browser BrowserConfig `yaml:"browser"`
	Output  OutputConfig  `yaml:"output"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// BotConfig controla el loop de iteraciones contra el Deriv Bot Builder.
type BotConfig struct {
	URL                string          `yaml:"url"`
	MaxIterations      int             `yaml:"max_iterations"`
	TakeProfit         float64         `yaml:"take_profit"` // parar cuando P/L >= take_profit
	StopLoss           float64         `yaml:"stop_loss"`   // parar cuando P/L <= stop_loss
	PollIntervalMs     int             `yaml:"poll_interval_ms"`
	SettleDelayMs      int             `yaml:"settle_delay_ms"` // pausa tras stop y tras reset
	WaitTimeoutSeconds int             `yaml:"wait_timeout_seconds"`
	MaxRunSeconds      int             `yaml:"max_run_seconds"` // 0 = sin límite
	Retries            *int            `yaml:"retries"`         // ausente = 3; 0 desactiva los reintentos
	RetryDelayMs       int             `yaml:"retry_delay_ms"`
	Selectors          SelectorsConfig `yaml:"selectors"`
}

// SelectorsConfig contiene los selectores CSS del panel de ejecución.
type SelectorsConfig struct {
	Run         string `yaml:"run"`
	Stop        string `yaml:"stop"`
	StopEnabled string `yaml:"stop_enabled"`
	Reset       string `yaml:"reset"`
	Tile        string `yaml:"tile"`
	TileTitle   string `yaml:"tile_title"`
	TileContent string `yaml:"tile_content"`
}

// BrowserConfig controla cómo se lanza el navegador.
type BrowserConfig struct {
	Driver           string `yaml:"driver"` // chromedp | playwright
	Headless         bool   `yaml:"headless"`
	ExecPath         string `yaml:"exec_path"`
	UserDataDir      string `yaml:"user_data_dir"`
	ProfileDirectory string `yaml:"profile_directory"`
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	Install          bool   `yaml:"install"` // playwright: descargar drivers al arrancar
}

// OutputConfig controla el CSV de resultados.
type OutputConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// StorageConfig controla el espejo SQLite de resultados.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite; vacío desactiva el espejo
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // p.ej. ":9102"; vacío desactiva
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Si el YAML no existe se usan los defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case os.IsNotExist(err):
		// sin archivo: todo por defaults + env
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate rechaza combinaciones que harían que el loop no termine o no arranque.
func (c *Config) Validate() error {
	if c.Bot.StopLoss >= c.Bot.TakeProfit {
		return fmt.Errorf("stop_loss (%g) must be below take_profit (%g)", c.Bot.StopLoss, c.Bot.TakeProfit)
	}
	if c.Bot.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.Bot.MaxIterations)
	}
	if !browser.KnownDriver(c.Browser.Driver) {
		return fmt.Errorf("unknown browser driver %q", c.Browser.Driver)
	}
	return nil
}

// PollInterval devuelve el intervalo de lectura del P/L.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Bot.PollIntervalMs) * time.Millisecond
}

// SettleDelay devuelve la pausa tras stop y tras reset.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Bot.SettleDelayMs) * time.Millisecond
}

// WaitTimeout devuelve el timeout de espera de cada elemento.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Bot.WaitTimeoutSeconds) * time.Second
}

// MaxRunDuration devuelve el límite de una ejecución (0 = sin límite).
func (c *Config) MaxRunDuration() time.Duration {
	return time.Duration(c.Bot.MaxRunSeconds) * time.Second
}

// RetryCount devuelve el número de reintentos por operación.
func (c *Config) RetryCount() int {
	if c.Bot.Retries == nil {
		return retry.DefaultRetries
	}
	return *c.Bot.Retries
}

// RetryDelay devuelve la espera fija entre reintentos.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Bot.RetryDelayMs) * time.Millisecond
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DERIVBOT_CHROME_PATH"); v != "" {
		cfg.Browser.ExecPath = v
	}
	if v := os.Getenv("DERIVBOT_USER_DATA_DIR"); v != "" {
		cfg.Browser.UserDataDir = v
	}
	if v := os.Getenv("DERIVBOT_PROFILE"); v != "" {
		cfg.Browser.ProfileDirectory = v
	}
	if v := os.Getenv("DERIVBOT_CSV"); v != "" {
		cfg.Output.CSVPath = v
	}
	if v := os.Getenv("DERIVBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// take_profit y stop_loss solo toman default si ambos vienen a cero.
func setDefaults(cfg *Config) {
	b := &cfg.Bot
	if b.URL == "" {
		b.URL = "https://dbot.deriv.com/#bot_builder"
	}
	if b.MaxIterations == 0 {
		b.MaxIterations = 20
	}
	if b.TakeProfit == 0 && b.StopLoss == 0 {
		b.TakeProfit = 3
		b.StopLoss = -5
	}
	if b.PollIntervalMs <= 0 {
		b.PollIntervalMs = 500
	}
	if b.SettleDelayMs <= 0 {
		b.SettleDelayMs = 2000
	}
	if b.WaitTimeoutSeconds <= 0 {
		b.WaitTimeoutSeconds = 60
	}
	if b.MaxRunSeconds < 0 {
		b.MaxRunSeconds = 0
	}
	if b.Retries == nil || *b.Retries < 0 {
		n := retry.DefaultRetries
		b.Retries = &n
	}
	if b.RetryDelayMs <= 0 {
		b.RetryDelayMs = 2000
	}

	if cfg.Browser.Driver == "" {
		cfg.Browser.Driver = browser.DriverChromedp
	}
	if cfg.Browser.Width <= 0 {
		cfg.Browser.Width = 1920
	}
	if cfg.Browser.Height <= 0 {
		cfg.Browser.Height = 1080
	}
	if cfg.Output.CSVPath == "" {
		cfg.Output.CSVPath = "deriv_bot_results.csv"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
