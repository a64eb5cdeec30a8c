package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed tasks.yaml
var defaultTasksYAML []byte

type Config struct {
	Camera      CameraConfig
	Recognition RecognitionConfig
	Database    DatabaseConfig
	Attendance  AttendanceConfig
	Scheduler   SchedulerConfig
	Notify      NotifyConfig
	Mail        MailConfig
	Dashboard   DashboardConfig

	LogDir string
	CSVDir string
}

type CameraConfig struct {
	Index         int // primary device index
	FallbackIndex int // tried once when the primary fails to open
	Width         int
	Height        int
	FPS           int
}

type RecognitionConfig struct {
	Threshold    float64 // Euclidean distance cutoff for a match
	ProcessEvery int     // run recognition every Nth frame
	CanvasSize   int     // encoder canvas edge in pixels
	CascadePath  string  // Haar cascade XML for face detection
}

type DatabaseConfig struct {
	DSN          string // MySQL DSN (e.g. facemark:facemark@tcp(localhost:3306)/facemark)
	MaxOpenConns int
	MaxIdleConns int
}

type AttendanceConfig struct {
	// LateAfter is the time-of-day boundary in HH:MM:SS format. Marks at or
	// before the boundary are "present", after it "late".
	LateAfter string
}

type SchedulerConfig struct {
	TasksFile string // optional YAML override for the embedded registry
}

type NotifyConfig struct {
	Mode        string // "console" or "whatsapp"
	AccountSID  string
	AuthToken   string
	FromNumber  string // WhatsApp-enabled sender, e.g. whatsapp:+14155238886
	CountryCode string // default country prefix for bare local numbers
}

type MailConfig struct {
	SendgridKey string
	From        string
	FromName    string
	SummaryTo   string // recipient of daily/weekly summary mails
}

type DashboardConfig struct {
	Addr string
}

// TasksConfig mirrors the YAML task registry file.
type TasksConfig struct {
	Tasks []TaskConfig `yaml:"tasks"`
}

type TaskConfig struct {
	Name       string `yaml:"name"`
	Hour       int    `yaml:"hour"`
	Minute     int    `yaml:"minute"`
	Recurrence string `yaml:"recurrence"` // daily, weekly, monthly
	Weekday    int    `yaml:"weekday"`    // weekly only, 0=Sunday
	DayOfMonth int    `yaml:"day_of_month"`
	Enabled    bool   `yaml:"enabled"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Camera: CameraConfig{
			Index:         envInt("FACEMARK_CAMERA_INDEX", 0),
			FallbackIndex: envInt("FACEMARK_CAMERA_FALLBACK_INDEX", 1),
			Width:         envInt("FACEMARK_CAMERA_WIDTH", 640),
			Height:        envInt("FACEMARK_CAMERA_HEIGHT", 480),
			FPS:           envInt("FACEMARK_CAMERA_FPS", 30),
		},
		Recognition: RecognitionConfig{
			Threshold:    envFloat("FACEMARK_THRESHOLD", 50),
			ProcessEvery: envInt("FACEMARK_PROCESS_EVERY", 3),
			CanvasSize:   envInt("FACEMARK_CANVAS_SIZE", 128),
			CascadePath:  envStr("FACEMARK_CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		},
		Database: DatabaseConfig{
			DSN:          os.Getenv("FACEMARK_DSN"),
			MaxOpenConns: envInt("FACEMARK_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("FACEMARK_DB_MAX_IDLE_CONNS", 2),
		},
		Attendance: AttendanceConfig{
			LateAfter: envStr("FACEMARK_LATE_AFTER", "09:00:00"),
		},
		Scheduler: SchedulerConfig{
			TasksFile: os.Getenv("FACEMARK_TASKS_FILE"),
		},
		Notify: NotifyConfig{
			Mode:        envStr("FACEMARK_NOTIFY_MODE", "console"),
			AccountSID:  os.Getenv("FACEMARK_WHATSAPP_ACCOUNT_SID"),
			AuthToken:   os.Getenv("FACEMARK_WHATSAPP_AUTH_TOKEN"),
			FromNumber:  os.Getenv("FACEMARK_WHATSAPP_FROM"),
			CountryCode: envStr("FACEMARK_COUNTRY_CODE", "+91"),
		},
		Mail: MailConfig{
			SendgridKey: os.Getenv("SENDGRID_API_KEY"),
			From:        os.Getenv("FACEMARK_MAIL_FROM"),
			FromName:    envStr("FACEMARK_MAIL_FROM_NAME", "Facemark Attendance"),
			SummaryTo:   os.Getenv("FACEMARK_SUMMARY_TO"),
		},
		Dashboard: DashboardConfig{
			Addr: envStr("FACEMARK_HTTP_ADDR", ":8080"),
		},
		LogDir: envStr("FACEMARK_LOG_DIR", "logs"),
		CSVDir: envStr("FACEMARK_CSV_DIR", "attendance_csv"),
	}
}

// LoadTasks returns the task registry configuration. When an override file is
// configured it is read from disk, otherwise the embedded default is used.
func (c *Config) LoadTasks() (*TasksConfig, error) {
	raw := defaultTasksYAML
	if c.Scheduler.TasksFile != "" {
		data, err := os.ReadFile(c.Scheduler.TasksFile)
		if err != nil {
			return nil, fmt.Errorf("read tasks file %s: %w", c.Scheduler.TasksFile, err)
		}
		raw = data
	}

	var tc TasksConfig
	if err := yaml.Unmarshal(raw, &tc); err != nil {
		return nil, fmt.Errorf("parse tasks config: %w", err)
	}
	for _, t := range tc.Tasks {
		if t.Name == "" {
			return nil, fmt.Errorf("task with empty name in tasks config")
		}
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return nil, fmt.Errorf("task %s: invalid time %02d:%02d", t.Name, t.Hour, t.Minute)
		}
		switch t.Recurrence {
		case "daily", "weekly", "monthly":
		default:
			return nil, fmt.Errorf("task %s: unknown recurrence %q", t.Name, t.Recurrence)
		}
	}
	return &tc, nil
}
