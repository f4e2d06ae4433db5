package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/capella-tools/capscan-batch/internal/capscan"
)

// Config is the whole tool's configuration, loaded from the environment
// (optionally seeded by an .env file) with CLI flags layered on top.
type Config struct {
	InputDir   string
	OutputDir  string
	StagingDir string

	Preflight bool
	MaxEdge   int

	BridgeCommand string
	ExePath       string

	PollIntervalMS    int
	DialogTimeoutS    int
	LoadTimeoutS      int
	RecognizeTimeoutS int
	RecognizePollMS   int
	RecoverTimeoutS   int

	JournalPath string
	ReportPath  string

	NATSURL       string
	ResultSubject string

	ArchiveEnabled  bool
	ArchiveParentID uuid.UUID
	ArchiveBackend  string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		InputDir:   getenv("IMG_IN_DIR", "./img_in"),
		OutputDir:  getenv("CSC_OUT_DIR", "./csc_out"),
		StagingDir: getenv("STAGING_DIR", "./data/staging"),

		Preflight: getenvBool("PREFLIGHT", true),

		BridgeCommand: getenv("UIA_BRIDGE_CMD", "capscan-uia-bridge"),
		ExePath:       getenv("CAPSCAN_EXE", capscan.DefaultExePath),

		JournalPath: getenv("JOURNAL_PATH", "./data/capscan-batch.db"),
		ReportPath:  getenv("REPORT_PATH", ""),

		NATSURL:       getenv("NATS_URL", ""),
		ResultSubject: getenv("RESULT_SUBJECT", "capscan.batch"),

		ArchiveEnabled: getenvBool("ARCHIVE_ENABLED", false),
		ArchiveBackend: getenv("DEFAULT_STORAGE_BACKEND", "s3"),
	}

	for _, v := range []struct {
		dst  *int
		name string
		def  string
	}{
		{&cfg.MaxEdge, "PREFLIGHT_MAX_EDGE", "3500"},
		{&cfg.PollIntervalMS, "POLL_INTERVAL_MS", "250"},
		{&cfg.DialogTimeoutS, "DIALOG_TIMEOUT_S", "10"},
		{&cfg.LoadTimeoutS, "LOAD_TIMEOUT_S", "20"},
		{&cfg.RecognizeTimeoutS, "RECOGNIZE_TIMEOUT_S", "120"},
		{&cfg.RecognizePollMS, "RECOGNIZE_POLL_MS", "1000"},
		{&cfg.RecoverTimeoutS, "RECOVER_TIMEOUT_S", "5"},
	} {
		n, err := parsePositiveInt(getenv(v.name, v.def), v.name)
		if err != nil {
			return Config{}, err
		}
		*v.dst = n
	}

	if cfg.ArchiveEnabled {
		raw := getenv("ARCHIVE_PARENT_CONTENT_ID", "")
		if raw == "" {
			return Config{}, fmt.Errorf("ARCHIVE_ENABLED requires ARCHIVE_PARENT_CONTENT_ID")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ARCHIVE_PARENT_CONTENT_ID: %w", err)
		}
		cfg.ArchiveParentID = id
	}

	return cfg, nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c Config) Timeouts() capscan.Timeouts {
	return capscan.Timeouts{
		Dialog:            time.Duration(c.DialogTimeoutS) * time.Second,
		Load:              time.Duration(c.LoadTimeoutS) * time.Second,
		Recognize:         time.Duration(c.RecognizeTimeoutS) * time.Second,
		RecognizeInterval: time.Duration(c.RecognizePollMS) * time.Millisecond,
		Recover:           time.Duration(c.RecoverTimeoutS) * time.Second,
	}
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvBool(key string, defaultValue bool) bool {
	val := getenv(key, "")
	if val == "" {
		return defaultValue
	}
	return val == "true"
}
