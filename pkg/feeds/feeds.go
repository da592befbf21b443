package feeds

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

// InitDateFormat is a format of the init date (YYYY-MM-DD)
const InitDateFormat = "2006-01-02"

// DefaultSourceType is used when a definition has no sourcetype
const DefaultSourceType = "monobank:statement"

// Log levels a feed may run with
const (
	LogLevelInfo  = "INFO"
	LogLevelDebug = "DEBUG"
)

// Definition is a feed as it is stored by operators
type Definition struct {
	Name string `json:"name"`

	// AccountID is an account at the bank. CardID is accepted as an alias
	AccountID string `json:"account_id"`
	CardID    string `json:"card_id"`

	// Token is a personal API token. TokenEnv is a name of env variable to take it from
	Token    string `json:"token"`
	TokenEnv string `json:"token_env"`

	InitDate   string `json:"init_date"`
	Index      string `json:"index"`
	SourceType string `json:"sourcetype"`
	LogLevel   string `json:"log_level"`
	Disabled   bool   `json:"disabled"`
}

// Feed is a validated feed. Do not mutate, it is shared between cycle steps
type Feed struct {
	Name       string
	AccountID  string
	Token      string
	InitDate   time.Time
	Index      string
	SourceType string
	LogLevel   string
}

// Filter returns a filter of events that were ingested by the feed
func (f Feed) Filter() checkpoint.Filter {
	return checkpoint.Filter{
		Index:      f.Index,
		SourceType: f.SourceType,
		Source:     f.Name,
	}
}

// ConfigValidationError describes why a feed definition was rejected
type ConfigValidationError struct {
	Feed    string
	Reasons []string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("Invalid feed %v: %v", e.Feed, strings.Join(e.Reasons, "; "))
}

// ValidationResult is a result of a definition validation
type ValidationResult struct {
	Name     string
	Feed     *Feed
	Reasons  []string
	Disabled bool
}

// Valid reports if the definition can be activated
func (r ValidationResult) Valid() bool {
	return len(r.Reasons) == 0
}

// Err returns nil for valid results
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ConfigValidationError{Feed: r.Name, Reasons: r.Reasons}
}

func invalid(name string, reasons ...string) ValidationResult {
	return ValidationResult{Name: name, Reasons: reasons}
}

// Validate checks the definition and builds a feed out of it
func Validate(def Definition) ValidationResult {
	var reasons []string
	addReason := func(format string, args ...interface{}) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	if def.Name == "" {
		addReason("name is required")
	}

	accountID := def.AccountID
	if accountID == "" {
		accountID = def.CardID
	}
	if accountID == "" {
		addReason("account_id (or card_id) is required")
	} else if def.AccountID != "" && def.CardID != "" && def.AccountID != def.CardID {
		addReason("account_id and card_id are different")
	} else if strings.ContainsAny(accountID, "/?#") {
		addReason("account_id contains not allowed characters")
	}

	token := def.Token
	if token == "" && def.TokenEnv != "" {
		token = os.Getenv(def.TokenEnv)
		if token == "" {
			addReason("token env %v is empty", def.TokenEnv)
		}
	} else if token == "" {
		addReason("token (or token_env) is required")
	}

	initDate, err := time.Parse(InitDateFormat, def.InitDate)
	if err != nil {
		addReason("Incorrect date format, should be YYYY-MM-DD")
	}

	if def.LogLevel != LogLevelInfo && def.LogLevel != LogLevelDebug {
		addReason("Incorrect log level format, should be INFO|DEBUG")
	}

	if len(reasons) > 0 {
		return invalid(def.Name, reasons...)
	}

	sourceType := def.SourceType
	if sourceType == "" {
		sourceType = DefaultSourceType
	}

	return ValidationResult{
		Name:     def.Name,
		Disabled: def.Disabled,
		Feed: &Feed{
			Name:       def.Name,
			AccountID:  accountID,
			Token:      token,
			InitDate:   initDate,
			Index:      checkpoint.NormalizeIndex(def.Index),
			SourceType: sourceType,
			LogLevel:   def.LogLevel,
		},
	}
}
