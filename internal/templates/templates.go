// Package templates holds the bot's reply texts as a configuration
// mapping, key -> string (§9). The core fetches by key and never hard-codes
// content in the dispatch switch.
package templates

import (
	"context"
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

type Key string

const (
	Welcome          Key = "WELCOME"
	ChooseOptionAck  Key = "CHOOSE_OPTION_ACK"
	FormTemplate     Key = "FORM_TEMPLATE"
	FormReceived     Key = "FORM_RECEIVED"
	PartnershipAck   Key = "PARTNERSHIP_ACK"
	OtherNeedsAck    Key = "OTHER_NEEDS_ACK"
	QuestionReceived Key = "QUESTION_RECEIVED"
	InvalidOption    Key = "INVALID_OPTION"
	EscalationNotice Key = "ESCALATION_NOTICE"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var defaults = mustLoadDefaults(defaultsYAML)

func mustLoadDefaults(raw []byte) map[Key]string {
	var decoded map[string]string
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		panic("templates: defaults.yaml is malformed: " + err.Error())
	}
	out := make(map[Key]string, len(decoded))
	for k, v := range decoded {
		out[Key(k)] = v
	}
	return out
}

// reply_templates table, only ever read by the core; the write path is the
// out-of-scope admin surface named in §1.
type override struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

func (override) TableName() string { return "reply_templates" }

// Map is a thread-safe key -> string lookup, seeded with the compiled-in
// defaults and refreshable from the optional Postgres override table.
type Map struct {
	mu     sync.RWMutex
	values map[Key]string
	db     *gorm.DB
	log    *logger.Logger
}

func NewMap(db *gorm.DB, baseLog *logger.Logger) *Map {
	values := make(map[Key]string, len(defaults))
	for k, v := range defaults {
		values[k] = v
	}
	return &Map{
		values: values,
		db:     db,
		log:    baseLog.With("component", "TemplateMap"),
	}
}

// Get returns the template text for key, falling back to the compiled-in
// default if somehow absent.
func (m *Map) Get(key Key) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return defaults[key]
}

// Refresh reloads any persisted overrides from reply_templates, if the
// table exists and has rows. Safe to call repeatedly; a query error leaves
// the current in-memory map untouched.
func (m *Map) Refresh(ctx context.Context) error {
	if m.db == nil {
		return nil
	}
	var rows []override
	if err := m.db.WithContext(ctx).Find(&rows).Error; err != nil {
		m.log.Warn("template override refresh failed, keeping current map", "error", err)
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.values[Key(row.Key)] = row.Value
	}
	return nil
}
