package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transport identifies which external chat gateway a Lead was first seen on.
type Transport string

const (
	TransportWhatsApp Transport = "whatsapp"
	TransportTelegram Transport = "telegram"
)

func (t Transport) Valid() bool {
	return t == TransportWhatsApp || t == TransportTelegram
}

// LeadState is one of the finite states a Lead's qualification conversation
// can be in. See internal/fsm for the transition table.
type LeadState string

const (
	LeadStateNew                  LeadState = "NEW"
	LeadStateExisting             LeadState = "EXISTING"
	LeadStateChooseOption         LeadState = "CHOOSE_OPTION"
	LeadStateFormSent             LeadState = "FORM_SENT"
	LeadStateFormInProgress       LeadState = "FORM_IN_PROGRESS"
	LeadStateFormCompleted        LeadState = "FORM_COMPLETED"
	LeadStateManualIntervention   LeadState = "MANUAL_INTERVENTION"
	LeadStatePartnership          LeadState = "PARTNERSHIP"
)

func (s LeadState) Valid() bool {
	switch s {
	case LeadStateNew, LeadStateExisting, LeadStateChooseOption, LeadStateFormSent,
		LeadStateFormInProgress, LeadStateFormCompleted, LeadStateManualIntervention, LeadStatePartnership:
		return true
	default:
		return false
	}
}

const MaxWarningCount = 3

// Lead is one persistent record of a human contact progressing through the
// qualification conversation.
type Lead struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PrimaryID    string    `gorm:"column:primary_id;uniqueIndex;not null" json:"primary_id"`
	AltID        *string   `gorm:"column:alt_id;index" json:"alt_id,omitempty"`
	PushName     *string   `gorm:"column:push_name" json:"push_name,omitempty"`
	Transport    Transport `gorm:"column:transport;not null;index" json:"transport"`
	State        LeadState `gorm:"column:state;not null;index" json:"state"`
	WarningCount int       `gorm:"column:warning_count;not null;default:0" json:"warning_count"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

// InteractionDirection is which way a logged message traveled.
type InteractionDirection string

const (
	DirectionIn  InteractionDirection = "in"
	DirectionOut InteractionDirection = "out"
)

// Interaction is one append-only inbound or outbound message logged against a Lead.
type Interaction struct {
	ID        uuid.UUID             `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LeadID    uuid.UUID             `gorm:"type:uuid;column:lead_id;not null;index" json:"lead_id"`
	MessageID string                `gorm:"column:message_id;index" json:"message_id"`
	Text      string                `gorm:"column:text" json:"text"`
	Direction InteractionDirection  `gorm:"column:direction;not null" json:"direction"`
	CreatedAt time.Time             `gorm:"not null;default:now();index" json:"created_at"`
}

func (Interaction) TableName() string { return "lead_interactions" }

// FormFragment is the accumulated, at-most-one-per-lead set of qualification
// answers. Completed is true only once all five fields are non-empty.
type FormFragment struct {
	LeadID       uuid.UUID `gorm:"type:uuid;column:lead_id;primaryKey" json:"lead_id"`
	Biodata      *string   `gorm:"column:biodata" json:"biodata,omitempty"`
	SourceInfo   *string   `gorm:"column:source_info" json:"source_info,omitempty"`
	BusinessType *string   `gorm:"column:business_type" json:"business_type,omitempty"`
	Budget       *string   `gorm:"column:budget" json:"budget,omitempty"`
	StartPlan    *string   `gorm:"column:start_plan" json:"start_plan,omitempty"`
	Completed    bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (FormFragment) TableName() string { return "lead_form_data" }
