package runtime

import (
	"context"
	"time"
)

// SpecStatus is the lifecycle state of a stored chain spec.
type SpecStatus string

const (
	SpecStatusDraft    SpecStatus = "draft"
	SpecStatusActive   SpecStatus = "active"
	SpecStatusArchived SpecStatus = "archived"
)

// StoredSpec is a named, versioned chain spec held in a storage backend.
// SpecJSON is the raw chain document; it is compiled on load, not on store.
type StoredSpec struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Status      SpecStatus        `json:"status"`
	SpecJSON    []byte            `json:"spec"`
	Description string            `json:"description,omitempty"`
	CreatedBy   string            `json:"created_by,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// SpecFilters narrows ListSpecs results. Zero values match everything.
type SpecFilters struct {
	Name   string
	Status SpecStatus
	Limit  int
}

// AuditEntry records one applied transform or storage action.
type AuditEntry struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	Action     string                 `json:"action"`
	SpecName   string                 `json:"spec_name"`
	SpecVersion string                `json:"spec_version,omitempty"`
	Result     string                 `json:"result"`
	ErrorMsg   string                 `json:"error,omitempty"`
	DurationMs int                    `json:"duration_ms,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// AuditFilters narrows GetAuditLog results.
type AuditFilters struct {
	Action    string
	SpecName  string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// SpecStorage is a versioned store of chain specs with an audit trail.
type SpecStorage interface {
	StoreSpec(ctx context.Context, spec *StoredSpec) error
	GetSpec(ctx context.Context, name, version string) (*StoredSpec, error)
	GetActiveSpec(ctx context.Context, name string) (*StoredSpec, error)
	ListSpecs(ctx context.Context, filters *SpecFilters) ([]*StoredSpec, error)
	SetActiveVersion(ctx context.Context, name, version string) error
	DeleteSpec(ctx context.Context, name, version string) error

	RecordActivity(ctx context.Context, entry *AuditEntry) error
	GetAuditLog(ctx context.Context, filters *AuditFilters) ([]*AuditEntry, error)

	HealthCheck(ctx context.Context) error
	Close()
}
