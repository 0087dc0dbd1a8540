// Package model defines the entity shapes shared by the store adapter,
// the hierarchy engine, and the tool dispatcher: WorkItem, ExecutionRecord,
// ProgressEvent, ArchitectureItem, and TroubleshootItem.
package model

import "time"

// ItemType enumerates the five-level work item hierarchy.
type ItemType string

const (
	ItemInitiative ItemType = "initiative"
	ItemEpic       ItemType = "epic"
	ItemFeature    ItemType = "feature"
	ItemStory      ItemType = "story"
	ItemTask       ItemType = "task"
)

// AllowedChildTypes maps each parent type to the one child type it may
// contain.
var AllowedChildTypes = map[ItemType]ItemType{
	ItemInitiative: ItemEpic,
	ItemEpic:       ItemFeature,
	ItemFeature:    ItemStory,
	ItemStory:      ItemTask,
}

func (t ItemType) Valid() bool {
	switch t {
	case ItemInitiative, ItemEpic, ItemFeature, ItemStory, ItemTask:
		return true
	}
	return false
}

// Status enumerates WorkItem lifecycle states.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority enumerates WorkItem priority levels.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Complexity enumerates the optional WorkItem complexity rating.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

func (c Complexity) Valid() bool {
	switch c {
	case "", ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	}
	return false
}

// WorkItem is the primary work-hierarchy unit.
type WorkItem struct {
	ID                 string     `json:"id"`
	Namespace          string     `json:"-"`
	ItemType           ItemType   `json:"item_type"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Status             Status     `json:"status"`
	Priority           Priority   `json:"priority"`
	Complexity         Complexity `json:"complexity,omitempty"`
	ParentID           *string    `json:"parent_id,omitempty"`
	SequenceOrder      int        `json:"sequence_order"`
	AcceptanceCriteria []string   `json:"acceptance_criteria,omitempty"`
	ContextTags        []string   `json:"context_tags,omitempty"`
	Dependencies       []string   `json:"dependencies,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	ProgressPercentage int        `json:"progress_percentage"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	EmbeddingVector    []float32  `json:"-"`
	EmbeddingModelID   string     `json:"-"`
}

// ExecutionMode enumerates how an ExecutionRecord is being driven.
type ExecutionMode string

const (
	ModeAutonomous     ExecutionMode = "autonomous"
	ModeGuided         ExecutionMode = "guided"
	ModeValidationOnly ExecutionMode = "validation_only"
)

func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeAutonomous, ModeGuided, ModeValidationOnly:
		return true
	}
	return false
}

// ExecutionStatus enumerates ExecutionRecord lifecycle states.
type ExecutionStatus string

const (
	ExecPending   ExecutionStatus = "pending"
	ExecRunning   ExecutionStatus = "running"
	ExecCompleted ExecutionStatus = "completed"
	ExecFailed    ExecutionStatus = "failed"
	ExecCancelled ExecutionStatus = "cancelled"
)

// ExecutionRecord tracks the lifecycle of attempting a work item. The
// server never drives execution itself; it only records state.
type ExecutionRecord struct {
	ExecutionID       string            `json:"execution_id"`
	Namespace         string            `json:"-"`
	WorkItemID        string            `json:"work_item_id"`
	Mode              ExecutionMode     `json:"mode"`
	Status            ExecutionStatus   `json:"status"`
	StartedAt         time.Time         `json:"started_at"`
	EndedAt           *time.Time        `json:"ended_at,omitempty"`
	AgentContext      map[string]string `json:"agent_context,omitempty"`
	ValidationIssues  []string          `json:"validation_issues,omitempty"`
	Artifacts         []string          `json:"artifacts,omitempty"`
}

// ProgressEvent is an append-only log row.
type ProgressEvent struct {
	ID         int64     `json:"id"`
	Namespace  string    `json:"-"`
	EntityID   string    `json:"entity_id"`
	Percentage int       `json:"percentage"`
	Status     Status    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	Blockers   []string  `json:"blockers,omitempty"`
	At         time.Time `json:"at"`
}

// MemoryKind discriminates the two memory corpora.
type MemoryKind string

const (
	MemoryArchitecture MemoryKind = "architecture"
	MemoryTroubleshoot MemoryKind = "troubleshoot"
)

// ArchitectureItem is a reusable design-spec memory entry.
type ArchitectureItem struct {
	ID              string    `json:"id"`
	Namespace       string    `json:"-"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	AIRequirements  string    `json:"ai_requirements"`
	AIWhenToUse     []string  `json:"ai_when_to_use,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
	ChildrenSlugs   []string  `json:"children_slugs,omitempty"`
	RelatedSlugs    []string  `json:"related_slugs,omitempty"`
	LinkedEpicIDs   []string  `json:"linked_epic_ids,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	EmbeddingVector []float32 `json:"-"`
}

// TroubleshootItem is a problem/solution memory entry.
type TroubleshootItem struct {
	ID              string    `json:"id"`
	Namespace       string    `json:"-"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	AIUseCase       []string  `json:"ai_use_case"`
	AISolutions     string    `json:"ai_solutions"`
	Keywords        []string  `json:"keywords,omitempty"`
	ChildrenSlugs   []string  `json:"children_slugs,omitempty"`
	RelatedSlugs    []string  `json:"related_slugs,omitempty"`
	LinkedEpicIDs   []string  `json:"linked_epic_ids,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	UsageCount      int       `json:"usage_count"`
	SuccessCount    int       `json:"success_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	EmbeddingVector []float32 `json:"-"`
}

// SearchableText returns the text fed to the embedding engine and the
// keyword index: title plus description plus acceptance criteria for
// work items, and title/requirements/solutions/keywords for memory
// items.
func (w *WorkItem) SearchableText() string {
	s := w.Title + "\n" + w.Description
	for _, c := range w.AcceptanceCriteria {
		s += "\n" + c
	}
	return s
}

func (a *ArchitectureItem) SearchableText() string {
	s := a.Title + "\n" + a.AIRequirements
	for _, k := range a.Keywords {
		s += "\n" + k
	}
	return s
}

func (t *TroubleshootItem) SearchableText() string {
	s := t.Title + "\n" + t.AISolutions
	for _, u := range t.AIUseCase {
		s += "\n" + u
	}
	for _, k := range t.Keywords {
		s += "\n" + k
	}
	return s
}
