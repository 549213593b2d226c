package board

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is a task's workflow state. Two vocabularies are valid: the board
// vocabulary (todo, in-progress, done) and the legacy planner vocabulary
// (inbox, todo, doing, done). Values are stored exactly as received.
type Status string

const (
	// StatusTodo is shared by both vocabularies.
	StatusTodo Status = "todo"

	// StatusInProgress is the board vocabulary's active state.
	StatusInProgress Status = "in-progress"

	// StatusDone is shared by both vocabularies.
	StatusDone Status = "done"

	// StatusInbox is the planner vocabulary's intake state.
	StatusInbox Status = "inbox"

	// StatusDoing is the planner vocabulary's active state.
	StatusDoing Status = "doing"
)

// Validate checks if the Status belongs to either vocabulary.
func (s Status) Validate() error {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusInbox, StatusDoing:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// NormalizeToBoard maps a status into the board vocabulary.
// Planner-only values map as inbox→todo, doing→in-progress.
func (s Status) NormalizeToBoard() Status {
	switch s {
	case StatusInbox:
		return StatusTodo
	case StatusDoing:
		return StatusInProgress
	default:
		return s
	}
}

// NormalizeToPlanner maps a status into the planner vocabulary.
// The board-only value in-progress maps to doing. The inbox state has no
// board equivalent, so the mapping loses nothing in this direction.
func (s Status) NormalizeToPlanner() Status {
	if s == StatusInProgress {
		return StatusDoing
	}
	return s
}

// Position is an absolute pixel coordinate on the board canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Task is a card on the board canvas.
// Created via REST, mutated by drag, inline edit, or inbound socket delta.
type Task struct {
	ID          string       `json:"id"`           // Server-assigned identifier (UUID for optimistic creates)
	Title       string       `json:"title"`        // Display title
	Status      Status       `json:"status"`       // Workflow state, either vocabulary
	Position    Position     `json:"position"`     // Absolute canvas position
	GroupID     string       `json:"group_id"`     // Owning group, empty if ungrouped
	Assignees   []string     `json:"assignees"`    // Member IDs assigned to this task
	Attachments []Attachment `json:"attachments"`  // File attachments
	Comments    []Comment    `json:"comments"`     // Discussion thread
	DueAtMs     int64        `json:"due_at_ms"`    // Unix milliseconds, 0 if unset
	CreatedAtMs int64        `json:"created_at_ms"` // Unix milliseconds when created
}

// Validate checks if the Task has valid field values.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if t.Title == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid task status: %w", err)
	}
	return nil
}

// Group is a named rectangular container that groups tasks spatially.
// A legacy column is a Group whose FixedStatus is set: tasks inside it
// take that status rather than keeping their own.
type Group struct {
	ID          string   `json:"id"`           // Server-assigned identifier
	Name        string   `json:"name"`         // Display name shown in the header band
	Position    Position `json:"position"`     // Top-left corner of the container
	Size        Size     `json:"size"`         // Body size, excluding the header band
	FixedStatus Status   `json:"fixed_status"` // Non-empty for legacy status lanes
}

// Validate checks if the Group has valid field values.
func (g *Group) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("group ID cannot be empty")
	}
	if g.Name == "" {
		return fmt.Errorf("group name cannot be empty")
	}
	if g.Size.Width < 0 || g.Size.Height < 0 {
		return fmt.Errorf("group size cannot be negative: %vx%v", g.Size.Width, g.Size.Height)
	}
	if g.FixedStatus != "" {
		if err := g.FixedStatus.Validate(); err != nil {
			return fmt.Errorf("invalid fixed status: %w", err)
		}
	}
	return nil
}

// ConnectionShape is the visual curve of a connection.
type ConnectionShape string

const (
	ShapeBezier   ConnectionShape = "bezier"
	ShapeStraight ConnectionShape = "straight"
)

// Validate checks if the ConnectionShape is a valid enum value.
func (cs ConnectionShape) Validate() error {
	switch cs {
	case ShapeBezier, ShapeStraight:
		return nil
	default:
		return fmt.Errorf("unknown connection shape: %q", cs)
	}
}

// ConnectionStyle is the stroke style of a connection.
type ConnectionStyle string

const (
	StyleSolid  ConnectionStyle = "solid"
	StyleDashed ConnectionStyle = "dashed"
)

// Validate checks if the ConnectionStyle is a valid enum value.
func (cs ConnectionStyle) Validate() error {
	switch cs {
	case StyleSolid, StyleDashed:
		return nil
	default:
		return fmt.Errorf("unknown connection style: %q", cs)
	}
}

// Connection is a directed edge between two tasks. Both endpoints must
// reference tasks present on the board; the engine prunes connections in
// the same state transition that deletes an endpoint task.
type Connection struct {
	ID     string          `json:"id"`     // Server-assigned identifier
	FromID string          `json:"from_id"` // Source task ID
	ToID   string          `json:"to_id"`   // Target task ID
	Shape  ConnectionShape `json:"shape"`
	Style  ConnectionStyle `json:"style"`
}

// Validate checks if the Connection has valid field values.
// Endpoint existence is checked by the engine against the live board.
func (c *Connection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("connection ID cannot be empty")
	}
	if c.FromID == "" || c.ToID == "" {
		return fmt.Errorf("connection endpoints cannot be empty")
	}
	if c.FromID == c.ToID {
		return fmt.Errorf("connection cannot target its own source task")
	}
	if err := c.Shape.Validate(); err != nil {
		return fmt.Errorf("invalid connection shape: %w", err)
	}
	if err := c.Style.Validate(); err != nil {
		return fmt.Errorf("invalid connection style: %w", err)
	}
	return nil
}

// Member is a user visible on a board, with presence pushed by the socket
// channel.
type Member struct {
	ID        string `json:"id"`         // User identifier
	Name      string `json:"name"`       // Display name
	AvatarURL string `json:"avatar_url"` // Profile image, may be empty
	IsOnline  bool   `json:"is_online"`  // Presence flag, socket-maintained
}

// Comment is one entry in a task's discussion thread.
type Comment struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id"`
	Body        string `json:"body"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// Attachment is file metadata attached to a task. The file body itself is
// fetched separately over REST.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	SizeByte int64  `json:"size_byte"`
}

// Snapshot is a point-in-time copy of one board's collections, as returned
// by the REST bootstrap and by the engine to read-only consumers.
type Snapshot struct {
	ProjectID   string       `json:"project_id"`
	Tasks       []Task       `json:"tasks"`
	Groups      []Group      `json:"groups"`
	Connections []Connection `json:"connections"`
	Members     []Member     `json:"members"`
}

// NewID returns a fresh client-generated identifier, used for optimistic
// creates and for pending-mutation correlation tokens.
func NewID() string {
	return uuid.New().String()
}
