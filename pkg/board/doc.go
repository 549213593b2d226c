// Package board defines the domain types shared by every Corkboard
// component: tasks, groups, connections, and members, plus the wire codec
// that translates the server's snake_case socket messages into typed domain
// deltas.
//
// The board is a freeform 2-D canvas. Tasks carry absolute pixel positions
// and optionally belong to a group, a positioned rectangular container.
// Connections are directed edges between two tasks. The reconciliation
// engine (internal/engine) owns the authoritative collections of these
// types; everything else reads snapshots or submits mutation intents.
//
// Two status vocabularies are in active use. Boards use
// todo/in-progress/done; the legacy planner view uses inbox/todo/doing/done.
// Both are valid Status values and are stored losslessly. NormalizeToBoard
// and NormalizeToPlanner provide the documented mapping between them.
package board
