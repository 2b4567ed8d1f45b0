// Package ui implements an interactive terminal monitor using bubbletea's Elm architecture.
//
// The TUI provides a two-view workflow for watching collection tasks:
//  1. [TaskListView] : Browse recent tasks with live status and progress
//  2. [TaskDetailView] : Inspect one task's counters, timestamps and errors
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// A ticker re-fetches the visible view every two seconds, so running tasks
// update in place without any user input.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
