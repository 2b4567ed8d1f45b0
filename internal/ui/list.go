package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/textaudit/collector/internal/models"
)

var _ list.Item = taskItem{}

// taskItem wraps [models.TaskSnapshot] to implement [list.Item].
type taskItem struct {
	snapshot models.TaskSnapshot
}

func (i taskItem) FilterValue() string { return i.snapshot.TaskID }
func (i taskItem) Title() string       { return i.snapshot.TaskID }
func (i taskItem) Description() string {
	desc := fmt.Sprintf("%s • %d%%", renderStatus(i.snapshot.Status), i.snapshot.Progress)
	if i.snapshot.CollectedCount > 0 {
		desc = fmt.Sprintf("%s • %d items", desc, i.snapshot.CollectedCount)
	}
	if i.snapshot.ErrorMessage != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.snapshot.ErrorMessage)
	}
	return desc
}
