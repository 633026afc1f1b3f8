package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/manager"
	"github.com/taskdeck/taskdeck/internal/model"
)

type formField struct {
	Label  string
	Value  string
	Masked bool
}

const (
	fieldTitle = iota
	fieldDescription
	fieldCategory
	fieldAssignee
	fieldPriority
	fieldStatus
	fieldDue
)

func buildTaskFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Category"},
		{Label: "Assign to"},
		{Label: "Priority (space/←→)"},
		{Label: "Status (space/←→)"},
		{Label: "Due (YYYY-MM-DD)"},
	}

	if task == nil {
		fields[fieldPriority].Value = string(model.PriorityMedium)
		fields[fieldStatus].Value = string(model.StatusPending)
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	fields[fieldCategory].Value = task.CategoryName
	fields[fieldAssignee].Value = task.AssignedToUsername
	fields[fieldPriority].Value = string(task.Priority)
	fields[fieldStatus].Value = string(task.Status)
	if task.DueDate != nil {
		fields[fieldDue].Value = task.DueDate.Local().Format("2006-01-02")
	}
	return fields
}

func parseTaskInput(fields []formField) (manager.TaskInput, error) {
	due, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return manager.TaskInput{}, err
	}
	return manager.TaskInput{
		Title:       strings.TrimSpace(fields[fieldTitle].Value),
		Description: strings.TrimSpace(fields[fieldDescription].Value),
		Category:    strings.TrimSpace(fields[fieldCategory].Value),
		AssignedTo:  strings.TrimSpace(fields[fieldAssignee].Value),
		Priority:    model.Priority(strings.TrimSpace(strings.ToLower(fields[fieldPriority].Value))),
		DueDate:     due,
	}, nil
}

func parseTaskUpdate(fields []formField) (manager.TaskUpdate, error) {
	due, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return manager.TaskUpdate{}, err
	}

	title := strings.TrimSpace(fields[fieldTitle].Value)
	description := strings.TrimSpace(fields[fieldDescription].Value)
	category := strings.TrimSpace(fields[fieldCategory].Value)
	assignee := strings.TrimSpace(fields[fieldAssignee].Value)
	status := model.Status(strings.TrimSpace(strings.ToLower(fields[fieldStatus].Value)))
	priority := model.Priority(strings.TrimSpace(strings.ToLower(fields[fieldPriority].Value)))

	upd := manager.TaskUpdate{
		Title:       &title,
		Description: &description,
		Category:    &category,
		AssignedTo:  &assignee,
		Status:      &status,
		Priority:    &priority,
		DueDate:     due,
	}
	if due == nil {
		upd.ClearDue = true
	}
	return upd, nil
}

func parseDue(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date")
	}
	return &parsed, nil
}

// --- login form ---

const (
	loginFieldUsername = iota
	loginFieldPassword
	loginFieldEmail
)

func buildLoginFormFields(register bool) []formField {
	fields := []formField{
		{Label: "Username"},
		{Label: "Password", Masked: true},
	}
	if register {
		fields = append(fields, formField{Label: "Email (optional)"})
	}
	return fields
}

func isCycleField(label string) bool {
	return strings.HasPrefix(label, "Priority") || strings.HasPrefix(label, "Status")
}

func nextEnumValue(label, current string, delta int) string {
	var order []string
	if strings.HasPrefix(label, "Priority") {
		for _, p := range model.ValidPriorities() {
			order = append(order, string(p))
		}
	} else {
		for _, s := range model.ValidStatuses() {
			order = append(order, string(s))
		}
	}

	value := strings.TrimSpace(strings.ToLower(current))
	index := 0
	for i, entry := range order {
		if entry == value {
			index = i
			break
		}
	}
	index = (index + delta + len(order)) % len(order)
	return order[index]
}
