package model

import "time"

// TicketFact is one normalized ticket row in the warehouse. The primary key
// is the external reference number; upserting an existing id overwrites every
// other column. Dimension ids and the stored day counts are nil when the
// source reported 0 or nothing at all.
type TicketFact struct {
	ID                   int64      `gorm:"primaryKey;column:id"`
	AgentGroupID         *int64     `gorm:"column:agent_group_id"`
	TaskStatusID         *int64     `gorm:"column:task_status_id"`
	CreatedDate          *time.Time `gorm:"column:created_date;type:date"`
	ClosedDate           *time.Time `gorm:"column:closed_date;type:date"`
	OpenDays             *int       `gorm:"column:open_days"`
	QueueDays            *int       `gorm:"column:queue_days"`
	Priority             *string    `gorm:"column:priority"`
	Agent                *string    `gorm:"column:agent"`
	User                 *string    `gorm:"column:user"`
	TicketTitle          *string    `gorm:"column:ticket_title"`
	StartDate            *time.Time `gorm:"column:start_date;type:date"`
	EndDate              *time.Time `gorm:"column:end_date;type:date"`
	Duration             *int       `gorm:"column:duration"`
	TaskTypeID           *int64     `gorm:"column:task_type_id"`
	TaskAreaID           *int64     `gorm:"column:task_area_id"`
	ReasonForRejectionID *int64     `gorm:"column:reason_for_rejection_id"`
	DaysTillStart        int        `gorm:"column:days_till_start"`
	OffsetDuration       int        `gorm:"column:offset_duration"`
	LastUpdated          *time.Time `gorm:"column:last_updated"`
}

func (TicketFact) TableName() string { return "tickets" }

// DimensionRow is one distinct id/label pair extracted from a batch, before
// it is mapped onto the concrete dimension table for its kind.
type DimensionRow struct {
	ID    int64
	Label string
}

type AgentGroup struct {
	ID    int64  `gorm:"primaryKey;column:id"`
	Group string `gorm:"column:group"`
}

func (AgentGroup) TableName() string { return "agent_groups" }

type TaskType struct {
	ID   int64  `gorm:"primaryKey;column:id"`
	Type string `gorm:"column:type"`
}

func (TaskType) TableName() string { return "task_types" }

type TaskArea struct {
	ID   int64  `gorm:"primaryKey;column:id"`
	Area string `gorm:"column:area"`
}

func (TaskArea) TableName() string { return "task_areas" }

type TaskStatus struct {
	ID     int64  `gorm:"primaryKey;column:id"`
	Status string `gorm:"column:status"`
}

func (TaskStatus) TableName() string { return "task_status" }

type ReasonForRejection struct {
	ID     int64  `gorm:"primaryKey;column:id"`
	Reason string `gorm:"column:reason"`
}

func (ReasonForRejection) TableName() string { return "reasons_for_rejection" }
