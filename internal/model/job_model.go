package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Job struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Kind            string         `gorm:"type:varchar(40);not null;index"`
	Status          string         `gorm:"type:varchar(20);not null;index;default:'PENDING'"`
	InputPayload    datatypes.JSON `gorm:"type:jsonb"`
	StepResults     datatypes.JSON `gorm:"type:jsonb"`
	ResultPayload   datatypes.JSON `gorm:"type:jsonb"`
	ErrorStep       string         `gorm:"type:varchar(60)"`
	ErrorKind       string         `gorm:"type:varchar(40)"`
	ErrorMessage    string         `gorm:"type:text"`
	CancelRequested bool           `gorm:"default:false"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	FinishedAt      *time.Time
}

func (Job) TableName() string {
	return "jobs"
}
