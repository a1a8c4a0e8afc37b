package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultApplicationStatus 是新建投递记录的默认状态。
const DefaultApplicationStatus = "Applied"

// User 表示通过 Google 身份登录的账号，首次校验成功时创建。
type User struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Email        string           `gorm:"uniqueIndex;size:120;not null"`
	Name         string           `gorm:"size:100"`
	ProfilePic   string           `gorm:"size:512"`
	CreatedAt    time.Time        `gorm:"autoCreateTime"`
	Resumes      []Resume         `gorm:"constraint:OnDelete:CASCADE"`
	Applications []JobApplication `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示上传到对象存储的 PDF 简历。
type Resume struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`
	ObjectKey  string    `gorm:"size:512;not null"`
	Filename   string    `gorm:"size:255;not null"`
	FileURL    string    `gorm:"size:1024;not null"`
	SizeBytes  int64
	PageCount  int
	UploadedAt time.Time `gorm:"autoCreateTime;index"`
}

// JobApplication 表示一条投递记录；ResumeUsed 可为空。
type JobApplication struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"type:uuid;index;not null"`
	ResumeUsed        *uuid.UUID `gorm:"type:uuid;index"`
	Resume            *Resume    `gorm:"foreignKey:ResumeUsed;constraint:OnDelete:SET NULL"`
	CompanyName       string     `gorm:"size:100;not null"`
	Title             string     `gorm:"size:255;not null"`
	JobType           string     `gorm:"size:50"`
	Location          string     `gorm:"size:100"`
	ApplicationURL    string     `gorm:"size:1024"`
	ApplicationMethod string     `gorm:"size:100"`
	Description       string     `gorm:"type:text"`
	Status            string     `gorm:"size:50;default:Applied"`
	AppliedAt         time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (r *Resume) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (a *JobApplication) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = DefaultApplicationStatus
	}
	return nil
}
