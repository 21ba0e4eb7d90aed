package models

type CourseType string

const (
	CourseTypeUnknown              CourseType = "unknown"
	CourseTypeCore                 CourseType = "core"
	CourseTypeTechnicalElective    CourseType = "technical_elective"
	CourseTypeHumanitarianElective CourseType = "humanitarian_elective"
)

type CourseDegree string

const (
	CourseDegreeUnknown   CourseDegree = "unknown"
	CourseDegreeMasters   CourseDegree = "masters"
	CourseDegreeBachelors CourseDegree = "bachelors"
)

// Course is imported from the LMS and never mutated by the sync engine;
// the engine only reads it to classify chats into folders.
type Course struct {
	ID        string       `gorm:"type:varchar(64);primaryKey"`
	MoodleID  *int64       `gorm:"column:moodle_id"`
	FullName  string       `gorm:"type:varchar(255);not null"`
	ShortName string       `gorm:"type:varchar(128);not null"`
	Year      *int
	Type      CourseType   `gorm:"type:varchar(32);not null;default:'unknown'"`
	Degree    CourseDegree `gorm:"type:varchar(16);not null;default:'unknown'"`
}

func (Course) TableName() string { return "courses" }
