package store

import (
	"time"

	"github.com/opensocialmonitor/vigil/detection"

	"gorm.io/gorm"
)

// MonitoredAccount is an account whose recent posts get scanned on a
// schedule. LastChecked is nil until the first scan completes, which makes
// freshly added accounts immediately due.
type MonitoredAccount struct {
	gorm.Model
	Username    string `gorm:"uniqueIndex"`
	Platform    string `gorm:"index"`
	Active      bool   `gorm:"index"`
	LastChecked *time.Time
}

// ProcessedPost records that a post's comments were already scanned, so
// periodic sweeps don't re-analyze (and re-warn on) the same post.
type ProcessedPost struct {
	gorm.Model
	PostID   string `gorm:"uniqueIndex"`
	URL      string
	Account  string `gorm:"index"`
	Platform string
}

// Detection is one account that crossed the likelihood threshold on one
// comment. Rows stay pending (WarningSent false) until an operator approves
// or rejects the warning reply.
type Detection struct {
	gorm.Model
	Username        string `gorm:"index"`
	CommentID       string `gorm:"index"`
	CommentText     string
	PostID          string `gorm:"index"`
	PostURL         string
	Likelihood      float64
	Indicators      detection.Indicators `gorm:"serializer:json"`
	SchemaVersion   int
	WarningSent     bool `gorm:"index"`
	WarningApproved bool
}

// CoordinationReport is one cluster of near-identical comments from multiple
// accounts on a single post.
type CoordinationReport struct {
	gorm.Model
	PostID       string `gorm:"index"`
	Text         string
	Users        []string `gorm:"serializer:json"`
	CommentCount int
	Confidence   float64
}
