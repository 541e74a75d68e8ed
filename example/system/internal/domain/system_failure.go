// Package domain holds the records the system jobs read and write.
package domain

import (
	"fmt"
	"time"
)

// FailureDateTimeLayout is the layout of errorDateTime in every failure report.
const FailureDateTimeLayout = "2006-01-02 15:04:05"

// SystemFailure is one line of a failure report.
type SystemFailure struct {
	ErrorID       string    `batch:"errorId"`
	ErrorDateTime time.Time `batch:"errorDateTime"`
	Severity      string    `batch:"severity"`
	ProcessID     int       `batch:"processId"`
	ErrorMessage  string    `batch:"errorMessage"`
}

func (f SystemFailure) String() string {
	return fmt.Sprintf("SystemFailure(errorId=%s, errorDateTime=%s, severity=%s, processId=%d, errorMessage=%s)",
		f.ErrorID, f.ErrorDateTime.Format(FailureDateTimeLayout), f.Severity, f.ProcessID, f.ErrorMessage)
}

// IsCritical reports whether the failure needs an operator.
func (f SystemFailure) IsCritical() bool {
	return f.Severity == "CRITICAL" || f.Severity == "FATAL"
}

// FailureRecord is the columnar form of a SystemFailure.
type FailureRecord struct {
	ErrorID       string `parquet:"name=error_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ErrorDateTime int64  `parquet:"name=error_date_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Severity      string `parquet:"name=severity, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProcessID     int32  `parquet:"name=process_id, type=INT32"`
	ErrorMessage  string `parquet:"name=error_message, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// NewFailureRecord converts f.
func NewFailureRecord(f SystemFailure) FailureRecord {
	return FailureRecord{
		ErrorID:       f.ErrorID,
		ErrorDateTime: f.ErrorDateTime.UnixMilli(),
		Severity:      f.Severity,
		ProcessID:     int32(f.ProcessID),
		ErrorMessage:  f.ErrorMessage,
	}
}

// FailureRow is a SystemFailure stored in the system_failure table.
type FailureRow struct {
	ErrorID       string    `gorm:"column:error_id;primaryKey;size:16"`
	ErrorDateTime time.Time `gorm:"column:error_date_time"`
	Severity      string    `gorm:"column:severity;size:16;index"`
	ProcessID     int       `gorm:"column:process_id"`
	ErrorMessage  string    `gorm:"column:error_message;size:255"`
}

func (FailureRow) TableName() string { return "system_failure" }

// NewFailureRow converts f.
func NewFailureRow(f SystemFailure) FailureRow {
	return FailureRow{
		ErrorID:       f.ErrorID,
		ErrorDateTime: f.ErrorDateTime,
		Severity:      f.Severity,
		ProcessID:     f.ProcessID,
		ErrorMessage:  f.ErrorMessage,
	}
}
