// Package models provides request and response models for the dispatcher's
// ops and admin API.
package models

import "time"

// HealthStatus represents the health status of the service or a subsystem.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall dispatcher status.
type SystemStatus struct {
	Status                    HealthStatus           `json:"status"`
	Time                      Timestamp              `json:"time"`
	Subsystems                []SubsystemStatus      `json:"subsystems"`
	Dispatch                  map[string]interface{} `json:"dispatch"`
	DuplicateDetectionEnabled bool                   `json:"duplicateDetectionEnabled"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// DuplicateDetectionRequest toggles the duplicate detection escape hatch.
type DuplicateDetectionRequest struct {
	Enabled *bool `json:"enabled"`
}

// DuplicateDetectionResponse reports the current toggle state.
type DuplicateDetectionResponse struct {
	Enabled bool `json:"enabled"`
}

// Timestamp is a helper type for time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
