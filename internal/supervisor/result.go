package supervisor

import "github.com/xyla-io/raspador/internal/metrics"

type MissionResult struct {
	MissionID string                  `json:"mission_id"`
	Name      string                  `json:"name"`
	State     string                  `json:"state"`
	Error     string                  `json:"error,omitempty"`
	Report    string                  `json:"report,omitempty"`
	Metrics   *metrics.MissionMetrics `json:"metrics,omitempty"`
}
