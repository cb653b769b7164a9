package models

import "time"

// Source tags where a data point came from
type Source string

const (
	SourceReal      Source = "real"
	SourceSynthetic Source = "synthetic"
)

// DataPoint is a single immutable observation of a metric
type DataPoint struct {
	Timestamp   time.Time    `json:"timestamp"`
	Value       float64      `json:"value"`
	Source      Source       `json:"source"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Annotations carries optional diagnostic fields attached to a point.
// Nothing in the forecasting path reads them.
type Annotations struct {
	Hosts     *int   `json:"hosts,omitempty"`     // hypervisors / nodes seen by the source
	Instances *int   `json:"instances,omitempty"` // running workloads
	Volumes   *int   `json:"volumes,omitempty"`   // block volumes summed into storage
	RoundID   string `json:"round_id,omitempty"`
}

// Clone returns a deep copy of a. Nil stays nil.
func (a *Annotations) Clone() *Annotations {
	if a == nil {
		return nil
	}
	return &Annotations{
		Hosts:     cloneInt(a.Hosts),
		Instances: cloneInt(a.Instances),
		Volumes:   cloneInt(a.Volumes),
		RoundID:   a.RoundID,
	}
}

// Copy returns p with its annotations deep-copied
func (p DataPoint) Copy() DataPoint {
	p.Annotations = p.Annotations.Clone()
	return p
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	return IntPtr(*v)
}

// IntPtr is a small helper for filling optional annotation fields
func IntPtr(v int) *int {
	return &v
}

// CollectorState is the connection state of the collection loop
type CollectorState string

const (
	StateIdle       CollectorState = "idle"
	StateConnecting CollectorState = "connecting"
	StateCollecting CollectorState = "collecting"
)

// Utilization is the compute payload returned by a metric source
type Utilization struct {
	CPUPercent float64
	RAMPercent float64
	Hosts      int
	Instances  int
}

// StorageUsage is the block storage payload returned by a metric source
type StorageUsage struct {
	TotalGB float64
	Volumes int
}
