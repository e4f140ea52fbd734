package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogLevel tags a feed log record.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// normalizeLogLevel maps unknown upstream levels to info rather than failing
// the whole snapshot over one malformed record.
func normalizeLogLevel(l LogLevel) LogLevel {
	switch l {
	case LogInfo, LogWarn, LogError, LogSuccess:
		return l
	default:
		return LogInfo
	}
}

// LogRecord is one entry of the snapshot's log feed.
type LogRecord struct {
	Type      LogLevel  `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// AttackEvent describes one abstract attack flow between two countries.
// From/To are ISO 3166-1 alpha-2 codes resolved against the coordinate table;
// events with unresolvable codes are dropped before animation.
type AttackEvent struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Type      string `json:"type"`
	Intensity int    `json:"intensity,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Headline is the detailed form of a ticker headline.
type Headline struct {
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Stats carries the upstream generator's raw feed counters, displayed as-is.
type Stats struct {
	TotalCVEs          int `json:"totalCVEs,omitempty"`
	CriticalCVEs       int `json:"criticalCVEs,omitempty"`
	ActiveMalwareURLs  int `json:"activeMalwareURLs,omitempty"`
	BotnetIPs          int `json:"botnetIPs,omitempty"`
	RansomwareVictims  int `json:"ransomwareVictims,omitempty"`
	ActiveRansomGroups int `json:"activeRansomGroups,omitempty"`
}

// SourceStatus reports one upstream feed's availability.
type SourceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// Snapshot is the externally supplied point-in-time document driving all
// rendering. Immutable once parsed; the controller replaces it wholesale on
// each successful poll.
type Snapshot struct {
	LastUpdated       time.Time             `json:"lastUpdated,omitempty"`
	UpdateInterval    int                   `json:"updateInterval,omitempty"` // seconds; overrides poll cadence when set
	ChaosIndex        *float64              `json:"chaosIndex,omitempty"`
	DataQuality       string                `json:"dataQuality,omitempty"`
	ChaosFactors      map[string]FactorLive `json:"chaosFactors"`
	Attacks           []AttackEvent         `json:"attacks"`
	Headlines         []string              `json:"headlines"`
	HeadlinesDetailed []Headline            `json:"headlinesDetailed,omitempty"`
	Logs              []LogRecord           `json:"logs"`
	Stats             Stats                 `json:"stats,omitempty"`
	Sources           []SourceStatus        `json:"sources,omitempty"`
}

// ParseSnapshot deserializes and normalizes an upstream snapshot document.
// Unknown log levels are coerced to info and attack country codes are
// upper-cased; everything else is taken verbatim, as the snapshot is
// authoritative and validation beyond JSON shape happens where the data is
// consumed (coordinate resolution, factor eligibility).
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	for i := range snap.Logs {
		snap.Logs[i].Type = normalizeLogLevel(snap.Logs[i].Type)
	}
	for i := range snap.Attacks {
		snap.Attacks[i].From = normalizeCountryCode(snap.Attacks[i].From)
		snap.Attacks[i].To = normalizeCountryCode(snap.Attacks[i].To)
	}

	return &snap, nil
}

// PollInterval returns the snapshot's advertised refresh cadence, or def when
// the snapshot does not carry one.
func (s *Snapshot) PollInterval(def time.Duration) time.Duration {
	if s == nil || s.UpdateInterval <= 0 {
		return def
	}
	return time.Duration(s.UpdateInterval) * time.Second
}

// Stale reports whether the snapshot is older than twice its advertised
// refresh cadence. Snapshots without a LastUpdated stamp are never stale;
// there is nothing to measure against.
func (s *Snapshot) Stale(def time.Duration) bool {
	if s == nil || s.LastUpdated.IsZero() {
		return false
	}
	return clock.Now().Sub(s.LastUpdated) > 2*s.PollInterval(def)
}
