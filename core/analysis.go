package core

import "time"

// ImplicationCategory buckets design implications extracted from a workflow
// session.
type ImplicationCategory string

const (
	// ImplicationUI covers interface-level findings.
	ImplicationUI ImplicationCategory = "ui"
	// ImplicationFunctionality covers feature gaps.
	ImplicationFunctionality ImplicationCategory = "functionality"
	// ImplicationAccessibility covers inclusive design findings.
	ImplicationAccessibility ImplicationCategory = "accessibility"
	// ImplicationContent covers copy and information findings.
	ImplicationContent ImplicationCategory = "content"
	// ImplicationTechnical covers platform findings.
	ImplicationTechnical ImplicationCategory = "technical"
	// ImplicationBehavioral covers observed persona behavior.
	ImplicationBehavioral ImplicationCategory = "behavioral"
)

// PainSeverity ranks collaborative pain points.
type PainSeverity string

const (
	// PainCritical blocks the persona outright.
	PainCritical PainSeverity = "critical"
	// PainHigh substantially slows the persona down.
	PainHigh PainSeverity = "high"
	// PainMedium is an annoyance with a workaround.
	PainMedium PainSeverity = "medium"
	// PainLow is a polish-level finding.
	PainLow PainSeverity = "low"
)

// DesignImplication is one categorized finding from a workflow session.
type DesignImplication struct {
	Category       ImplicationCategory `json:"category"`
	Severity       PainSeverity        `json:"severity"`
	Description    string              `json:"description"`
	Recommendation string              `json:"recommendation,omitempty"`
}

// LanePainPoint keys a collaborative pain point to the swim lane where it
// was observed.
type LanePainPoint struct {
	LaneID      string       `json:"laneId"`
	LaneName    string       `json:"laneName,omitempty"`
	PersonaID   string       `json:"personaId,omitempty"`
	Severity    PainSeverity `json:"severity"`
	Description string       `json:"description"`
}

// AnalysisResult is the final report produced once per session after
// completion. Degraded is set when generation failed and only counts and
// timings could be produced.
type AnalysisResult struct {
	Summary      string              `json:"summary"`
	Implications []DesignImplication `json:"implications,omitempty"`
	PainPoints   []LanePainPoint     `json:"painPoints,omitempty"`
	MessageCount int                 `json:"messageCount"`
	AgentCount   int                 `json:"agentCount"`
	Duration     time.Duration       `json:"duration"`
	GeneratedAt  time.Time           `json:"generatedAt"`
	Degraded     bool                `json:"degraded,omitempty"`
}
