package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/personamesh/core"
	"github.com/hupe1980/personamesh/model"
)

// synthesizeAnalysis produces the final report for a completed session: for
// workflow sessions categorized design implications and lane pain points,
// for conversation sessions a thematic summary. A failed generation yields a
// degraded placeholder carrying only counts and timings; the session
// completes either way.
func (e *Engine) synthesizeAnalysis(sess *core.MultiAgentSession) *core.AnalysisResult {
	transcript := sess.Transcript()
	result := &core.AnalysisResult{
		MessageCount: len(transcript),
		AgentCount:   len(sess.AgentIDs()),
		Duration:     time.Since(sess.StartedAt),
		GeneratedAt:  time.Now().UTC(),
	}

	var prompt string
	if sess.Workflow != nil {
		prompt = e.workflowAnalysisPrompt(sess, transcript)
	} else {
		prompt = e.conversationAnalysisPrompt(sess, transcript)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.GenerationTimeout)
	defer cancel()
	text, err := e.completer.Complete(ctx, model.Request{
		UserPrompt:  prompt,
		MaxTokens:   e.cfg.AnalysisMaxTokens,
		Temperature: e.cfg.AnalysisTemperature,
	})
	if err != nil {
		e.logger.Warn("analysis generation failed", "session_id", sess.ID, "error", err)
		result.Summary = "Analysis generation failed"
		result.Degraded = true
		return result
	}

	if sess.Workflow != nil {
		e.decodeWorkflowAnalysis(sess, text, result)
	} else {
		result.Summary = text
	}
	return result
}

// workflowReport is the JSON shape the analysis prompt asks the model to
// produce for workflow sessions.
type workflowReport struct {
	Summary      string `json:"summary"`
	Implications []struct {
		Category       string `json:"category"`
		Severity       string `json:"severity"`
		Description    string `json:"description"`
		Recommendation string `json:"recommendation"`
	} `json:"implications"`
	PainPoints []struct {
		LaneID      string `json:"laneId"`
		Severity    string `json:"severity"`
		Description string `json:"description"`
	} `json:"painPoints"`
}

// decodeWorkflowAnalysis parses the structured report, tolerating fenced or
// otherwise malformed model output by keeping the raw text as the summary.
func (e *Engine) decodeWorkflowAnalysis(sess *core.MultiAgentSession, text string, result *core.AnalysisResult) {
	var report workflowReport
	if err := json.Unmarshal([]byte(stripFences(text)), &report); err != nil {
		result.Summary = text
		return
	}
	result.Summary = report.Summary
	for _, imp := range report.Implications {
		result.Implications = append(result.Implications, core.DesignImplication{
			Category:       core.ImplicationCategory(imp.Category),
			Severity:       core.PainSeverity(imp.Severity),
			Description:    imp.Description,
			Recommendation: imp.Recommendation,
		})
	}
	for _, pp := range report.PainPoints {
		point := core.LanePainPoint{
			LaneID:      pp.LaneID,
			Severity:    core.PainSeverity(pp.Severity),
			Description: pp.Description,
		}
		if sess.Workflow != nil {
			if lane := sess.Workflow.Lane(pp.LaneID); lane != nil {
				point.LaneName = lane.Name
				point.PersonaID = lane.PersonaID
			}
		}
		result.PainPoints = append(result.PainPoints, point)
	}
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func (e *Engine) conversationAnalysisPrompt(sess *core.MultiAgentSession, transcript []core.AgentMessage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this multi-agent conversation between %d different personas:\n\n", len(sess.AgentIDs()))
	sb.WriteString("Participants:\n")
	for _, id := range sess.AgentIDs() {
		agent := sess.Agent(id)
		fmt.Fprintf(&sb, "- %s: %d messages\n", agent.Name, agent.MessageCount)
	}
	sb.WriteString("\nMessages:\n")
	writeTranscript(&sb, transcript)
	sb.WriteString("\nProvide analysis including:\n")
	sb.WriteString("1. Key themes discussed\n")
	sb.WriteString("2. Different perspectives shown\n")
	sb.WriteString("3. Interaction patterns\n")
	sb.WriteString("4. Insights about each persona's behavior\n")
	sb.WriteString("5. Overall conversation dynamics\n\nAnalysis:")
	return sb.String()
}

func (e *Engine) workflowAnalysisPrompt(sess *core.MultiAgentSession, transcript []core.AgentMessage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this workflow walkthrough by %d personas, each following a swim lane of actions.\n\n", len(sess.AgentIDs()))
	if sess.SystemInfo != nil && sess.SystemInfo.Title != "" {
		fmt.Fprintf(&sb, "Product under test: %s\n\n", sess.SystemInfo.Title)
	}
	sb.WriteString("Swim lanes:\n")
	for _, lane := range sess.Workflow.SwimLanes {
		fmt.Fprintf(&sb, "- %s (%s): %d actions\n", lane.Name, lane.ID, len(lane.Actions))
	}
	sb.WriteString("\nTranscript:\n")
	writeTranscript(&sb, transcript)
	sb.WriteString("\nReturn a JSON object with fields:\n")
	sb.WriteString(`- "summary": overall findings` + "\n")
	sb.WriteString(`- "implications": array of {"category": one of ui|functionality|accessibility|content|technical|behavioral, "severity": one of critical|high|medium|low, "description", "recommendation"}` + "\n")
	sb.WriteString(`- "painPoints": array of {"laneId", "severity", "description"} for collaborative friction keyed by swim lane` + "\n")
	sb.WriteString("\nJSON only, no prose around it.")
	return sb.String()
}

func writeTranscript(sb *strings.Builder, transcript []core.AgentMessage) {
	for _, m := range transcript {
		name := m.Meta.AgentName
		if name == "" {
			name = m.FromAgentID
		}
		fmt.Fprintf(sb, "%s: %s\n", name, m.Content)
	}
}
