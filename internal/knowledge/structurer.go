package knowledge

import (
	"fmt"
	"strings"

	"github.com/khetha-app/khetha/pkg/types"
)

const sectionPlaceholder = "Not provided."

// BuildFinalContext merges profile, admission feasibility and the
// assembled knowledge context into the instruction payload handed to
// the language model.
//
// Section order is fixed: demographics, academics, career priorities,
// motivation, concerns, constraints, then instructions. Marks-derived
// sections come before free-text-derived ones because the academic data
// is authoritative and the extracted signals are heuristic. Every
// header is always emitted; empty sections carry a placeholder line so
// the payload shape never shifts between requests.
func BuildFinalContext(p types.StudentProfile, admission *types.AdmissionProfile, candidates []types.ProgramCandidate, assembled types.AssembledContext) string {
	var sb strings.Builder

	writeSection(&sb, "STUDENT DEMOGRAPHICS", demographics(p))
	writeSection(&sb, "ACADEMIC RESULTS", academics(p, admission, candidates))
	writeSection(&sb, "CAREER PRIORITIES", careerPriorities(p))
	writeSection(&sb, "MOTIVATION", lines(p.Motivations))
	writeSection(&sb, "CONCERNS", lines(p.Concerns))
	writeSection(&sb, "CONSTRAINTS", constraints(p))
	writeSection(&sb, "KNOWLEDGE CONTEXT", strings.TrimRight(assembled.Text, "\n"))
	writeSection(&sb, "INSTRUCTIONS", instructions(assembled))

	return sb.String()
}

func writeSection(sb *strings.Builder, header, body string) {
	sb.WriteString("=== " + header + " ===\n")
	if strings.TrimSpace(body) == "" {
		body = sectionPlaceholder
	}
	sb.WriteString(body)
	sb.WriteString("\n\n")
}

func demographics(p types.StudentProfile) string {
	if p.Grade <= 0 {
		return ""
	}
	return fmt.Sprintf("Grade %d secondary school student in South Africa.", p.Grade)
}

func academics(p types.StudentProfile, ap *types.AdmissionProfile, candidates []types.ProgramCandidate) string {
	if ap == nil || !p.HasMarks() {
		return ""
	}

	var sb strings.Builder
	for _, sp := range ap.SubjectPoints {
		capped := ""
		if sp.Capped {
			capped = " (capped)"
		}
		sb.WriteString(fmt.Sprintf("%s: %.0f%% (%d points%s)\n", sp.Subject, sp.Percentage, sp.Points, capped))
	}
	sb.WriteString(fmt.Sprintf("Current APS: %d. Projected APS with improvement: %d.\n", ap.CurrentAPS, ap.ProjectedAPS))

	if len(candidates) > 0 {
		sb.WriteString("\nProgram feasibility:\n")
		for _, c := range candidates {
			line := fmt.Sprintf("- %s at %s: %s (requires APS %d", c.Program, c.University, c.Feasibility, c.RequiredAPS)
			if c.APSGap > 0 {
				line += fmt.Sprintf(", gap %d", c.APSGap)
			}
			line += ")"
			if len(c.MissedSubjects) > 0 {
				missed := make([]string, 0, len(c.MissedSubjects))
				for _, sm := range c.MissedSubjects {
					missed = append(missed, fmt.Sprintf("%s (min %.0f%%)", sm.Subject, sm.MinPercentage))
				}
				line += " missing: " + strings.Join(missed, ", ")
			}
			sb.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func careerPriorities(p types.StudentProfile) string {
	var sb strings.Builder
	if len(p.Interests) > 0 {
		sb.WriteString("Interests: " + strings.Join(p.Interests, ", ") + "\n")
	}
	if len(p.Strengths) > 0 {
		sb.WriteString("Strengths: " + strings.Join(p.Strengths, ", ") + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func constraints(p types.StudentProfile) string {
	if !p.NeedLevel.Known() {
		return ""
	}
	switch p.NeedLevel {
	case types.NeedHigh:
		return "High financial need: prioritize bursaries, NSFAS and fully funded options."
	case types.NeedModerate:
		return "Moderate financial need: affordability matters, mention bursary options."
	}
	return ""
}

func instructions(assembled types.AssembledContext) string {
	var sb strings.Builder
	sb.WriteString("You are a career guidance counsellor for South African secondary school students.\n")
	sb.WriteString("Ground every recommendation in the knowledge context above. Be concrete: name programs, universities and bursaries.\n")
	sb.WriteString("Treat the academic results as authoritative; the extracted interests and strengths are heuristic signals.\n")
	if len(assembled.Frameworks) > 0 {
		names := make([]string, len(assembled.Frameworks))
		for i, f := range assembled.Frameworks {
			names[i] = f.Name
		}
		sb.WriteString("Apply these decision frameworks where relevant: " + strings.Join(names, ", ") + ".\n")
	}
	if assembled.Meta.Degraded {
		sb.WriteString("Note: knowledge retrieval was unavailable for this request; answer from the profile and academic results only, and say that specific program details could not be verified.\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func lines(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
