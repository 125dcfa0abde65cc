// Package profile derives a normalized StudentProfile from a student's
// free-text query and/or structured assessment answers.
//
// Extraction is a fixed-table phrase tagger, not a parser. It never
// fails: a query with no recognizable phrases yields a well-formed
// profile with empty sets and unknown need.
package profile

import (
	"sort"
	"strings"

	"github.com/khetha-app/khetha/pkg/types"
)

// Extract derives a StudentProfile from free query text.
//
// The function is pure: identical input always yields an identical
// profile, and no state is shared between calls.
func Extract(queryText string) types.StudentProfile {
	text := strings.ToLower(queryText)

	p := types.StudentProfile{
		Strengths:  matchTags(text, strengthPhrases),
		Weaknesses: matchTags(text, weaknessPhrases),
		Interests:  matchTags(text, interestPhrases),
		NeedLevel:  detectNeed(text),
	}
	p.PriorityModules = PriorityModules(&p)
	return p
}

// FromAssessment normalizes a structured assessment into the same
// StudentProfile shape that Extract produces for free text.
//
// Declared interests are taken as-is (lowercased); constraint and
// open-question answers are run through the same phrase tagger as free
// text, and the results merged by set union.
func FromAssessment(a types.Assessment) types.StudentProfile {
	// Tag everything the student wrote in their own words.
	var sb strings.Builder
	for _, c := range a.Constraints {
		sb.WriteString(c)
		sb.WriteString(". ")
	}
	for _, q := range a.OpenQuestions {
		sb.WriteString(q.Answer)
		sb.WriteString(". ")
	}
	freeText := sb.String()
	p := Extract(freeText)

	p.Grade = a.Grade
	p.Marks = a.Marks
	for _, interest := range a.Interests {
		p.Interests = unionAppend(p.Interests, strings.ToLower(strings.TrimSpace(interest)))
	}
	sort.Strings(p.Interests)

	for _, q := range a.OpenQuestions {
		answer := strings.ToLower(q.Answer)
		switch {
		case containsAny(answer, []string{"worried", "worry", "concern", "afraid", "scared", "stress"}):
			p.Concerns = append(p.Concerns, strings.TrimSpace(q.Answer))
		case containsAny(answer, []string{"want to", "dream", "passion", "motivat", "goal", "hope to"}):
			p.Motivations = append(p.Motivations, strings.TrimSpace(q.Answer))
		}
	}

	// Interests or constraints may change the module ordering.
	p.PriorityModules = PriorityModules(&p)
	return p
}

// PriorityModules computes the ordered knowledge-module priority list
// for a profile. The order is deterministic and significant: the
// re-ranker awards a larger boost to earlier entries.
//
// Ordering rules, applied in sequence, then deduplicated preserving the
// first occurrence:
//  1. bursaries, when any financial need was detected
//  2. subject_career_mapping, when a strength or weakness was detected
//  3. careers, always
//  4. 4ir_emerging_jobs, when interests include technology or data
//  5. sa_universities, always
//  6. bursaries, when not already present
func PriorityModules(p *types.StudentProfile) []string {
	var mods []string

	if p.NeedLevel.Known() {
		mods = append(mods, types.ModuleBursaries)
	}
	if p.HasAcademicSignal() {
		mods = append(mods, types.ModuleSubjectCareerMapping)
	}
	mods = append(mods, types.ModuleCareers)
	if hasInterest(p, "technology") || hasInterest(p, "data") {
		mods = append(mods, types.ModuleEmergingJobs)
	}
	mods = append(mods, types.ModuleUniversities)
	if !containsString(mods, types.ModuleBursaries) {
		mods = append(mods, types.ModuleBursaries)
	}

	return dedupeOrdered(mods)
}

// detectNeed resolves the financial-need level. High-need phrases are
// evaluated first; a query matching both levels resolves to high.
func detectNeed(text string) types.NeedLevel {
	if containsAny(text, highNeedPhrases) {
		return types.NeedHigh
	}
	if containsAny(text, moderateNeedPhrases) {
		return types.NeedModerate
	}
	return types.NeedUnknown
}

// matchTags returns the sorted set of tags whose phrase list has at
// least one case-insensitive substring hit in text. Tags accumulate by
// union only; nothing is ever removed.
func matchTags(text string, table map[string][]string) []string {
	var matched []string
	for tag, phrases := range table {
		if containsAny(text, phrases) {
			matched = append(matched, tag)
		}
	}
	sort.Strings(matched)
	return matched
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func hasInterest(p *types.StudentProfile, tag string) bool {
	return containsString(p.Interests, tag)
}

// unionAppend appends s to set when not already present and s is non-empty.
func unionAppend(set []string, s string) []string {
	if s == "" || containsString(set, s) {
		return set
	}
	return append(set, s)
}

// dedupeOrdered removes duplicates preserving first-occurrence order.
func dedupeOrdered(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, item := range list {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
