package embedding

import (
	"strings"

	"github.com/podlove/podlove-backend/internal/domain"
)

// personality phrase poles per axis, chosen by fixed thresholds:
// value <= 3 gets the low pole, value >= 5 the high pole, 4 the middle.
var personalityPhrases = [3][3]string{
	{"Prefers quiet, introspective settings", "Balances social energy with alone time", "Thrives in lively, social settings"},
	{"Leads with logic and structure", "Weighs head and heart evenly", "Leads with emotion and intuition"},
	{"Grounded in the present moment", "Splits attention between today and tomorrow", "Focused on long-term plans and dreams"},
}

func personalityPhrase(axis, value int) string {
	switch {
	case value <= 3:
		return personalityPhrases[axis][0]
	case value >= 5:
		return personalityPhrases[axis][2]
	default:
		return personalityPhrases[axis][1]
	}
}

// BuildProfileText deterministically concatenates the embeddable profile
// sections in fixed order: bio, interests, personality phrases,
// compatibility answers, survey answers, ethnicity. Empty sections are
// omitted entirely; present sections are separated by a blank line.
func BuildProfileText(u *domain.User) string {
	var sections []string

	if u.Bio != "" {
		sections = append(sections, u.Bio)
	}

	if len(u.Interests) > 0 {
		sections = append(sections, "Interests: "+strings.Join(u.Interests, ", "))
	}

	if p := u.Personality; p.Spectrum != 0 || p.Balance != 0 || p.Focus != 0 {
		phrases := []string{
			personalityPhrase(0, p.Spectrum),
			personalityPhrase(1, p.Balance),
			personalityPhrase(2, p.Focus),
		}
		sections = append(sections, "Personality: "+strings.Join(phrases, ". "))
	}

	if answers := joinAnswers(u.CompatibilityAnswers); answers != "" {
		sections = append(sections, "About relationships: "+answers)
	}

	if answers := joinAnswers(u.SurveyAnswers); answers != "" {
		sections = append(sections, "Survey: "+answers)
	}

	if u.Ethnicity != "" {
		sections = append(sections, "Ethnicity: "+string(u.Ethnicity))
	}

	return strings.Join(sections, "\n\n")
}

func joinAnswers(answers []string) string {
	var kept []string
	for _, a := range answers {
		if strings.TrimSpace(a) != "" {
			kept = append(kept, strings.TrimSpace(a))
		}
	}
	return strings.Join(kept, ". ")
}
