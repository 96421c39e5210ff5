package triage

import (
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
)

// Rule maps symptom keywords onto one condition candidate. Confidence is the
// base score for a single keyword hit; additional hits raise it slightly.
type Rule struct {
	Condition        string
	Severity         diagnosis.Severity
	Confidence       int
	Keywords         []string
	Description      string
	ImmediateActions []string
	WhenToSeekHelp   string
}

// localConfidenceCeiling caps keyword-derived confidence. A keyword match is
// weaker evidence than a model assessment, so the local tier never reports
// near-certain scores.
const localConfidenceCeiling = 85

// rules is evaluated in order; earlier entries win ties downstream because the
// ranker sorts stably.
var rules = []Rule{
	{
		Condition:  "Possible Cardiac Event",
		Severity:   diagnosis.SeverityCritical,
		Confidence: 70,
		Keywords:   []string{"chest pain", "chest tightness", "chest pressure", "pain radiating to arm", "crushing pain"},
		Description: "Chest pain or pressure can signal a heart problem and needs urgent evaluation.",
		ImmediateActions: []string{
			"Stop all activity and sit down",
			"Call emergency services if pain lasts more than a few minutes",
			"Do not drive yourself to the hospital",
		},
		WhenToSeekHelp: "Immediately. Chest pain is an emergency until proven otherwise.",
	},
	{
		Condition:  "Respiratory Distress",
		Severity:   diagnosis.SeverityCritical,
		Confidence: 70,
		Keywords:   []string{"shortness of breath", "short of breath", "can't breathe", "cannot breathe", "difficulty breathing", "breathless", "wheezing"},
		Description: "Trouble breathing may indicate asthma, infection, or a cardiac cause.",
		ImmediateActions: []string{
			"Sit upright and try to stay calm",
			"Use a prescribed inhaler if you have one",
			"Call emergency services if breathing worsens",
		},
		WhenToSeekHelp: "Immediately if breathing is labored at rest or lips turn bluish.",
	},
	{
		Condition:  "Tension Headache",
		Severity:   diagnosis.SeverityLow,
		Confidence: 55,
		Keywords:   []string{"headache", "head ache", "head pain", "head hurts", "migraine", "pressure in my head"},
		Description: "Band-like head pain commonly triggered by stress, dehydration, or eye strain.",
		ImmediateActions: []string{
			"Rest in a quiet, dimly lit room",
			"Drink water and avoid screens",
			"Consider an over-the-counter pain reliever as directed",
		},
		WhenToSeekHelp: "If the headache is sudden and severe, follows an injury, or comes with a stiff neck, fever, or vision changes.",
	},
	{
		Condition:  "Viral Infection",
		Severity:   diagnosis.SeverityModerate,
		Confidence: 55,
		Keywords:   []string{"fever", "high temperature", "febrile", "chills", "sweating at night"},
		Description: "Elevated body temperature most often reflects a self-limiting viral infection.",
		ImmediateActions: []string{
			"Rest and drink plenty of fluids",
			"Monitor your temperature twice a day",
			"Use fever reducers as directed on the label",
		},
		WhenToSeekHelp: "If fever exceeds 39.4C (103F), lasts more than three days, or comes with a rash or stiff neck.",
	},
	{
		Condition:  "Upper Respiratory Infection",
		Severity:   diagnosis.SeverityLow,
		Confidence: 50,
		Keywords:   []string{"cough", "coughing", "sore throat", "runny nose", "congestion", "phlegm"},
		Description: "Cough with throat or nasal symptoms usually points to a common cold or mild bronchitis.",
		ImmediateActions: []string{
			"Stay hydrated and rest your voice",
			"Use warm salt-water gargles for throat pain",
			"Honey or lozenges can ease the cough",
		},
		WhenToSeekHelp: "If the cough lasts over three weeks, produces blood, or is paired with high fever.",
	},
	{
		Condition:  "Gastrointestinal Upset",
		Severity:   diagnosis.SeverityModerate,
		Confidence: 50,
		Keywords:   []string{"nausea", "nauseous", "vomit", "vomiting", "queasy", "stomach ache", "stomach pain", "abdominal pain", "belly pain", "diarrhea", "diarrhoea"},
		Description: "Nausea or abdominal discomfort commonly follows dietary triggers or a stomach bug.",
		ImmediateActions: []string{
			"Sip clear fluids in small amounts",
			"Avoid solid food until nausea settles",
			"Rest and avoid dairy, caffeine, and alcohol",
		},
		WhenToSeekHelp: "If pain localizes to the lower right abdomen, vomiting persists beyond 24 hours, or there is blood in vomit or stool.",
	},
	{
		Condition:  "Dizziness Episode",
		Severity:   diagnosis.SeverityModerate,
		Confidence: 45,
		Keywords:   []string{"dizzy", "dizziness", "lightheaded", "light-headed", "vertigo", "room spinning", "fainted", "fainting"},
		Description: "Lightheadedness can stem from dehydration, inner-ear issues, or blood pressure changes.",
		ImmediateActions: []string{
			"Sit or lie down until the feeling passes",
			"Rise slowly from sitting or lying positions",
			"Drink water and eat something if you skipped meals",
		},
		WhenToSeekHelp: "If dizziness comes with chest pain, slurred speech, or loss of consciousness.",
	},
	{
		Condition:  "General Fatigue",
		Severity:   diagnosis.SeverityLow,
		Confidence: 40,
		Keywords:   []string{"fatigue", "tired all the time", "exhausted", "exhaustion", "no energy", "weakness", "weak"},
		Description: "Persistent tiredness is most often linked to sleep, stress, or nutrition, though it can accompany many conditions.",
		ImmediateActions: []string{
			"Prioritize 7-9 hours of sleep",
			"Review recent stress, diet, and hydration",
			"Keep a short log of energy levels through the day",
		},
		WhenToSeekHelp: "If fatigue persists beyond two weeks despite rest, or comes with weight loss or fever.",
	},
	{
		Condition:  "Muscular Back Strain",
		Severity:   diagnosis.SeverityLow,
		Confidence: 50,
		Keywords:   []string{"back pain", "backache", "lower back", "pulled my back", "back spasm"},
		Description: "Most back pain is muscular, set off by lifting, posture, or prolonged sitting.",
		ImmediateActions: []string{
			"Apply heat or ice for 15-20 minutes at a time",
			"Keep gently moving rather than strict bed rest",
			"Avoid heavy lifting for a few days",
		},
		WhenToSeekHelp: "If pain shoots down a leg, causes numbness, or affects bladder or bowel control.",
	},
	{
		Condition:  "Minor Skin Burn",
		Severity:   diagnosis.SeverityModerate,
		Confidence: 55,
		Keywords:   []string{"burn", "burned", "burnt", "scald", "scalded"},
		Description: "Small superficial burns redden the skin and are painful but usually heal without scarring.",
		ImmediateActions: []string{
			"Cool the burn under running water for 10-20 minutes",
			"Do not apply ice, butter, or toothpaste",
			"Cover loosely with a sterile, non-stick dressing",
		},
		WhenToSeekHelp: "If the burn blisters widely, is larger than your palm, or involves the face, hands, or joints.",
	},
	{
		Condition:  "Localized Inflammation",
		Severity:   diagnosis.SeverityLow,
		Confidence: 40,
		Keywords:   []string{"swelling", "swollen", "redness", "inflamed", "rash", "itchy", "itching", "hives"},
		Description: "Swelling, redness, or rash usually reflects local irritation or a mild allergic reaction.",
		ImmediateActions: []string{
			"Wash the area with mild soap and water",
			"Apply a cool compress to reduce swelling",
			"Avoid scratching and suspected irritants",
		},
		WhenToSeekHelp: "If swelling spreads rapidly, involves the face or throat, or comes with fever.",
	},
}

// redFlags force an urgent-care warning regardless of which rules match. The
// term is a lowercase substring; the label is what the warning shows.
var redFlags = []struct {
	term  string
	label string
}{
	{"unconscious", "loss of consciousness"},
	{"passed out", "loss of consciousness"},
	{"seizure", "seizure"},
	{"severe bleeding", "severe bleeding"},
	{"bleeding heavily", "severe bleeding"},
	{"coughing blood", "coughing up blood"},
	{"vomiting blood", "vomiting blood"},
	{"slurred speech", "possible stroke sign"},
	{"face drooping", "possible stroke sign"},
	{"numbness on one side", "possible stroke sign"},
	{"worst headache of my life", "sudden severe headache"},
	{"stiff neck", "stiff neck with possible fever"},
	{"suicid", "thoughts of self-harm"},
}

// Assess scores the symptom text against the rule table and returns every
// matched condition. Extra keyword hits for the same rule raise its
// confidence, capped below certainty. A nil return means nothing matched.
func Assess(text string) []diagnosis.Diagnosis {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}

	var matched []diagnosis.Diagnosis
	for _, rule := range rules {
		hits := 0
		for _, keyword := range rule.Keywords {
			if strings.Contains(normalized, keyword) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}

		confidence := rule.Confidence + (hits-1)*5
		if confidence > localConfidenceCeiling {
			confidence = localConfidenceCeiling
		}

		matched = append(matched, diagnosis.Diagnosis{
			Condition:        rule.Condition,
			Confidence:       diagnosis.ClampConfidence(confidence),
			Severity:         rule.Severity,
			Description:      rule.Description,
			ImmediateActions: append([]string(nil), rule.ImmediateActions...),
			WhenToSeekHelp:   rule.WhenToSeekHelp,
		})
	}

	return matched
}

// RedFlags reports urgent warning lines for emergency phrases present in the
// text. Duplicate labels collapse to one line. Empty when none apply.
func RedFlags(text string) []string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}

	seen := make(map[string]bool, len(redFlags))
	var warnings []string
	for _, flag := range redFlags {
		if !strings.Contains(normalized, flag.term) || seen[flag.label] {
			continue
		}
		seen[flag.label] = true
		warnings = append(warnings, "Emergency sign detected ("+flag.label+"): seek immediate medical attention or call your local emergency number.")
	}
	return warnings
}
