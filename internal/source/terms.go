package source

import "strings"

// conditionSynonyms widens a lay condition name with the clinical and
// colloquial variants drug databases index under. Declaration order fixes
// the query order.
var conditionSynonyms = []struct {
	key      string
	synonyms []string
}{
	{"headache", []string{"migraine", "cephalalgia", "head pain", "tension headache"}},
	{"chest pain", []string{"angina", "cardiac pain", "thoracic pain", "heart pain"}},
	{"stomach ache", []string{"abdominal pain", "gastritis", "indigestion", "dyspepsia"}},
	{"fever", []string{"pyrexia", "hyperthermia", "elevated temperature"}},
	{"cough", []string{"tussis", "respiratory irritation", "bronchial irritation"}},
	{"back pain", []string{"lumbago", "dorsalgia", "spinal pain", "musculoskeletal pain"}},
	{"dizziness", []string{"vertigo", "lightheadedness", "balance problems"}},
	{"nausea", []string{"sickness", "queasiness", "gastric upset"}},
	{"diarrhea", []string{"loose stools", "gastroenteritis", "intestinal upset"}},
	{"insomnia", []string{"sleeplessness", "sleep disorder", "sleep problems"}},
	{"anxiety", []string{"nervousness", "worry", "stress", "panic"}},
	{"depression", []string{"mood disorder", "sadness", "mental health"}},
	{"allergies", []string{"allergic reaction", "hypersensitivity", "immune response"}},
	{"arthritis", []string{"joint pain", "rheumatism", "joint inflammation"}},
	{"hypertension", []string{"high blood pressure", "elevated bp", "cardiovascular"}},
}

var (
	otcTerms          = []string{"over the counter", "non prescription", "self care"}
	prescriptionTerms = []string{"prescription", "prescribed", "medical treatment"}
)

// searchTerms 把病症名展开成发往上游目录的查询词集合。
// extra 附加 OTC 或处方药相关的限定词，去重后保持插入顺序。
func searchTerms(condition string, extra []string) []string {
	lowered := strings.ToLower(strings.TrimSpace(condition))
	terms := []string{lowered}
	for _, entry := range conditionSynonyms {
		if strings.Contains(lowered, entry.key) {
			terms = append(terms, entry.synonyms...)
		}
	}
	terms = append(terms, extra...)

	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, term := range terms {
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
