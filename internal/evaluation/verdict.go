package evaluation

import (
	"strings"

	"github.com/spigell/resumatch/internal/structured"
)

const (
	// PersonalInformationKey is always the first key of a verdict document.
	PersonalInformationKey = "Personal Information"
	NameKey                = "Name"
	EmailKey               = "Email"

	// Unknown replaces identification fields that could not be recovered.
	Unknown = "Unknown"
)

var (
	personalInformationKeys = []string{PersonalInformationKey, "Personal_Information", "PersonalInfo", "Contact Information", "Contact"}
	nameKeys                = []string{NameKey, "Full Name", "Candidate Name"}
	emailKeys               = []string{EmailKey, "E-mail", "Email Address", "Mail"}
)

type Identification struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SkillScore struct {
	Skill string  `json:"skill"`
	Score float64 `json:"score"`
}

// Verdict is the evaluation of one resume against one job description.
// Document holds the full model payload, the typed fields are views into it.
type Verdict struct {
	Identification  Identification
	OverallMatch    float64
	Summary         string
	SkillMatch      []SkillScore
	Strengths       []string
	Weaknesses      []string
	Recommendations []string

	// IdentityMismatch is set when the model named a different candidate than the resume.
	IdentityMismatch bool

	Document *structured.Object
}

// MarshalJSON emits the document, which is the canonical verdict encoding.
func (v *Verdict) MarshalJSON() ([]byte, error) {
	return v.Document.MarshalJSON()
}

// NewVerdict reads the known fields out of doc. Missing fields keep zero values;
// the identification is read as is, without fallbacks.
func NewVerdict(doc *structured.Object) *Verdict {
	if doc == nil {
		doc = structured.NewObject()
	}

	v := &Verdict{
		Document:       doc,
		Identification: identificationOf(doc),
	}

	if _, value, ok := doc.Lookup("overallMatch", "overall_match", "match", "score"); ok {
		v.OverallMatch, _ = value.Float()
	}
	if _, value, ok := doc.Lookup("summary"); ok {
		v.Summary = strings.TrimSpace(value.Text())
	}
	if _, value, ok := doc.Lookup("skillMatch", "skills"); ok {
		v.SkillMatch = skillScores(value)
	}
	if _, value, ok := doc.Lookup("strengths"); ok {
		v.Strengths = value.Strings()
	}
	if _, value, ok := doc.Lookup("weaknesses"); ok {
		v.Weaknesses = value.Strings()
	}
	if _, value, ok := doc.Lookup("recommendations"); ok {
		v.Recommendations = value.Strings()
	}

	return v
}

// HasOverallMatch reports whether the document carries a numeric score.
func (v *Verdict) HasOverallMatch() bool {
	_, value, ok := v.Document.Lookup("overallMatch", "overall_match", "match", "score")
	if !ok {
		return false
	}
	_, ok = value.Float()
	return ok
}

// identificationOf reads the personal information block, then root-level keys.
func identificationOf(obj *structured.Object) Identification {
	var id Identification

	if _, block, ok := obj.Lookup(personalInformationKeys...); ok {
		id.Name = scalar(block.Object(), nameKeys)
		id.Email = scalar(block.Object(), emailKeys)
	}
	if id.Name == "" {
		id.Name = scalar(obj, nameKeys)
	}
	if id.Email == "" {
		id.Email = scalar(obj, emailKeys)
	}

	return id
}

// searchIdentification walks v depth-first looking for name and email fields.
// The personal information block and root-level keys are consulted first.
func searchIdentification(v *structured.Value) Identification {
	id := identificationOf(v.Object())

	if id.Name == "" {
		id.Name = search(v, nameKeys)
	}
	if id.Email == "" {
		id.Email = search(v, emailKeys)
	}

	return id
}

func search(v *structured.Value, names []string) string {
	switch v.Kind() {
	case structured.KindObject:
		obj := v.Object()
		if found := scalar(obj, names); found != "" {
			return found
		}
		for _, key := range obj.Keys() {
			child, _ := obj.Get(key)
			if found := search(child, names); found != "" {
				return found
			}
		}
	case structured.KindArray:
		for _, item := range v.Items() {
			if found := search(item, names); found != "" {
				return found
			}
		}
	}
	return ""
}

func scalar(obj *structured.Object, names []string) string {
	_, value, ok := obj.Lookup(names...)
	if !ok {
		return ""
	}
	text := strings.TrimSpace(value.Text())
	if strings.EqualFold(text, Unknown) {
		return ""
	}
	return text
}

// skillScores accepts {"Go": 90} as well as [{"skill": "Go", "score": 90}].
func skillScores(v *structured.Value) []SkillScore {
	var scores []SkillScore

	switch v.Kind() {
	case structured.KindObject:
		obj := v.Object()
		for _, key := range obj.Keys() {
			value, _ := obj.Get(key)
			score, ok := value.Float()
			if !ok {
				_, nested, found := value.Object().Lookup("score", "match", "percentage")
				if !found {
					continue
				}
				if score, ok = nested.Float(); !ok {
					continue
				}
			}
			scores = append(scores, SkillScore{Skill: key, Score: score})
		}
	case structured.KindArray:
		for _, item := range v.Items() {
			obj := item.Object()
			skill := scalar(obj, []string{"skill", "name"})
			_, value, ok := obj.Lookup("score", "match", "percentage")
			if skill == "" || !ok {
				continue
			}
			score, ok := value.Float()
			if !ok {
				continue
			}
			scores = append(scores, SkillScore{Skill: skill, Score: score})
		}
	}

	return scores
}

// setIdentification rewrites the personal information block as the first key of doc.
// Extra fields of an existing block are kept after Name and Email.
func setIdentification(doc *structured.Object, id Identification) {
	block := structured.NewObject()
	block.Set(NameKey, structured.String(id.Name))
	block.Set(EmailKey, structured.String(id.Email))

	if key, existing, ok := doc.Lookup(personalInformationKeys...); ok {
		if old := existing.Object(); old != nil {
			nameKey, _, _ := old.Lookup(nameKeys...)
			emailKey, _, _ := old.Lookup(emailKeys...)
			for _, k := range old.Keys() {
				if (nameKey != "" && k == nameKey) || (emailKey != "" && k == emailKey) {
					continue
				}
				value, _ := old.Get(k)
				block.Set(k, value)
			}
		}
		doc.Delete(key)
	}

	doc.SetFirst(PersonalInformationKey, structured.FromObject(block))
}
