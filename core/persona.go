package core

// Persona is the immutable snapshot of a persona record copied into an agent
// at session start. The authoritative record lives outside the coordination
// core (see the persona package); agents never observe later edits.
type Persona struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Age               int      `json:"age,omitempty"`
	Occupation        string   `json:"occupation,omitempty"`
	Location          string   `json:"location,omitempty"`
	PersonalityTraits []string `json:"personalityTraits,omitempty"`
	Interests         []string `json:"interests,omitempty"`
	Introduction      string   `json:"introduction,omitempty"`
}
