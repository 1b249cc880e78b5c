package scheduling

import "strings"

// Doctor is a practitioner patients can book with. Keywords are the tokens a
// free-text preference is matched against.
type Doctor struct {
	Name      string
	Specialty string
	Keywords  []string
}

// Doctors is the clinic roster.
var Doctors = []Doctor{
	{Name: "Dr. Emily Chen", Specialty: "Internal Medicine", Keywords: []string{"emily", "chen"}},
	{Name: "Dr. David Rodriguez", Specialty: "Family Practice", Keywords: []string{"david", "rodriguez"}},
}

// DoctorNames returns the roster names in order.
func DoctorNames() []string {
	names := make([]string, len(Doctors))
	for i, d := range Doctors {
		names[i] = d.Name
	}
	return names
}

// MatchDoctor resolves a free-text doctor preference against the roster by
// substring match on keywords. First roster entry wins on ambiguity.
func MatchDoctor(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, d := range Doctors {
		for _, kw := range d.Keywords {
			if strings.Contains(lowered, kw) {
				return d.Name, true
			}
		}
	}
	return "", false
}
