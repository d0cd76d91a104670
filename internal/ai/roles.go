package ai

import "google.golang.org/genai"

// roleTable maps stored roles to Gemini roles and back. System turns have
// no Gemini role; they travel as a system instruction instead.
type roleTable struct {
	out map[Role]genai.Role
	in  map[genai.Role]Role
}

func newRoleTable(pairs map[Role]genai.Role) roleTable {
	t := roleTable{out: pairs, in: make(map[genai.Role]Role, len(pairs))}
	for ours, theirs := range pairs {
		t.in[theirs] = ours
	}
	return t
}

var geminiRoles = newRoleTable(map[Role]genai.Role{
	RoleUser:      genai.RoleUser,
	RoleAssistant: genai.RoleModel,
})

func (t roleTable) toProvider(r Role) (genai.Role, bool) {
	v, ok := t.out[r]
	return v, ok
}

func (t roleTable) fromProvider(r genai.Role) (Role, bool) {
	v, ok := t.in[r]
	return v, ok
}
