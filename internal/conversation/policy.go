package conversation

// VisibilityPolicy maps a viewing role to the set of author roles whose turns
// it may see. Visibility is monotonically inclusive by collaboration stage: a
// later-stage role sees everything an earlier-stage role sees, plus its own
// turns. The human is visible to every role.
type VisibilityPolicy map[Role]map[Role]bool

// DefaultVisibility returns the fixed policy for the four collaboration roles.
func DefaultVisibility() VisibilityPolicy {
	p := VisibilityPolicy{}
	seen := []Role{RoleHuman}
	for _, r := range AIRoles {
		seen = append(seen, r)
		vis := map[Role]bool{}
		for _, a := range seen {
			vis[a] = true
		}
		p[r] = vis
	}
	return p
}

// Visible reports whether a turn authored by author may be shown to viewer.
// Unknown viewers see only the human.
func (p VisibilityPolicy) Visible(viewer, author Role) bool {
	if author == RoleHuman {
		return true
	}
	set, ok := p[viewer]
	if !ok {
		return false
	}
	return set[author]
}
