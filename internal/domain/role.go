package domain

// Role represents a player's role in a match
type Role string

const (
	RoleUnassigned Role = ""
	RoleImpostor   Role = "impostor"
	RoleNormal     Role = "normal"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsImpostor returns true if this role is the impostor
func (r Role) IsImpostor() bool {
	return r == RoleImpostor
}

// Winner names the side that won a match
type Winner string

const (
	WinnerImpostor Winner = "impostor"
	WinnerNormal   Winner = "normal"
)

// EvaluateWinner applies the end-of-reveal win rule to alive counts.
// Impostors win once they make up at least half of the alive players; the
// comparison is done on the float ratio so an odd total is never rounded.
func EvaluateWinner(aliveImpostors, aliveNormals int) (Winner, bool) {
	total := aliveImpostors + aliveNormals

	if float64(aliveImpostors) >= float64(total)/2 {
		return WinnerImpostor, true
	}
	if aliveImpostors == 0 {
		return WinnerNormal, true
	}
	return "", false
}
