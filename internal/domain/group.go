package domain

// Mode controls what remediation the moderation engine applies in a group.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeNotify Mode = "notify"
	ModeKick   Mode = "kick"
	ModeBoth   Mode = "both"
)

// Valid reports whether m is one of the four known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeOff, ModeNotify, ModeKick, ModeBoth:
		return true
	}
	return false
}

// Notifies reports whether the mode includes sending a notice to the group.
func (m Mode) Notifies() bool { return m == ModeNotify || m == ModeBoth }

// Kicks reports whether the mode includes removing the member.
func (m Mode) Kicks() bool { return m == ModeKick || m == ModeBoth }

// GroupSetting is the per-group remediation mode. Absence of a row implies
// the configured default mode. Written only by explicit admin action.
type GroupSetting struct {
	GroupID string `json:"group_id" db:"group_id"`
	Mode    Mode   `json:"mode" db:"mode"`
}
