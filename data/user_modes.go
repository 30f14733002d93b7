package data

import (
	"encoding/json"
	"strings"
)

// UserModes provides a lookup for the flag-like prefix modes (e.g. +o, +v)
// that a user may hold, either on a channel or (when embedded in Self) the
// client's own user modes.
type UserModes struct {
	modes int
	*modeKinds
}

// NewUserModes creates a new UserModes using the modeKinds for reference
// information about what modes/bits are available.
func NewUserModes(k *modeKinds) UserModes {
	return UserModes{modeKinds: k}
}

// SetMode sets the mode given.
func (u *UserModes) SetMode(mode rune) {
	u.modes |= int(u.modeBit(mode))
}

// HasMode checks if the user has the given mode.
func (u *UserModes) HasMode(mode rune) bool {
	bit := int(u.modeBit(mode))
	return bit != 0 && (bit == u.modes&bit)
}

// UnsetMode unsets the mode given.
func (u *UserModes) UnsetMode(mode rune) {
	u.modes &= ^int(u.modeBit(mode))
}

// String returns the mode characters currently set, ordered as they appear
// in the network's PREFIX capability.
func (u *UserModes) String() string {
	if u.modeKinds == nil {
		return ""
	}

	var sb strings.Builder
	for i := 0; i < len(u.userPrefixes); i++ {
		mode := u.userPrefixes[i][0]
		if u.HasMode(mode) {
			sb.WriteRune(mode)
		}
	}
	return sb.String()
}

// StringSymbols returns the prefix symbols (e.g. @, +) for the modes
// currently set, ordered as they appear in the network's PREFIX capability.
func (u *UserModes) StringSymbols() string {
	if u.modeKinds == nil {
		return ""
	}

	var sb strings.Builder
	for i := 0; i < len(u.userPrefixes); i++ {
		mode := u.userPrefixes[i][0]
		if u.HasMode(mode) {
			sb.WriteRune(u.userPrefixes[i][1])
		}
	}
	return sb.String()
}

type userModesJSON struct {
	Modes     int        `json:"modes"`
	ModeKinds *modeKinds `json:"mode_kinds"`
}

// MarshalJSON turns UserModes -> JSON.
func (u UserModes) MarshalJSON() ([]byte, error) {
	return json.Marshal(userModesJSON{u.modes, u.modeKinds})
}

// UnmarshalJSON turns JSON -> UserModes.
func (u *UserModes) UnmarshalJSON(b []byte) error {
	var fromJSON userModesJSON
	if err := json.Unmarshal(b, &fromJSON); err != nil {
		return err
	}

	u.modes = fromJSON.Modes
	u.modeKinds = fromJSON.ModeKinds
	return nil
}
