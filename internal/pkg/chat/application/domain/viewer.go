package chat

// Role is the capacity in which a caller acts.
type Role string

const (
	RoleAdopter Role = "adopter"
	RoleShelter Role = "shelter"
)

// Viewer is the caller of a query. Adopters are matched on their user id; shelter
// staff act on behalf of ShelterID but messages they send carry their own UserID.
type Viewer struct {
	UserID    string
	Role      Role
	ShelterID string
}

func (v Viewer) Validate() error {
	if v.UserID == "" {
		return ErrInvalidViewer
	}
	switch v.Role {
	case RoleAdopter:
		return nil
	case RoleShelter:
		if v.ShelterID == "" {
			return ErrInvalidViewer
		}
		return nil
	}
	return ErrInvalidViewer
}

// ParticipantID is the id stored on the conversation for this viewer's side.
func (v Viewer) ParticipantID() string {
	if v.Role == RoleShelter {
		return v.ShelterID
	}
	return v.UserID
}
