package chat

// UserProfile is the public identity of an adopter or message sender.
type UserProfile struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Email    *string `db:"email" json:"email,omitempty"`
	ImageURL *string `db:"image_url" json:"image_url,omitempty"`
}

type ShelterProfile struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	LogoURL *string `db:"logo_url" json:"logo_url,omitempty"`
	City    *string `db:"city" json:"city,omitempty"`
}

type PetProfile struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Species  *string `db:"species" json:"species,omitempty"`
	Breed    *string `db:"breed" json:"breed,omitempty"`
	ImageURL *string `db:"image_url" json:"image_url,omitempty"`
}
