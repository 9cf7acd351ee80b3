package domain

import "time"

type User struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Role            string    `json:"role"`                       // "participant" or "organizer"
	ParticipantType string    `json:"participant_type,omitempty"` // "iiit" or "non-iiit"
	CollegeName     string    `json:"college_name,omitempty"`
	OrganizerName   string    `json:"organizer_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) IsOrganizer() bool {
	return u.Role == "organizer"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// ItemQuota is the per-participant remaining allowance for one merchandise
// item, derived from all of the participant's live orders.
type ItemQuota struct {
	ItemID        uint `json:"item_id"`
	PurchaseLimit int  `json:"purchase_limit"`
	Ordered       int  `json:"ordered"`
	Remaining     int  `json:"remaining"`
}
