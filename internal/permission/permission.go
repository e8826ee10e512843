// Package permission evaluates what an actor may do with a forum or a
// feedback record. A nil *domain.User stands for an unauthenticated viewer.
package permission

import "github.com/tbourn/go-feedback-backend/internal/domain"

// Capabilities is the capability set of an actor on one forum.
type Capabilities struct {
	View          bool `json:"can_view"`
	Edit          bool `json:"can_edit"`
	Delete        bool `json:"can_delete"`
	AddMembers    bool `json:"can_add_members"`
	RemoveMembers bool `json:"can_remove_members"`
	GiveFeedback  bool `json:"can_give_feedback"`
}

// ForForum computes the capability set of user on forum. forum.Members must
// be loaded.
func ForForum(forum *domain.Forum, user *domain.User) Capabilities {
	if forum == nil {
		return Capabilities{}
	}
	isAdmin := user.IsAdmin()
	isCreator := user != nil && forum.CreatorID == user.ID
	isMember := user != nil && forum.HasMember(user.ID)
	open := !forum.Config().MembersOnly

	manage := isAdmin || isCreator
	participate := manage || isMember || open
	return Capabilities{
		View:          participate,
		Edit:          manage,
		Delete:        manage,
		AddMembers:    manage,
		RemoveMembers: manage,
		GiveFeedback:  participate,
	}
}

// CanViewFeedback reports whether viewer may read fb. forum is the record's
// forum for forum feedback and nil otherwise; an unauthenticated viewer is
// refused on members-only forums whatever the record's privacy.
func CanViewFeedback(fb *domain.Feedback, viewer *domain.User, forum *domain.Forum) bool {
	if fb == nil {
		return false
	}
	if viewer == nil && forum != nil && forum.Config().MembersOnly {
		return false
	}
	if !fb.Private {
		return true
	}
	if viewer == nil {
		return false
	}
	return IsAuthor(fb, viewer) || isRecipient(fb, viewer) || viewer.IsAdmin()
}

// CanModifyFeedback reports whether actor may edit or delete fb: its author
// or an admin.
func CanModifyFeedback(fb *domain.Feedback, actor *domain.User) bool {
	return fb != nil && actor != nil && (IsAuthor(fb, actor) || actor.IsAdmin())
}

// CanSeeAuthor reports whether viewer may see who wrote an anonymous record.
func CanSeeAuthor(fb *domain.Feedback, viewer *domain.User) bool {
	if !fb.Anonymous {
		return true
	}
	return viewer != nil && (IsAuthor(fb, viewer) || viewer.IsAdmin())
}

// IsAuthor reports whether u wrote fb.
func IsAuthor(fb *domain.Feedback, u *domain.User) bool {
	return u != nil && fb.AuthorID == u.ID
}

func isRecipient(fb *domain.Feedback, u *domain.User) bool {
	return fb.Kind == domain.KindP2P && fb.RecipientID != nil && *fb.RecipientID == u.ID
}
