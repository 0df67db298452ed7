package authgin

import (
	"github.com/gin-gonic/gin"
)

// UserView is the caller as seen by handlers behind AuthRequired/AuthOptional.
type UserView struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	AAL       string `json:"aal,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Anonymous bool   `json:"is_anonymous"`

	Source string `json:"source"` // "claims" | "none"
}

// CurrentUser returns the verified caller, or a "none" view for anonymous requests.
func CurrentUser(c *gin.Context) (UserView, bool) {
	cl, ok := ClaimsFromGin(c)
	if !ok || cl.Subject() == "" {
		return UserView{Source: "none"}, false
	}
	return UserView{
		UserID:    cl.Subject(),
		Email:     cl.Email(),
		Phone:     cl.Phone(),
		Role:      cl.Role(),
		SessionID: cl.SessionID(),
		AAL:       cl.AuthenticatorAssurance(),
		Provider:  cl.Provider(),
		Anonymous: cl.IsAnonymous(),
		Source:    "claims",
	}, true
}
