// Package transport holds the JSON payloads of the HTTP API.
package transport

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/models"
	"github.com/Skotchmaster/iam/internal/paging"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)

type SignUpRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// Normalize trims surrounding whitespace from the username.
func (r *SignUpRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 64), validation.Match(usernamePattern)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
		validation.Field(&r.Roles, validation.By(knownRoles)),
	)
}

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *SignInRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 64)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

func knownRoles(value interface{}) error {
	roles, _ := value.([]string)
	for _, r := range roles {
		if _, err := domain.ParseRoleName(r); err != nil {
			return fmt.Errorf("unknown role %q", r)
		}
	}
	return nil
}

// ValidationDetails flattens ozzo field errors into field -> message.
func ValidationDetails(err error) map[string]string {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	out := make(map[string]string, len(fieldErrs))
	for field, fe := range fieldErrs {
		out[field] = fe.Error()
	}
	return out
}

type UserResource struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func NewUserResource(u *models.User) UserResource {
	return UserResource{ID: u.ID, Username: u.Username, Roles: u.RoleNames()}
}

func NewUserPage(p *paging.Page[models.User]) paging.Page[UserResource] {
	items := make([]UserResource, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, NewUserResource(&p.Items[i]))
	}
	return paging.Page[UserResource]{Items: items, Page: p.Page, Size: p.Size, Total: p.Total}
}

type AuthResource struct {
	UserResource
	Token string `json:"token"`
}

type RoleResource struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func NewRoleResources(roles []models.Role) []RoleResource {
	out := make([]RoleResource, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleResource{ID: r.ID, Name: r.Name.String()})
	}
	return out
}
