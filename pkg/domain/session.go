package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// RoleAdmin is the role checked by the ADMIN route guard.
const RoleAdmin = "admin"

// Session is the authenticated-user/token bundle.
//
// IsAuthenticated implies Token != "". TokenExpiry is only ever set together with
// Token; a zero TokenExpiry means no expiry is known.
type Session struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	User            *User     `json:"user"`
	Token           string    `json:"token,omitempty"`
	RefreshToken    string    `json:"refreshToken,omitempty"`
	TokenExpiry     time.Time `json:"tokenExpiry,omitzero"`
}

// User is a profile document. Well-known fields are typed; everything else the
// server sends is kept in Extra so merges and round-trips are lossless.
type User struct {
	ID        string         `mapstructure:"id"`
	Email     string         `mapstructure:"email"`
	Name      string         `mapstructure:"name"`
	FirstName string         `mapstructure:"firstName"`
	LastName  string         `mapstructure:"lastName"`
	Role      string         `mapstructure:"role"`
	Avatar    string         `mapstructure:"avatar"`
	Extra     map[string]any `mapstructure:",remain"`
}

// DisplayName picks the friendliest available name.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return "User"
	case u.FirstName != "":
		return u.FirstName
	case u.Name != "":
		return u.Name
	default:
		return "User"
	}
}

// ToMap flattens the user into a generic document.
func (u *User) ToMap() map[string]any {
	if u == nil {
		return nil
	}
	out := make(map[string]any, len(u.Extra)+7)
	for k, v := range u.Extra {
		out[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("id", u.ID)
	set("email", u.Email)
	set("name", u.Name)
	set("firstName", u.FirstName)
	set("lastName", u.LastName)
	set("role", u.Role)
	set("avatar", u.Avatar)
	return out
}

// MarshalJSON encodes the user as a flat object.
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.ToMap())
}

// UnmarshalJSON decodes a flat object into typed fields and extras.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeUser(raw)
	if err != nil {
		return err
	}
	*u = *decoded
	return nil
}

// DecodeUser converts a loosely typed document (map, User, *User) into a User.
func DecodeUser(raw any) (*User, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *User:
		if v == nil {
			return nil, nil
		}
		cp := *v
		cp.Extra = copyMap(v.Extra)
		return &cp, nil
	case User:
		cp := v
		cp.Extra = copyMap(v.Extra)
		return &cp, nil
	}

	var u User
	if err := Decode(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &u, nil
}

// MergeUser applies patch over base with shallow object-spread semantics and
// returns a new User; base is left untouched.
func MergeUser(base *User, patch any) (*User, error) {
	var patchMap map[string]any
	switch p := patch.(type) {
	case nil:
		return DecodeUser(base)
	case map[string]any:
		patchMap = p
	default:
		u, err := DecodeUser(patch)
		if err != nil {
			return nil, err
		}
		patchMap = u.ToMap()
	}

	merged := base.ToMap()
	if merged == nil {
		merged = make(map[string]any, len(patchMap))
	}
	for k, v := range patchMap {
		merged[k] = v
	}
	return DecodeUser(merged)
}

// Decode copies a loosely typed document onto out using the shared decoder
// settings (weak typing, RFC 3339 timestamps). Fields absent from input keep
// their current value, which is what partial updates rely on. Slices and maps
// that are present are rebuilt, never written through, so out may share them
// with an older snapshot.
func Decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
