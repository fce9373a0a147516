package context

import (
	"arena/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// SetIdentity stores the identity resolved from the session token.
func SetIdentity(c echo.Context, identity *entity.Identity) {
	c.Set(string(KeyIdentity), identity)
}

// GetIdentity returns the identity set by the auth middleware, if any.
func GetIdentity(c echo.Context) (*entity.Identity, bool) {
	identity, ok := c.Get(string(KeyIdentity)).(*entity.Identity)

	return identity, ok && identity != nil
}
