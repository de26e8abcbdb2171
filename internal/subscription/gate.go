// Package subscription gates bot usage on membership in the required channel.
package subscription

import (
	"context"

	"usersbox-bot/internal/models"

	"github.com/rs/zerolog/log"
)

// MembershipOracle answers whether a user belongs to the required channel.
type MembershipOracle interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

type Gate struct {
	oracle MembershipOracle
}

func NewGate(oracle MembershipOracle) *Gate {
	return &Gate{oracle: oracle}
}

// IsAdmitted checks the user against the channel membership oracle. Admins
// bypass the gate. Oracle failures deny admission: the gate fails closed.
func (g *Gate) IsAdmitted(ctx context.Context, user *models.User) bool {
	if user.IsAdmin {
		return true
	}
	member, err := g.oracle.IsMember(ctx, user.TelegramID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", user.TelegramID).Msg("membership check failed, denying")
		return false
	}
	return member
}
