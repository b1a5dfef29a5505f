package notify

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/report"
	"gorm.io/gorm"
)

// RecipientResolver turns recipient descriptors into deliverable contacts.
// USER values are looked up in the user table, ROLE and GROUP values map to
// shared mailboxes via the distribution list, EMAIL values pass through
// verbatim. It implements report.Resolver.
type RecipientResolver struct {
	db *gorm.DB
}

func NewRecipientResolver(db *gorm.DB) *RecipientResolver {
	return &RecipientResolver{db: db}
}

func (r *RecipientResolver) Resolve(recipient models.Recipient) (*report.ResolvedRecipient, error) {
	switch recipient.Type {
	case models.RecipientEmail:
		if recipient.Value == "" {
			return nil, errors.New("empty email recipient")
		}
		name := recipient.Personalization
		if name == "" {
			name = recipient.Value
		}
		return &report.ResolvedRecipient{
			Type:  recipient.Type,
			ID:    recipient.Value,
			Email: recipient.Value,
			Name:  name,
		}, nil

	case models.RecipientUser:
		user, err := r.findUser(recipient.Value)
		if err != nil {
			return nil, err
		}
		name := user.FullName
		if name == "" {
			name = user.Username
		}
		return &report.ResolvedRecipient{
			Type:  recipient.Type,
			ID:    recipient.Value,
			Email: user.Email,
			Name:  name,
		}, nil

	case models.RecipientRole, models.RecipientGroup:
		kind := models.ListKindGroup
		if recipient.Type == models.RecipientRole {
			kind = models.ListKindRole
		}
		var list models.DistributionList
		if err := r.db.Where("kind = ? AND `key` = ?", kind, recipient.Value).
			First(&list).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("no distribution list for %s %q", recipient.Type, recipient.Value)
			}
			return nil, err
		}
		return &report.ResolvedRecipient{
			Type:  recipient.Type,
			ID:    recipient.Value,
			Email: list.Email,
			Name:  list.DisplayName,
		}, nil

	default:
		return nil, fmt.Errorf("unknown recipient type: %s", recipient.Type)
	}
}

// findUser accepts either a numeric user ID or a username.
func (r *RecipientResolver) findUser(value string) (*models.User, error) {
	var user models.User
	var err error
	if id, convErr := strconv.ParseUint(value, 10, 32); convErr == nil {
		err = r.db.First(&user, uint(id)).Error
	} else {
		err = r.db.Where("username = ?", value).First(&user).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no user %q", value)
		}
		return nil, err
	}
	if user.Email == "" {
		return nil, fmt.Errorf("user %q has no email address", value)
	}
	return &user, nil
}
