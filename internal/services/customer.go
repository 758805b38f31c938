package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pageinbox/internal/errs"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

// CustomerService resolves or creates customer profiles keyed by platform
// user id per integration.
type CustomerService struct {
	store *store.Store
	graph Graph
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(st *store.Store, g Graph) (*CustomerService, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if g == nil {
		return nil, fmt.Errorf("graph client cannot be nil")
	}
	return &CustomerService{store: st, graph: g}, nil
}

// ResolveOrCreate looks up the customer for a platform user id, fetching the
// profile and creating the record on first sight. The avatar fetch is
// best-effort: its failure leaves the avatar empty rather than failing the
// resolution. The registration is recorded in the activity log.
func (s *CustomerService) ResolveOrCreate(ctx context.Context, platformUserID, integrationID, token string) (*models.Customer, error) {
	customer, err := s.store.CustomerByPlatformID(integrationID, platformUserID)
	if err != nil {
		return nil, fmt.Errorf("customer lookup failed: %w", err)
	}
	if customer != nil {
		return customer, nil
	}

	profile, err := s.graph.UserProfile(ctx, platformUserID, token)
	if err != nil {
		return nil, err
	}

	firstName, lastName := profile.FirstName, profile.LastName
	if firstName == "" && lastName == "" && profile.Name != "" {
		// Feed profiles carry a single combined name; messenger profiles
		// carry first/last instead.
		firstName, lastName = splitName(profile.Name)
	}

	avatar, err := s.graph.UserAvatar(ctx, platformUserID, token)
	if err != nil {
		log.Warn().Err(err).Str("platformUserID", platformUserID).Msg("Avatar fetch failed, continuing without one")
		avatar = ""
	}

	customer = &models.Customer{
		IntegrationID:  integrationID,
		PlatformUserID: platformUserID,
		FirstName:      firstName,
		LastName:       lastName,
		Avatar:         avatar,
	}
	if err := s.store.CreateCustomer(customer); err != nil {
		if errs.IsDuplicate(err) {
			// Lost a concurrent creation race; the winner's record is the
			// customer.
			existing, lookupErr := s.store.CustomerByPlatformID(integrationID, platformUserID)
			if lookupErr != nil {
				return nil, fmt.Errorf("customer re-read after duplicate failed: %w", lookupErr)
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if err := s.store.CreateActivityLog(models.ActivityActionCreate, models.ContentTypeCustomer, customer.ID); err != nil {
		log.Error().Err(err).Str("customerID", customer.ID).Msg("Failed to write customer activity log")
	}

	log.Info().
		Str("customerID", customer.ID).
		Str("platformUserID", platformUserID).
		Msg("Registered customer")
	return customer, nil
}

// splitName derives first/last name from a combined display name.
func splitName(name string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
