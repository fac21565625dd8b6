package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/query"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/resource"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UsersService implements CRUD over users, keyed and ordered by the user
// metadata.
type UsersService struct {
	metadata   *resource.Metadata[domain.User]
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// UserDependencies encapsulates collaborators of UsersService. Dispatcher,
// Logger and Clock are optional.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// CreateUserInput carries the client-supplied attributes of a new user.
type CreateUserInput struct {
	UPN       string
	FirstName string
	LastName  string
	Email     *string
}

// NewUsersService constructs the service.
func NewUsersService(deps UserDependencies) *UsersService {
	s := &UsersService{
		metadata:   domain.UserMetadata,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Metadata returns the descriptor the service is parameterized with.
func (s *UsersService) Metadata() *resource.Metadata[domain.User] {
	return s.metadata
}

// FindAll returns the users matching spec, ordered by the explicit sort
// directives of spec and then by the metadata's default sort fields.
func (s *UsersService) FindAll(ctx context.Context, spec query.Spec) ([]domain.User, error) {
	if err := query.Validate(spec, s.metadata); err != nil {
		return nil, err
	}
	items, err := s.users.List(ctx, spec)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return resource.SortObjects(items, query.SortFields(spec, s.metadata)), nil
}

// FindOne returns the user with the given key.
func (s *UsersService) FindOne(ctx context.Context, key string) (*domain.User, error) {
	user, err := s.users.GetByUPN(ctx, key)
	if err != nil {
		return nil, s.mapRepoError(err, key)
	}
	return user, nil
}

// Create stores a new user. The key must not be in use.
func (s *UsersService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	key := input.UPN
	if strings.TrimSpace(key) == "" {
		return nil, apperrors.NewValidationError(s.metadata.KeyName+" required", nil)
	}
	if strings.TrimSpace(key) != key {
		return nil, apperrors.NewValidationError(s.metadata.KeyName+" must not have leading or trailing whitespace", map[string]any{s.metadata.KeyName: key})
	}

	if _, err := s.users.GetByUPN(ctx, key); err == nil {
		return nil, s.conflict(key)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	now := s.timestamp()
	user := &domain.User{
		ID:          uuid.NewString(),
		UPN:         key,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       nonEmpty(input.Email),
		CreatedDate: now,
		UpdatedDate: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.mapRepoError(err, key)
	}

	s.publish(ctx, events.EventUserCreated, key, nil)
	return user, nil
}

// Update merges patch into the user with the given key. The key itself
// cannot change; only the update timestamp advances. The merge runs inside
// the store's write section so concurrent patches of different fields all
// survive.
func (s *UsersService) Update(ctx context.Context, key string, patch domain.UserPatch) (*domain.User, error) {
	user, err := s.users.Update(ctx, key, func(u *domain.User) error {
		patch.Apply(u)
		now := s.timestamp()
		if !now.After(u.UpdatedDate) {
			now = u.UpdatedDate.Add(time.Microsecond)
		}
		u.UpdatedDate = now
		return nil
	})
	if err != nil {
		return nil, s.mapRepoError(err, key)
	}

	s.publish(ctx, events.EventUserUpdated, key, events.UserChangedPayload{Fields: patchedFields(patch)})
	return user, nil
}

// Delete removes the user with the given key.
func (s *UsersService) Delete(ctx context.Context, key string) error {
	if err := s.users.Delete(ctx, key); err != nil {
		return s.mapRepoError(err, key)
	}
	s.publish(ctx, events.EventUserDeleted, key, nil)
	return nil
}

func (s *UsersService) mapRepoError(err error, key string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource.NotFoundMessage(s.metadata.Descriptor, key), map[string]any{s.metadata.KeyName: key})
	case errors.Is(err, repository.ErrDuplicate):
		return s.conflict(key)
	default:
		return apperrors.MapError(err)
	}
}

func (s *UsersService) conflict(key string) error {
	return apperrors.NewConflict(resource.ExistsMessage(s.metadata.Descriptor, key), map[string]any{s.metadata.KeyName: key})
}

// timestamp is truncated to the precision Postgres stores.
func (s *UsersService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *UsersService) publish(ctx context.Context, eventType events.EventType, key string, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Resource:  s.metadata.Name,
		Key:       key,
		Timestamp: s.timestamp(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.String("key", key), zap.Error(err))
	}
}

func patchedFields(p domain.UserPatch) []string {
	var fields []string
	if p.FirstName != nil {
		fields = append(fields, "firstName")
	}
	if p.LastName != nil {
		fields = append(fields, "lastName")
	}
	if p.Email != nil {
		fields = append(fields, "email")
	}
	return fields
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
