package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"wot-clan-dashboard/internal/model"
	"wot-clan-dashboard/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// Registration and login errors surfaced to handlers.
var (
	ErrAccountRequired    = errors.New("account id or a known nickname is required")
	ErrNotClanMember      = errors.New("account is not a clan member")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// MemberLister is the slice of the roster client registration needs.
type MemberLister interface {
	ClanMembers(ctx context.Context) ([]model.Member, error)
}

// AuthService registers dashboard users and manages their sessions.
// Registration verifies clan membership against the (cached) roster and
// always forces the member role.
type AuthService struct {
	users    repository.UserRepository
	players  repository.PlayerRepository
	roster   MemberLister
	sessions *SessionService
}

// NewAuthService creates an auth service.
func NewAuthService(
	users repository.UserRepository,
	players repository.PlayerRepository,
	roster MemberLister,
	sessions *SessionService,
) *AuthService {
	return &AuthService{
		users:    users,
		players:  players,
		roster:   roster,
		sessions: sessions,
	}
}

// Register creates a new dashboard user. The account id may be given
// explicitly or resolved from a nickname in the local roster; membership is
// then checked against the clan roster.
func (s *AuthService) Register(ctx context.Context, username, password string, accountID int64, nickname string) error {
	resolved := accountID
	if resolved == 0 && nickname != "" {
		p, err := s.players.FindByNickname(ctx, nickname)
		if err != nil {
			return err
		}
		if p != nil {
			resolved = p.AccountID
		}
	}
	if resolved == 0 {
		return ErrAccountRequired
	}

	members, err := s.roster.ClanMembers(ctx)
	if err != nil {
		log.Printf("[AuthService] Roster check failed during registration: %v", err)
		return ErrNotClanMember
	}
	isMember := false
	for _, m := range members {
		if m.AccountID == resolved {
			isMember = true
			break
		}
	}
	if !isMember {
		return ErrNotClanMember
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Role is forced server-side; promotion is a separate admin action.
	return s.users.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleMember,
		AccountID:    resolved,
	})
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil || !verifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.sessions.Create(ctx, user.Username)
}

// Logout destroys the session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// CurrentUser resolves a session token to its user.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, sess.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// hashPassword prehashes with SHA-256 (base64url) before bcrypt so long
// passwords stay under bcrypt's 72-byte input limit.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(prehash(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(prehash(password))) == nil
}

func prehash(password string) string {
	digest := sha256.Sum256([]byte(password))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}
