package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Local authenticates against the credentials table for self-hosted
// deployments. Tokens are HS256 JWTs.
type Local struct {
	*Broadcaster
	db     *sqlx.DB
	secret []byte
	ttl    time.Duration
}

type credential struct {
	UID      string `db:"uid"`
	Email    string `db:"email"`
	Password string `db:"password"`
}

func NewLocal(db *sqlx.DB, secret string, ttl time.Duration) *Local {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Local{
		Broadcaster: NewBroadcaster(),
		db:          db,
		secret:      []byte(secret),
		ttl:         ttl,
	}
}

func (l *Local) issue(uid, email string) (*Identity, error) {
	now := time.Now()
	expires := now.Add(l.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   uid,
		"email": email,
		"iat":   now.Unix(),
		"exp":   expires.Unix(),
	})
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	id := &Identity{UID: uid, Email: email, Token: signed, ExpiresAt: expires}
	l.Track(id)
	return id, nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	var cred credential
	err := l.db.GetContext(ctx, &cred, `SELECT uid, email, password FROM credentials WHERE email = $1`, strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("❌ Credentials not found: %s", email)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.Password), []byte(password)); err != nil {
		log.Printf("❌ Invalid password for: %s", email)
		return nil, ErrInvalidCredentials
	}
	return l.issue(cred.UID, cred.Email)
}

func (l *Local) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	uid, err := l.CreateCredential(ctx, email, password)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Local account created: %s (%s)", email, uid)
	return l.issue(uid, strings.ToLower(email))
}

// CreateCredential stores a bcrypt-hashed password for a new uid
func (l *Local) CreateCredential(ctx context.Context, email, password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	uid := uuid.New().String()
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO credentials (uid, email, password)
		VALUES ($1, $2, $3)
	`, uid, strings.ToLower(email), string(hashed))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("insert credentials: %w", err)
	}
	return uid, nil
}

func (l *Local) SignOut(ctx context.Context, id *Identity) error {
	l.SignedOut(id)
	return nil
}

// Revoke stamps revoked_at and ends every live session of uid
func (l *Local) Revoke(ctx context.Context, uid string) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE credentials
		SET revoked_at = EXTRACT(EPOCH FROM NOW())::BIGINT,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE uid = $1
	`, uid)
	if err != nil {
		return fmt.Errorf("revoke %s: %w", uid, err)
	}
	l.RevokeLocal(uid)
	return nil
}
