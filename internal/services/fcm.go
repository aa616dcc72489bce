package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

// NewFirebaseApp initializes the Firebase app shared by Auth, Firestore and
// FCM. Base64 credentials win over a credentials file; this is useful for
// cloud deployments (Railway, Fly.io, Render) where you can't upload files easily.
func NewFirebaseApp(ctx context.Context, credentialsBase64, credentialsFile, projectID string) (*firebase.App, error) {
	var opt option.ClientOption
	switch {
	case credentialsBase64 != "":
		credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(credentialsJSON)
	case credentialsFile != "":
		opt = option.WithCredentialsFile(credentialsFile)
	default:
		return nil, fmt.Errorf("no Firebase credentials configured")
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}

// multicaster is the slice of *messaging.Client the FCM service needs
type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client multicaster
}

// NewFCMService creates a new FCM service from an initialized app
func NewFCMService(ctx context.Context, app *firebase.App) (*FCMService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMService{client: client}, nil
}

// SendMulticast sends the same message to multiple tokens and returns the
// tokens FCM reported as no longer registered.
func (s *FCMService) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("error sending multicast message: %w", err)
	}

	var stale []string
	for i, r := range response.Responses {
		if r != nil && r.Error != nil && messaging.IsUnregistered(r.Error) && i < len(tokens) {
			stale = append(stale, tokens[i])
		}
	}

	log.Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return stale, nil
}

// FCMPusher delivers in-app notifications to the recipient's registered
// devices. It satisfies resource.Pusher.
type FCMPusher struct {
	fcm  *FCMService
	docs docstore.Store
}

func NewFCMPusher(fcm *FCMService, docs docstore.Store) *FCMPusher {
	return &FCMPusher{fcm: fcm, docs: docs}
}

// Push looks up users/{userId}.fcmTokens and multicasts the notification.
// Tokens FCM rejects as unregistered are dropped from the profile.
func (p *FCMPusher) Push(ctx context.Context, note models.Notification) error {
	snap, err := p.docs.Get(ctx, models.UsersCollection, note.UserID)
	if err != nil {
		return fmt.Errorf("load push targets: %w", err)
	}
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return fmt.Errorf("decode push targets: %w", err)
	}
	if len(user.FCMTokens) == 0 {
		return nil
	}

	data := map[string]string{
		"type":            "notification",
		"notification_id": note.ID,
		"level":           string(note.Type),
	}
	stale, err := p.fcm.SendMulticast(ctx, user.FCMTokens, note.Title, note.Message, data)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	keep := make([]string, 0, len(user.FCMTokens))
	for _, t := range user.FCMTokens {
		if !contains(stale, t) {
			keep = append(keep, t)
		}
	}
	log.Printf("🧹 Dropping %d stale FCM token(s) for %s", len(stale), note.UserID)
	if err := p.docs.Update(ctx, models.UsersCollection, note.UserID, docstore.Patch{"fcmTokens": keep}); err != nil {
		log.Printf("⚠️  Failed to prune FCM tokens for %s: %v", note.UserID, err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
